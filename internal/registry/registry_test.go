// Copyright 2025 The bspterm Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/tu10ng/bspterm/internal/connection"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/logging"
	"github.com/tu10ng/bspterm/internal/terminal"
	"github.com/tu10ng/bspterm/pkg/api"
)

type nullConn struct {
	info connection.Info
	r    *io.PipeReader
	w    *io.PipeWriter
}

func newNullConn(proto api.Protocol) *nullConn {
	r, w := io.Pipe()
	return &nullConn{info: connection.Info{Protocol: proto, Host: "h", Port: 22}, r: r, w: w}
}

func (c *nullConn) Write(p []byte) (int, error) { return len(p), nil }
func (c *nullConn) Output() io.Reader           { return c.r }
func (c *nullConn) Resize(api.WindowSize) error { return nil }
func (c *nullConn) IsConnected() bool           { return true }
func (c *nullConn) Info() connection.Info       { return c.info }
func (c *nullConn) Close() error                { c.w.Close(); return nil }

type recordingReporter struct {
	mu     sync.Mutex
	opened []string
	closed []string
}

func (r *recordingReporter) SessionOpened(id string, _ api.Protocol, _ string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, id)
}

func (r *recordingReporter) SessionClosed(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, id)
}

func newTerminal(t *testing.T, proto api.Protocol) *terminal.Terminal {
	t.Helper()
	term := terminal.New(logging.NewNoopLogger(), "test", newNullConn(proto), nil)
	t.Cleanup(func() { term.Close() })
	return term
}

func Test_RegisterAndGet(t *testing.T) {
	rep := &recordingReporter{}
	reg := NewRegistry(logging.NewNoopLogger(), rep)

	term := newTerminal(t, api.ProtocolSSH)
	id := reg.Register(term.Handle(), "router")

	got, err := reg.Get(id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != term {
		t.Fatalf("Get() returned a different terminal")
	}
	if len(rep.opened) != 1 || rep.opened[0] != id.String() {
		t.Fatalf("reporter.opened = %v, want [%s]", rep.opened, id)
	}
}

func Test_GetUnknownID(t *testing.T) {
	reg := NewRegistry(logging.NewNoopLogger(), &recordingReporter{})
	if _, err := reg.Get(uuid.New()); !errors.Is(err, errdefs.ErrSessionNotFound) {
		t.Fatalf("Get() error = %v, want ErrSessionNotFound", err)
	}
}

func Test_GetByStringID(t *testing.T) {
	reg := NewRegistry(logging.NewNoopLogger(), &recordingReporter{})
	term := newTerminal(t, api.ProtocolSSH)
	id := reg.Register(term.Handle(), "a")

	if _, err := reg.GetByStringID(id.String()); err != nil {
		t.Fatalf("GetByStringID() error = %v", err)
	}
	if _, err := reg.GetByStringID("not-a-uuid"); !errors.Is(err, errdefs.ErrInvalidID) {
		t.Fatalf("GetByStringID() error = %v, want ErrInvalidID", err)
	}
}

func Test_UnregisterClearsFocus(t *testing.T) {
	rep := &recordingReporter{}
	reg := NewRegistry(logging.NewNoopLogger(), rep)

	term := newTerminal(t, api.ProtocolSSH)
	id := reg.Register(term.Handle(), "a")
	if err := reg.SetFocused(id); err != nil {
		t.Fatalf("SetFocused() error = %v", err)
	}

	reg.Unregister(id)
	if _, ok := reg.FocusedID(); ok {
		t.Fatalf("FocusedID() should be empty after unregistering the focused session")
	}
	if len(rep.closed) != 1 {
		t.Fatalf("reporter.closed = %v, want one event", rep.closed)
	}

	// Idempotent: no second event.
	reg.Unregister(id)
	if len(rep.closed) != 1 {
		t.Fatalf("Unregister() should be idempotent, closed = %v", rep.closed)
	}
}

func Test_SetFocusedUnknown(t *testing.T) {
	reg := NewRegistry(logging.NewNoopLogger(), &recordingReporter{})
	if err := reg.SetFocused(uuid.New()); !errors.Is(err, errdefs.ErrSessionNotFound) {
		t.Fatalf("SetFocused() error = %v, want ErrSessionNotFound", err)
	}
}

func Test_ListSkipsDeadHandles(t *testing.T) {
	reg := NewRegistry(logging.NewNoopLogger(), &recordingReporter{})

	alive := newTerminal(t, api.ProtocolSSH)
	dead := terminal.New(logging.NewNoopLogger(), "dead", newNullConn(api.ProtocolTelnet), nil)

	aliveID := reg.Register(alive.Handle(), "alive")
	deadID := reg.Register(dead.Handle(), "dead")
	dead.Close()

	infos := reg.List()
	if len(infos) != 1 {
		t.Fatalf("List() = %d entries, want 1", len(infos))
	}
	if infos[0].ID != aliveID.String() {
		t.Fatalf("List() kept %s, want %s", infos[0].ID, aliveID)
	}

	// Lazy pruning: the dead entry is excluded but still there.
	if _, err := reg.Get(deadID); !errors.Is(err, errdefs.ErrSessionNotFound) {
		t.Fatalf("Get(dead) error = %v, want ErrSessionNotFound", err)
	}
}

func Test_ListClassification(t *testing.T) {
	reg := NewRegistry(logging.NewNoopLogger(), &recordingReporter{})

	reg.Register(newTerminal(t, api.ProtocolSSH).Handle(), "remote-one")
	reg.Register(newTerminal(t, api.ProtocolLocal).Handle(), "local-one")

	infos := reg.List()
	if len(infos) != 2 {
		t.Fatalf("List() = %d entries, want 2", len(infos))
	}
	if infos[0].Type != "remote" || infos[1].Type != "local" {
		t.Fatalf("List() types = %s, %s", infos[0].Type, infos[1].Type)
	}
	if !infos[0].Connected {
		t.Fatalf("List() should report connectivity")
	}
}

func Test_ResolveTarget(t *testing.T) {
	reg := NewRegistry(logging.NewNoopLogger(), &recordingReporter{})
	term := newTerminal(t, api.ProtocolSSH)
	id := reg.Register(term.Handle(), "a")

	// No focus yet: empty target fails.
	if _, _, err := reg.ResolveTarget(""); !errors.Is(err, errdefs.ErrSessionNotFound) {
		t.Fatalf("ResolveTarget(\"\") error = %v, want ErrSessionNotFound", err)
	}

	if err := reg.SetFocused(id); err != nil {
		t.Fatalf("SetFocused() error = %v", err)
	}
	gotID, got, err := reg.ResolveTarget("")
	if err != nil {
		t.Fatalf("ResolveTarget(\"\") error = %v", err)
	}
	if gotID != id || got != term {
		t.Fatalf("ResolveTarget(\"\") resolved wrong session")
	}

	if _, _, err := reg.ResolveTarget("bogus"); !errors.Is(err, errdefs.ErrInvalidID) {
		t.Fatalf("ResolveTarget(bogus) error = %v, want ErrInvalidID", err)
	}
}
