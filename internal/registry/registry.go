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

// Package registry is the process-wide session store. It holds handles,
// not terminals: an entry never extends a session's lifetime, and a
// dangling entry self-heals on the next read.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/presence"
	"github.com/tu10ng/bspterm/internal/terminal"
	"github.com/tu10ng/bspterm/pkg/api"
)

type entry struct {
	seq    uint64
	name   string
	handle *terminal.Handle
}

type Registry struct {
	logger   *slog.Logger
	reporter presence.Reporter

	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
	focused uuid.UUID
	nextSeq uint64
}

func NewRegistry(logger *slog.Logger, reporter presence.Reporter) *Registry {
	if reporter == nil {
		reporter = presence.NewLogReporter(logger)
	}
	return &Registry{
		logger:   logger,
		reporter: reporter,
		entries:  make(map[uuid.UUID]*entry),
	}
}

// Register stores a handle under a fresh id. Never fails.
func (r *Registry) Register(h *terminal.Handle, name string) uuid.UUID {
	id := uuid.New()

	r.mu.Lock()
	r.nextSeq++
	r.entries[id] = &entry{seq: r.nextSeq, name: name, handle: h}
	r.mu.Unlock()

	if t, ok := h.Resolve(); ok {
		info := t.Info()
		r.reporter.SessionOpened(id.String(), info.Protocol, info.Host, info.Port)
	}
	r.logger.Debug("session registered", "id", id, "name", name)
	return id
}

// Unregister removes an entry, clearing focus if it pointed there.
// Idempotent.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	_, existed := r.entries[id]
	delete(r.entries, id)
	if r.focused == id {
		r.focused = uuid.Nil
	}
	r.mu.Unlock()

	if existed {
		r.reporter.SessionClosed(id.String())
		r.logger.Debug("session unregistered", "id", id)
	}
}

// SetFocused marks the session automation commands target when no
// explicit id is given.
func (r *Registry) SetFocused(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", errdefs.ErrSessionNotFound, id)
	}
	if _, alive := e.handle.Resolve(); !alive {
		return fmt.Errorf("%w: %s", errdefs.ErrSessionNotFound, id)
	}
	r.focused = id
	return nil
}

// FocusedID returns the focused session, if any.
func (r *Registry) FocusedID() (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.focused == uuid.Nil {
		return uuid.Nil, false
	}
	return r.focused, true
}

// List snapshots the live entries in registration order. Dead handles
// are skipped, not removed.
func (r *Registry) List() []api.SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type row struct {
		seq  uint64
		info api.SessionInfo
	}
	rows := make([]row, 0, len(r.entries))
	for id, e := range r.entries {
		t, ok := e.handle.Resolve()
		if !ok {
			continue
		}
		kind := "local"
		if t.IsRemote() {
			kind = "remote"
		}
		rows = append(rows, row{seq: e.seq, info: api.SessionInfo{
			ID:        id.String(),
			Name:      e.name,
			Type:      kind,
			Connected: t.IsConnected(),
		}})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

	out := make([]api.SessionInfo, len(rows))
	for i, rw := range rows {
		out[i] = rw.info
	}
	return out
}

// Get resolves a live terminal or fails with ErrSessionNotFound.
func (r *Registry) Get(id uuid.UUID) (*terminal.Terminal, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrSessionNotFound, id)
	}
	t, alive := e.handle.Resolve()
	if !alive {
		return nil, fmt.Errorf("%w: %s", errdefs.ErrSessionNotFound, id)
	}
	return t, nil
}

// GetByStringID parses a textual id and resolves it.
func (r *Registry) GetByStringID(s string) (*terminal.Terminal, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errdefs.ErrInvalidID, s)
	}
	return r.Get(id)
}

// ResolveTarget maps a request's terminal_id to a live terminal. An
// empty id means the focused session.
func (r *Registry) ResolveTarget(s string) (uuid.UUID, *terminal.Terminal, error) {
	if s == "" {
		id, ok := r.FocusedID()
		if !ok {
			return uuid.Nil, nil, fmt.Errorf("%w: no focused session", errdefs.ErrSessionNotFound)
		}
		t, err := r.Get(id)
		return id, t, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: %q", errdefs.ErrInvalidID, s)
	}
	t, err := r.Get(id)
	return id, t, err
}
