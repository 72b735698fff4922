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

// Package terminal ties one transport session to its output tracker. The
// terminal's pump goroutine is the tracker's single producer; everything
// else consumes through reader cursors, command captures, or the pattern
// waiter.
package terminal

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tu10ng/bspterm/internal/connection"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/tracking"
	"github.com/tu10ng/bspterm/pkg/api"
)

const pumpBufferSize = 8192

// StreamFilter lets a transport scrub protocol bytes from the inbound
// stream before they reach the tracker. The Telnet negotiator is the one
// implementation; SSH and local streams need none.
type StreamFilter interface {
	Feed(chunk []byte) (data, reply []byte)
}

type Terminal struct {
	logger *slog.Logger
	name   string
	conn   connection.TerminalConnection
	filter StreamFilter

	mu      sync.Mutex // guards tracker creation
	tracker *tracking.Tracker

	closed atomic.Bool
}

// New wires a terminal to its transport and starts the output pump.
// filter may be nil.
func New(logger *slog.Logger, name string, conn connection.TerminalConnection, filter StreamFilter) *Terminal {
	t := &Terminal{
		logger: logger,
		name:   name,
		conn:   conn,
		filter: filter,
	}
	go t.pump()
	return t
}

// pump is the sole producer for the tracker. Output arriving before the
// first tracker request is dropped: a reader only ever sees future output
// anyway.
func (t *Terminal) pump() {
	buf := make([]byte, pumpBufferSize)
	for {
		n, err := t.conn.Output().Read(buf)
		if n > 0 {
			data := buf[:n]
			if t.filter != nil {
				var reply []byte
				data, reply = t.filter.Feed(data)
				if len(reply) > 0 {
					if _, werr := t.conn.Write(reply); werr != nil {
						t.logger.Debug("could not send negotiation reply", "err", werr)
					}
				}
			}
			if len(data) > 0 {
				if tr := t.Tracker(); tr != nil {
					tr.RecordOutput(string(data))
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				t.logger.Debug("output pump stopped", "name", t.name, "err", err)
			}
			return
		}
	}
}

func (t *Terminal) Name() string { return t.name }

// Input writes raw bytes to the remote.
func (t *Terminal) Input(data []byte) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: input", errdefs.ErrDisconnected)
	}
	_, err := t.conn.Write(data)
	return err
}

func (t *Terminal) Resize(size api.WindowSize) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: resize", errdefs.ErrDisconnected)
	}
	return t.conn.Resize(size)
}

func (t *Terminal) IsConnected() bool {
	return !t.closed.Load() && t.conn.IsConnected()
}

// IsRemote reports whether a network transport backs this terminal.
func (t *Terminal) IsRemote() bool {
	return t.conn.Info().Protocol != api.ProtocolLocal
}

func (t *Terminal) Info() connection.Info { return t.conn.Info() }

// EnsureTracker creates the output tracker on first use.
func (t *Terminal) EnsureTracker() *tracking.Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracker == nil {
		t.tracker = tracking.NewTracker()
		t.logger.Debug("output tracker created", "name", t.name)
	}
	return t.tracker
}

// Tracker returns the tracker or nil if none was requested yet.
func (t *Terminal) Tracker() *tracking.Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracker
}

// Close shuts the transport down and makes every handle stop resolving.
// Idempotent.
func (t *Terminal) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}

// Handle returns a non-owning reference for the registry. It resolves
// only while the owner has not closed the terminal.
func (t *Terminal) Handle() *Handle {
	return &Handle{t: t}
}

// Handle is the weak half of the ownership pair: the creator of a
// terminal owns its lifetime; the registry holds handles and must
// tolerate entries whose owner has already dropped them.
type Handle struct {
	t *Terminal
}

// Resolve returns the terminal while it is still alive.
func (h *Handle) Resolve() (*Terminal, bool) {
	if h.t == nil || h.t.closed.Load() {
		return nil, false
	}
	return h.t, true
}
