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

package sshconn

import (
	"fmt"
	"io"
	"sync/atomic"

	"golang.org/x/crypto/ssh"

	"github.com/tu10ng/bspterm/internal/connection"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
)

// Channel is one PTY-backed shell stream over the parent session. It is
// exclusively owned by the caller that opened it; the parent session must
// outlive it.
type Channel struct {
	parent *Session
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
	closed atomic.Bool
}

var _ connection.TerminalConnection = (*Channel)(nil)

func (c *Channel) Write(p []byte) (int, error) {
	if c.closed.Load() {
		return 0, fmt.Errorf("%w: write", errdefs.ErrChannelClosed)
	}
	n, err := c.stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: write: %w", errdefs.ErrChannelClosed, err)
	}
	return n, nil
}

func (c *Channel) Resize(size api.WindowSize) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: resize", errdefs.ErrChannelClosed)
	}
	if err := c.sess.WindowChange(size.Rows, size.Cols); err != nil {
		return fmt.Errorf("%w: resize: %w", errdefs.ErrChannelClosed, err)
	}
	return nil
}

// Output is the remote shell's byte stream. A single consumer (the
// terminal's output pump) reads it.
func (c *Channel) Output() io.Reader { return c.stdout }

func (c *Channel) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	_ = c.stdin.Close()
	if err := c.sess.Close(); err != nil && err != io.EOF {
		return fmt.Errorf("%w: close: %w", errdefs.ErrChannelClosed, err)
	}
	return nil
}

func (c *Channel) IsConnected() bool {
	return !c.closed.Load() && c.parent.IsConnected()
}

func (c *Channel) Info() connection.Info { return c.parent.Info() }
