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

// Package localconn runs a local shell under a PTY behind the same
// transport contract as the remote sessions. Registry entries backed by
// this transport classify as "local".
package localconn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/tu10ng/bspterm/internal/connection"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
)

type Config struct {
	Command string
	Args    []string
	Env     []string // appended to the inherited environment
}

// NewConfig defaults the command to the user's shell.
func NewConfig(command string, args ...string) Config {
	if command == "" {
		command = os.Getenv("SHELL")
	}
	if command == "" {
		command = "/bin/sh"
	}
	return Config{Command: command, Args: args}
}

// Session is a local shell under a PTY.
type Session struct {
	logger *slog.Logger
	cfg    Config
	cmd    *exec.Cmd
	ptmx   *os.File

	state     atomic.Int32
	closeOnce atomic.Bool
}

var _ connection.TerminalConnection = (*Session)(nil)

func Start(ctx context.Context, logger *slog.Logger, cfg Config, size api.WindowSize) (*Session, error) {
	s := &Session{logger: logger, cfg: cfg}
	s.state.Store(int32(connection.Connecting))

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)

	winsize := &pty.Winsize{
		Cols: uint16(size.Cols),
		Rows: uint16(size.Rows),
		X:    uint16(size.PixelW),
		Y:    uint16(size.PixelH),
	}
	ptmx, err := pty.StartWithSize(cmd, winsize)
	if err != nil {
		s.state.Store(int32(connection.Disconnected))
		return nil, fmt.Errorf("%w: start pty: %w", errdefs.ErrNetwork, err)
	}

	s.cmd = cmd
	s.ptmx = ptmx
	s.state.Store(int32(connection.Connected))

	// Reap the child; once it exits the session cannot come back.
	go func() {
		err := cmd.Wait()
		logger.Info("local shell exited", "cmd", cfg.Command, "err", err)
		s.state.Store(int32(connection.Disconnected))
	}()

	logger.Info("local session started", "cmd", cfg.Command, "pid", cmd.Process.Pid)
	return s, nil
}

func (s *Session) Write(p []byte) (int, error) {
	if !s.IsConnected() {
		return 0, fmt.Errorf("%w: write", errdefs.ErrChannelClosed)
	}
	return s.ptmx.Write(p)
}

func (s *Session) Output() io.Reader { return s.ptmx }

func (s *Session) Resize(size api.WindowSize) error {
	if !s.IsConnected() {
		return fmt.Errorf("%w: resize", errdefs.ErrChannelClosed)
	}
	ws := &pty.Winsize{
		Cols: uint16(size.Cols),
		Rows: uint16(size.Rows),
		X:    uint16(size.PixelW),
		Y:    uint16(size.PixelH),
	}
	if err := pty.Setsize(s.ptmx, ws); err != nil {
		return fmt.Errorf("%w: resize: %w", errdefs.ErrChannelClosed, err)
	}
	return nil
}

func (s *Session) State() connection.State {
	return connection.State(s.state.Load())
}

func (s *Session) IsConnected() bool {
	return s.State().IsConnected()
}

func (s *Session) Close() error {
	if s.closeOnce.Swap(true) {
		return nil
	}
	s.state.Store(int32(connection.Disconnected))
	if s.cmd != nil && s.cmd.Process != nil {
		// SIGHUP first, the way a closing terminal would; the reaper
		// goroutine collects the exit.
		if err := s.cmd.Process.Signal(unix.SIGHUP); err != nil {
			if err := s.cmd.Process.Kill(); err != nil {
				s.logger.Debug("could not kill local shell", "err", err)
			}
		}
	}
	if err := s.ptmx.Close(); err != nil {
		s.logger.Debug("could not close pty", "err", err)
	}
	return nil
}

func (s *Session) Info() connection.Info {
	return connection.Info{Protocol: api.ProtocolLocal}
}
