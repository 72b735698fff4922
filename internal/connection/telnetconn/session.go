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

// Package telnetconn implements the Telnet transport session: a raw TCP
// stream with independent read and write halves. Option negotiation is the
// stream consumer's concern (see Negotiator), not the session's.
package telnetconn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/tu10ng/bspterm/internal/connection"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// Zero means connection.DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

func NewConfig(host string, port int) Config {
	return Config{Host: host, Port: port}
}

// Session is one Telnet connection. No multiplexing: one session, one
// stream. The read and write halves are independent, so one goroutine may
// block reading while another writes.
type Session struct {
	logger *slog.Logger
	cfg    Config
	conn   net.Conn

	state     atomic.Int32
	closeOnce atomic.Bool
}

var _ connection.TerminalConnection = (*Session)(nil)

// Connect opens the TCP stream with the same timeout semantics as the SSH
// transport and disables send-coalescing for interactive responsiveness.
func Connect(ctx context.Context, logger *slog.Logger, cfg Config) (*Session, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = connection.DefaultConnectTimeout
	}

	s := &Session{logger: logger, cfg: cfg}
	s.state.Store(int32(connection.Connecting))

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.state.Store(int32(connection.Disconnected))
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return nil, fmt.Errorf("%w: dialing %s: %w", errdefs.ErrConnectTimeout, addr, err)
		}
		return nil, fmt.Errorf("%w: dialing %s: %w", errdefs.ErrNetwork, addr, err)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			logger.Debug("could not disable nagle", "err", err)
		}
	}

	s.conn = conn
	s.state.Store(int32(connection.Connected))
	logger.Info("telnet session established", "addr", addr)
	return s, nil
}

func (s *Session) Write(p []byte) (int, error) {
	if !s.IsConnected() {
		return 0, fmt.Errorf("%w: write", errdefs.ErrChannelClosed)
	}
	n, err := s.conn.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: write: %w", errdefs.ErrChannelClosed, err)
	}
	return n, nil
}

// Output is the inbound half of the stream.
func (s *Session) Output() io.Reader { return s.conn }

// Resize is a no-op: Telnet carries no window geometry in this subsystem
// (NAWS would be negotiated by the consumer if ever needed).
func (s *Session) Resize(api.WindowSize) error { return nil }

func (s *Session) State() connection.State {
	return connection.State(s.state.Load())
}

func (s *Session) IsConnected() bool {
	return s.State().IsConnected()
}

// Close transitions to Disconnected exactly once.
func (s *Session) Close() error {
	if s.closeOnce.Swap(true) {
		return nil
	}
	s.state.Store(int32(connection.Disconnected))
	err := s.conn.Close()
	s.logger.Info("telnet session closed", "host", s.cfg.Host, "port", s.cfg.Port)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (s *Session) Info() connection.Info {
	return connection.Info{Protocol: api.ProtocolTelnet, Host: s.cfg.Host, Port: s.cfg.Port}
}
