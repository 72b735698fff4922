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

// Package sshconn implements the SSH transport session: one authenticated
// connection per session, PTY-backed shell channels multiplexed over it.
package sshconn

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/tu10ng/bspterm/internal/connection"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
)

const keepaliveMax = 3

// Session is an established SSH connection to a remote host. The client
// handle lives behind a mutex: opening a channel needs exclusive access to
// the multiplexed connection, while reads and writes on an already-open
// channel do not.
type Session struct {
	logger *slog.Logger
	cfg    Config

	mu     sync.Mutex // guards client
	client *ssh.Client

	state         atomic.Int32
	hostKey       string // SHA-256 fingerprint recorded during handshake
	authMethod    AuthKind
	terminalType  string
	keepaliveStop chan struct{}
	keepaliveOnce sync.Once
	closeOnce     sync.Once
}

// Connect dials, verifies (but does not reject on) the host key, and
// authenticates. The handshake is bounded by cfg.ConnectTimeout.
func Connect(ctx context.Context, logger *slog.Logger, cfg Config) (*Session, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = connection.DefaultConnectTimeout
	}
	if cfg.TerminalType == "" {
		cfg.TerminalType = "xterm-256color"
	}

	s := &Session{
		logger:        logger,
		cfg:           cfg,
		terminalType:  cfg.TerminalType,
		keepaliveStop: make(chan struct{}),
	}
	s.state.Store(int32(connection.Connecting))

	rec := &authRecorder{logger: logger}
	methods, err := rec.methods(&cfg)
	if err != nil {
		s.state.Store(int32(connection.Disconnected))
		return nil, err
	}

	clientCfg := &ssh.ClientConfig{
		User: cfg.username(),
		Auth: methods,
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			s.hostKey = ssh.FingerprintSHA256(key)
			return nil
		},
		Timeout: timeout,
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		s.state.Store(int32(connection.Disconnected))
		return nil, classifyDialError(addr, err)
	}

	// Bound the handshake too; a listener that accepts and goes silent must
	// not hang the caller.
	_ = conn.SetDeadline(time.Now().Add(timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientCfg)
	if err != nil {
		_ = conn.Close()
		s.state.Store(int32(connection.Disconnected))
		return nil, classifyHandshakeError(addr, err)
	}
	_ = conn.SetDeadline(time.Time{})

	s.client = ssh.NewClient(sshConn, chans, reqs)
	s.authMethod = rec.used
	s.state.Store(int32(connection.Connected))

	if cfg.KeepaliveInterval > 0 {
		go s.keepaliveLoop(cfg.KeepaliveInterval)
	}

	logger.Info("ssh session established",
		"addr", addr, "user", clientCfg.User, "auth", s.authMethod.String(), "hostkey", s.hostKey)
	return s, nil
}

func classifyDialError(addr string, err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return fmt.Errorf("%w: dialing %s: %w", errdefs.ErrConnectTimeout, addr, err)
	}
	return fmt.Errorf("%w: dialing %s: %w", errdefs.ErrNetwork, addr, err)
}

func classifyHandshakeError(addr string, err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return fmt.Errorf("%w: handshake with %s: %w", errdefs.ErrConnectTimeout, addr, err)
	}
	if strings.Contains(err.Error(), "unable to authenticate") ||
		strings.Contains(err.Error(), "no supported methods remain") {
		return fmt.Errorf("%w: %s: %w", errdefs.ErrAuthFailed, addr, err)
	}
	return fmt.Errorf("%w: handshake with %s: %w", errdefs.ErrNetwork, addr, err)
}

func (s *Session) keepaliveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-s.keepaliveStop:
			return
		case <-ticker.C:
			s.mu.Lock()
			client := s.client
			s.mu.Unlock()
			if client == nil {
				return
			}
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				failures++
				s.logger.Warn("ssh keepalive failed", "failures", failures, "err", err)
				if failures >= keepaliveMax {
					s.logger.Error("ssh keepalive exhausted, closing session")
					s.Close()
					return
				}
			} else {
				failures = 0
			}
		}
	}
}

func (s *Session) State() connection.State {
	return connection.State(s.state.Load())
}

func (s *Session) IsConnected() bool {
	return s.State().IsConnected()
}

// HostKey returns the SHA-256 fingerprint recorded during the handshake.
func (s *Session) HostKey() string { return s.hostKey }

// AuthMethod reports which credential method completed authentication.
func (s *Session) AuthMethod() AuthKind { return s.authMethod }

// OpenTerminalChannel requests a PTY-backed interactive shell over the
// session's connection. Failures to set an individual environment variable
// are logged and skipped.
func (s *Session) OpenTerminalChannel(size api.WindowSize, env map[string]string) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil, fmt.Errorf("%w: ssh session", errdefs.ErrSessionClosed)
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("%w: open channel: %w", errdefs.ErrChannelClosed, err)
	}

	for key, value := range env {
		if err := sess.Setenv(key, value); err != nil {
			s.logger.Warn("failed to set ssh environment variable", "key", key, "err", err)
		}
	}

	if err := sess.RequestPty(s.terminalType, size.Rows, size.Cols, ssh.TerminalModes{}); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: request pty: %w", errdefs.ErrChannelClosed, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: stdin pipe: %w", errdefs.ErrChannelClosed, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %w", errdefs.ErrChannelClosed, err)
	}

	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: request shell: %w", errdefs.ErrChannelClosed, err)
	}

	return &Channel{
		parent: s,
		sess:   sess,
		stdin:  stdin,
		stdout: stdout,
	}, nil
}

// Close transitions to Disconnected and releases the connection handle,
// invalidating all derived channels. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(connection.Disconnected))
		s.keepaliveOnce.Do(func() { close(s.keepaliveStop) })

		s.mu.Lock()
		client := s.client
		s.client = nil
		s.mu.Unlock()

		if client != nil {
			if err := client.Close(); err != nil {
				s.logger.Debug("closing ssh client", "err", err)
			}
		}
		s.logger.Info("ssh session closed", "host", s.cfg.Host, "port", s.cfg.Port)
	})
}

func (s *Session) Info() connection.Info {
	return connection.Info{Protocol: api.ProtocolSSH, Host: s.cfg.Host, Port: s.cfg.Port}
}
