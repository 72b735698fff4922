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

// Package automation exposes the session registry over a local JSON-RPC
// socket. One JSON object per line in each direction; requests on a
// single connection are answered strictly in order.
package automation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/notify"
	"github.com/tu10ng/bspterm/internal/registry"
)

// maxLineBytes bounds one request line.
const maxLineBytes = 1 << 20

// SocketPath derives the per-instance endpoint from the process id so
// concurrent instances never collide.
func SocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "bspterm", fmt.Sprintf("bspterm-%d.sock", os.Getpid()))
}

type Server struct {
	logger   *slog.Logger
	reg      *registry.Registry
	factory  SessionFactory
	notifier notify.Notifier

	socketPath string
}

func NewServer(logger *slog.Logger, reg *registry.Registry, factory SessionFactory, notifier notify.Notifier, socketPath string) *Server {
	if socketPath == "" {
		socketPath = SocketPath()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	return &Server{
		logger:     logger,
		reg:        reg,
		factory:    factory,
		notifier:   notifier,
		socketPath: socketPath,
	}
}

// Path returns the endpoint the server listens on.
func (s *Server) Path() string { return s.socketPath }

// Run listens until ctx is cancelled, then removes the socket. The
// returned error is nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return fmt.Errorf("%w: %v", errdefs.ErrOpenSocketCtrl, err)
	}
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("could not remove stale socket", "socket", s.socketPath, "err", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %v", errdefs.ErrOpenSocketCtrl, s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		os.Remove(s.socketPath)
		return fmt.Errorf("%w: chmod %s: %v", errdefs.ErrOpenSocketCtrl, s.socketPath, err)
	}
	s.logger.Info("automation server listening", "socket", s.socketPath)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		ln.Close()
		return nil
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("%w: accept: %v", errdefs.ErrServerClosed, err)
			}
			g.Go(func() error {
				s.serveConn(ctx, conn)
				return nil
			})
		}
	})

	err = g.Wait()
	if rmErr := os.Remove(s.socketPath); rmErr != nil && !os.IsNotExist(rmErr) {
		s.logger.Warn("could not remove socket", "socket", s.socketPath, "err", rmErr)
	}
	s.logger.Info("automation server stopped", "socket", s.socketPath)
	return err
}

// serveConn processes one connection's requests sequentially. A write
// failure is a broken client, not a server fault: log and close.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	// Unblock the scanner on shutdown. The done channel releases the
	// watchdog when the connection finishes on its own, so churned
	// client connections do not pin goroutines until shutdown.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := s.dispatch(ctx, line)
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("client write failed, closing connection", "err", err)
			return
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Debug("client read failed", "err", err)
	}
}
