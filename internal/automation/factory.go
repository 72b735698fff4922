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

package automation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tu10ng/bspterm/internal/connection/localconn"
	"github.com/tu10ng/bspterm/internal/connection/sshconn"
	"github.com/tu10ng/bspterm/internal/connection/telnetconn"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/naming"
	"github.com/tu10ng/bspterm/internal/terminal"
	"github.com/tu10ng/bspterm/pkg/api"
)

// SessionFactory opens transport sessions on behalf of create requests.
// The server depends on the interface so tests can swap transports out.
type SessionFactory interface {
	CreateSSH(ctx context.Context, p api.CreateSSHParams) (*terminal.Terminal, error)
	CreateTelnet(ctx context.Context, p api.CreateTelnetParams) (*terminal.Terminal, error)
	CreateLocal(ctx context.Context, p api.CreateLocalParams) (*terminal.Terminal, error)
}

// defaultKeepaliveInterval keeps idle remote sessions alive through
// NAT and firewall timeouts.
const defaultKeepaliveInterval = 30 * time.Second

type transportFactory struct {
	logger *slog.Logger
}

// NewSessionFactory wires the real SSH, Telnet, and PTY transports.
func NewSessionFactory(logger *slog.Logger) SessionFactory {
	return &transportFactory{logger: logger}
}

// sshConn couples a shell channel to its owning client connection so
// closing the terminal tears both down.
type sshConn struct {
	*sshconn.Channel
	parent *sshconn.Session
}

func (c *sshConn) Close() error {
	err := c.Channel.Close()
	c.parent.Close()
	return err
}

// sshConfig maps create parameters onto transport config. A request with
// no explicit credentials falls through to the agent/key-file auto chain.
func sshConfig(p api.CreateSSHParams) sshconn.Config {
	port := p.Port
	if port == 0 {
		port = 22
	}

	cfg := sshconn.NewConfig(p.Host, port)
	cfg.Username = p.Username
	cfg.KeepaliveInterval = defaultKeepaliveInterval
	switch {
	case p.PrivateKeyPath != "":
		cfg.Auth.Kind = sshconn.AuthPrivateKey
		cfg.Auth.PrivateKeyPath = p.PrivateKeyPath
		cfg.Auth.Passphrase = p.Passphrase
	case p.Password != "":
		cfg.Auth.Kind = sshconn.AuthPassword
		cfg.Auth.Password = p.Password
	}
	return cfg
}

func (f *transportFactory) CreateSSH(ctx context.Context, p api.CreateSSHParams) (*terminal.Terminal, error) {
	if p.Host == "" {
		return nil, fmt.Errorf("%w: host is required", errdefs.ErrConfig)
	}
	cfg := sshConfig(p)

	sess, err := sshconn.Connect(ctx, f.logger, cfg)
	if err != nil {
		return nil, err
	}
	ch, err := sess.OpenTerminalChannel(api.DefaultWindowSize(), nil)
	if err != nil {
		sess.Close()
		return nil, err
	}

	name := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return terminal.New(f.logger, name, &sshConn{Channel: ch, parent: sess}, nil), nil
}

func (f *transportFactory) CreateTelnet(ctx context.Context, p api.CreateTelnetParams) (*terminal.Terminal, error) {
	if p.Host == "" {
		return nil, fmt.Errorf("%w: host is required", errdefs.ErrConfig)
	}
	port := p.Port
	if port == 0 {
		port = 23
	}

	cfg := telnetconn.NewConfig(p.Host, port)
	cfg.Username = p.Username
	cfg.Password = p.Password

	sess, err := telnetconn.Connect(ctx, f.logger, cfg)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s:%d", p.Host, port)
	return terminal.New(f.logger, name, sess, telnetconn.NewNegotiator()), nil
}

func (f *transportFactory) CreateLocal(ctx context.Context, p api.CreateLocalParams) (*terminal.Terminal, error) {
	cfg := localconn.NewConfig(p.Command, p.Args...)
	sess, err := localconn.Start(ctx, f.logger, cfg, api.DefaultWindowSize())
	if err != nil {
		return nil, err
	}

	name := p.Name
	if name == "" {
		name = naming.RandomName()
	}
	return terminal.New(f.logger, name, sess, nil), nil
}
