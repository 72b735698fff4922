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

package connect

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tu10ng/bspterm/cmd/config"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/profile"
	"github.com/tu10ng/bspterm/pkg/api"
	"github.com/tu10ng/bspterm/pkg/rpcclient"
)

type options struct {
	protocol string
	host     string
	port     int
	username string
	password string
	keyPath  string
	ask      bool
}

// NewCmd opens a session on a running server, either from a named
// profile or from explicit flags.
func NewCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "connect [profile]",
		Short: "Open an SSH or Telnet session on a running server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := config.LoggerFrom(cmd)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				if err := opts.applyProfile(args[0]); err != nil {
					return err
				}
			}
			if opts.host == "" {
				return fmt.Errorf("%w: a profile name or --host is required", errdefs.ErrInvalidFlag)
			}
			// Without --ask-password an empty credential set is left
			// empty; the server then tries the ssh agent and default
			// key files.
			if opts.ask {
				pw, err := readPassword(cmd)
				if err != nil {
					return err
				}
				opts.password = pw
			}

			socket := config.SOCKET.ValueOrDefault()
			if socket == "" {
				return fmt.Errorf("%w: --socket is required (printed by bspterm serve)", errdefs.ErrInvalidFlag)
			}
			cl, err := rpcclient.Dial(cmd.Context(), logger, socket)
			if err != nil {
				return err
			}
			defer cl.Close()

			created, err := opts.create(cl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s:%d\n", created.ID, created.Type, created.Host, created.Port)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.protocol, "protocol", "ssh", "transport protocol (ssh|telnet)")
	f.StringVar(&opts.host, "host", "", "remote host")
	f.IntVar(&opts.port, "port", 0, "remote port (default 22 for ssh, 23 for telnet)")
	f.StringVar(&opts.username, "username", "", "login name")
	f.StringVar(&opts.keyPath, "key", "", "private key path (ssh)")
	f.BoolVar(&opts.ask, "ask-password", false, "prompt for a password")
	return cmd
}

func (o *options) applyProfile(name string) error {
	path := config.PROFILES_FILE.ValueOrDefault()
	if path == "" {
		var err error
		path, err = profile.DefaultPath()
		if err != nil {
			return err
		}
	}
	store, err := profile.Load(path)
	if err != nil {
		return err
	}
	p, err := store.Lookup(name)
	if err != nil {
		return err
	}

	o.protocol = p.Protocol
	o.host = p.Host
	o.port = p.Port
	if o.username == "" {
		o.username = p.Username
	}
	if o.password == "" {
		o.password = p.Password
	}
	if o.keyPath == "" {
		o.keyPath = p.PrivateKeyPath
	}
	return nil
}

func (o *options) create(cl *rpcclient.Client) (api.CreateResult, error) {
	switch api.Protocol(o.protocol) {
	case api.ProtocolSSH:
		return cl.CreateSSH(api.CreateSSHParams{
			Host:           o.host,
			Port:           o.port,
			Username:       o.username,
			Password:       o.password,
			PrivateKeyPath: o.keyPath,
		})
	case api.ProtocolTelnet:
		return cl.CreateTelnet(api.CreateTelnetParams{
			Host:     o.host,
			Port:     o.port,
			Username: o.username,
			Password: o.password,
		})
	default:
		return api.CreateResult{}, fmt.Errorf("%w: unknown protocol %q", errdefs.ErrInvalidFlag, o.protocol)
	}
}

func readPassword(cmd *cobra.Command) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: cannot prompt for password without a terminal", errdefs.ErrNoCredentials)
	}
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
