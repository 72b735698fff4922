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
	"log/slog"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"

	"github.com/tu10ng/bspterm/internal/errdefs"
)

// authRecorder builds the ssh.AuthMethod list for a config. Each method is
// wrapped so that the method actually attempted last is remembered; after
// a successful handshake that is the method that authenticated.
type authRecorder struct {
	logger *slog.Logger
	used   AuthKind
}

func (a *authRecorder) methods(cfg *Config) ([]ssh.AuthMethod, error) {
	switch cfg.Auth.Kind {
	case AuthPassword:
		return []ssh.AuthMethod{a.password(cfg.Auth.Password)}, nil

	case AuthPrivateKey:
		m, err := a.privateKey(cfg.Auth.PrivateKeyPath, cfg.Auth.Passphrase)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{m}, nil

	case AuthAgent:
		m, err := a.agent()
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{m}, nil

	case AuthAuto:
		var methods []ssh.AuthMethod
		if m, err := a.agent(); err == nil {
			methods = append(methods, m)
		}
		for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
			path := filepath.Join(homeSSHDir(), name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			m, err := a.privateKey(path, "")
			if err != nil {
				a.logger.Warn("skipping unusable key file", "path", path, "err", err)
				continue
			}
			methods = append(methods, m)
		}
		if len(methods) == 0 {
			return nil, fmt.Errorf("%w: no agent and no usable key files", errdefs.ErrNoCredentials)
		}
		return methods, nil

	default:
		return nil, fmt.Errorf("%w: unknown auth kind %d", errdefs.ErrNoCredentials, cfg.Auth.Kind)
	}
}

func (a *authRecorder) password(password string) ssh.AuthMethod {
	return ssh.PasswordCallback(func() (string, error) {
		a.used = AuthPassword
		return password, nil
	})
}

func (a *authRecorder) privateKey(path, passphrase string) (ssh.AuthMethod, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w", path, err)
	}
	var signer ssh.Signer
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", path, err)
	}
	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		a.used = AuthPrivateKey
		return []ssh.Signer{signer}, nil
	}), nil
}

func (a *authRecorder) agent() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("%w: SSH_AUTH_SOCK not set", errdefs.ErrNoCredentials)
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}
	client := agent.NewClient(conn)
	return ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
		a.used = AuthAgent
		return client.Signers()
	}), nil
}

func homeSSHDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ssh")
}
