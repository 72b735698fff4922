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
	"os"
	"time"
)

// AuthKind selects how Connect authenticates.
type AuthKind int

const (
	// AuthAuto tries the agent first, then default key files.
	AuthAuto AuthKind = iota
	AuthPassword
	AuthPrivateKey
	AuthAgent
)

func (k AuthKind) String() string {
	switch k {
	case AuthAuto:
		return "auto"
	case AuthPassword:
		return "password"
	case AuthPrivateKey:
		return "private-key"
	case AuthAgent:
		return "agent"
	default:
		return "unknown"
	}
}

type AuthConfig struct {
	Kind           AuthKind
	Password       string
	PrivateKeyPath string
	Passphrase     string
}

type Config struct {
	Host     string
	Port     int
	Username string
	Auth     AuthConfig

	// Zero means connection.DefaultConnectTimeout.
	ConnectTimeout time.Duration
	// Zero disables keepalive.
	KeepaliveInterval time.Duration

	TerminalType string
}

func NewConfig(host string, port int) Config {
	return Config{
		Host:         host,
		Port:         port,
		TerminalType: "xterm-256color",
	}
}

// username resolves the login name the way the product always has: config,
// then environment, then root.
func (c *Config) username() string {
	if c.Username != "" {
		return c.Username
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" {
		return u
	}
	return "root"
}
