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

// Package connection defines the transport-session contract shared by the
// SSH, Telnet, and local PTY variants.
package connection

import (
	"io"
	"time"

	"github.com/tu10ng/bspterm/pkg/api"
)

// State tracks a transport session's connection lifecycle. Transitions
// move forward only, except that Disconnected is reachable from any state
// and is terminal: reconnecting means creating a new session.
type State int32

const (
	NotConnected State = iota
	Connecting
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case NotConnected:
		return "NotConnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

func (s State) IsConnected() bool { return s == Connected }

// DefaultConnectTimeout bounds connection establishment when the config
// does not carry an explicit timeout.
const DefaultConnectTimeout = 3 * time.Second

// Info describes where a transport session is connected, for presence
// announcements and registry classification.
type Info struct {
	Protocol api.Protocol
	Host     string
	Port     int
}

// TerminalConnection is one established byte-stream to a terminal,
// whatever the transport. Output returns the stream the pump reads from;
// writes go through Write. Implementations must make Close idempotent.
type TerminalConnection interface {
	io.Writer

	Output() io.Reader
	Resize(size api.WindowSize) error
	Close() error
	IsConnected() bool
	Info() Info
}
