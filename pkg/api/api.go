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

// Package api holds the types shared between the automation server, the
// RPC client, and external tooling that speaks the wire protocol.
package api

// Protocol identifies the transport behind a terminal session.
type Protocol string

const (
	ProtocolSSH    Protocol = "ssh"
	ProtocolTelnet Protocol = "telnet"
	ProtocolLocal  Protocol = "local"
)

// SessionInfo is the registry's view of one session, as reported by
// session.list and session.current.
type SessionInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"` // "remote" or "local"
	Connected bool   `json:"connected"`
}

// WindowSize describes a terminal geometry. Pixel fields may be zero when
// the client has no pixel information.
type WindowSize struct {
	Cols   int `json:"cols"`
	Rows   int `json:"rows"`
	PixelW int `json:"pixel_width,omitempty"`
	PixelH int `json:"pixel_height,omitempty"`
}

// DefaultWindowSize is used when a create call does not carry a geometry.
func DefaultWindowSize() WindowSize {
	return WindowSize{Cols: 80, Rows: 24}
}
