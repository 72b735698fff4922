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

package api

import "encoding/json"

const JSONRPCVersion = "2.0"

// Method names accepted by the automation server. One JSON object per
// line in each direction; every request gets exactly one response on the
// same connection, in receipt order.
const (
	MethodSessionCreateSSH    = "session.create_ssh"
	MethodSessionCreateTelnet = "session.create_telnet"
	MethodSessionCreateLocal  = "session.create_local"
	MethodSessionList         = "session.list"
	MethodSessionCurrent      = "session.current"
	MethodSessionFocus        = "session.focus"
	MethodTerminalSend        = "terminal.send"
	MethodTerminalSendCmd     = "terminal.sendcmd"
	MethodTerminalWaitFor     = "terminal.wait_for"
	MethodTerminalClose       = "terminal.close"
	MethodTrackStart          = "terminal.track_start"
	MethodTrackRead           = "terminal.track_read"
	MethodTrackStop           = "terminal.track_stop"
	MethodRunMarked           = "terminal.run_marked"
	MethodCommandOutput       = "terminal.command_output"
	MethodReadTimeRange       = "terminal.read_time_range"
	MethodNotifySend          = "notify.send"
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Reserved error codes.
const (
	CodeParseError      = -32700
	CodeInvalidRequest  = -32600
	CodeMethodNotFound  = -32601
	CodeInvalidParams   = -32602
	CodeInternalError   = -32603
	CodeSessionNotFound = -32000
	CodeTimeout         = -32001
	CodeDisconnected    = -32002
)

// Parameter payloads. Fields mirror the wire protocol; omitted optional
// fields keep their zero value and defaults are applied server-side.

type CreateSSHParams struct {
	Host           string `json:"host"`
	Port           int    `json:"port,omitempty"` // default 22
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty"`
	Passphrase     string `json:"passphrase,omitempty"`
}

type CreateTelnetParams struct {
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"` // default 23
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

type CreateLocalParams struct {
	Command string   `json:"command,omitempty"` // default $SHELL
	Args    []string `json:"args,omitempty"`
	Name    string   `json:"name,omitempty"`
}

type CreateResult struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

type SendParams struct {
	TerminalID string `json:"terminal_id"`
	Data       string `json:"data"`
}

type WaitForParams struct {
	TerminalID string `json:"terminal_id"`
	Pattern    string `json:"pattern"`
	TimeoutMs  int64  `json:"timeout_ms,omitempty"` // default 30000
}

type WaitForResult struct {
	Matched bool   `json:"matched"`
	Content string `json:"content"`
}

type SendCmdParams struct {
	TerminalID    string `json:"terminal_id"`
	Command       string `json:"command"`
	TimeoutMs     int64  `json:"timeout_ms,omitempty"` // default 30000
	PromptPattern string `json:"prompt_pattern,omitempty"`
	StripEcho     *bool  `json:"strip_echo,omitempty"` // default true
}

type RunResult struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
}

type CloseParams struct {
	TerminalID string `json:"terminal_id"`
}

type CurrentParams struct {
	TerminalID string `json:"terminal_id,omitempty"`
}

type FocusParams struct {
	TerminalID string `json:"terminal_id"`
}

type TrackStartParams struct {
	TerminalID string `json:"terminal_id"`
}

type TrackStartResult struct {
	ReaderID string `json:"reader_id"`
}

type TrackReadParams struct {
	TerminalID string `json:"terminal_id"`
	ReaderID   string `json:"reader_id"`
}

type TrackReadResult struct {
	Content string `json:"content"`
	HasMore bool   `json:"has_more"`
}

type TrackStopParams struct {
	TerminalID string `json:"terminal_id"`
	ReaderID   string `json:"reader_id"`
}

type RunMarkedParams struct {
	TerminalID    string `json:"terminal_id"`
	Command       string `json:"command"`
	TimeoutMs     int64  `json:"timeout_ms,omitempty"`
	PromptPattern string `json:"prompt_pattern,omitempty"`
}

type RunMarkedResult struct {
	CommandID string `json:"command_id"`
	Output    string `json:"output"`
}

type CommandOutputParams struct {
	TerminalID string `json:"terminal_id"`
	CommandID  string `json:"command_id"`
}

type CommandOutputResult struct {
	Output string `json:"output"`
}

type ReadTimeRangeParams struct {
	TerminalID string `json:"terminal_id"`
	StartMs    int64  `json:"start_ms"`
	EndMs      int64  `json:"end_ms"`
}

type ReadTimeRangeResult struct {
	Content string `json:"content"`
}

type NotifyParams struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type SuccessResult struct {
	Success bool `json:"success"`
}
