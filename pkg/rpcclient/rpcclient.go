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

// Package rpcclient speaks the automation protocol over a local
// socket: one JSON object per line, responses in request order.
package rpcclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
)

const maxLineBytes = 1 << 20

type Client struct {
	logger *slog.Logger

	mu      sync.Mutex // serializes call/response pairs
	conn    net.Conn
	scanner *bufio.Scanner
	enc     *json.Encoder
	nextID  uint64
}

// Dial connects to the automation socket at path.
func Dial(ctx context.Context, logger *slog.Logger, path string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", errdefs.ErrNetwork, path, err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Client{
		logger:  logger,
		conn:    conn,
		scanner: scanner,
		enc:     json.NewEncoder(conn),
	}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one request and decodes its response into result. A
// protocol-level error response comes back as *api.Error, with
// well-known codes also matching the errdefs sentinels via errors.Is.
func (c *Client) Call(method string, params, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID

	var rawParams json.RawMessage
	if params != nil {
		var err error
		rawParams, err = json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
	}
	rawID, _ := json.Marshal(id)

	req := api.Request{
		JSONRPC: api.JSONRPCVersion,
		Method:  method,
		Params:  rawParams,
		ID:      rawID,
	}
	c.logger.Debug("rpc call", "method", method, "id", id)
	if err := c.enc.Encode(&req); err != nil {
		return fmt.Errorf("%w: write request: %v", errdefs.ErrNetwork, err)
	}

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return fmt.Errorf("%w: read response: %v", errdefs.ErrNetwork, err)
		}
		return fmt.Errorf("%w: connection closed", errdefs.ErrNetwork)
	}

	var resp api.Response
	if err := json.Unmarshal(c.scanner.Bytes(), &resp); err != nil {
		return fmt.Errorf("%w: decode response: %v", errdefs.ErrNetwork, err)
	}
	if resp.Error != nil {
		return wrapError(resp.Error)
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// wrapError attaches the matching sentinel so callers can use errors.Is
// without inspecting numeric codes.
func wrapError(e *api.Error) error {
	switch e.Code {
	case api.CodeSessionNotFound:
		return fmt.Errorf("%w: %w", errdefs.ErrSessionNotFound, e)
	case api.CodeTimeout:
		return fmt.Errorf("%w: %w", errdefs.ErrWaitTimeout, e)
	case api.CodeDisconnected:
		return fmt.Errorf("%w: %w", errdefs.ErrDisconnected, e)
	default:
		return e
	}
}

// Typed wrappers for each protocol method.

func (c *Client) CreateSSH(p api.CreateSSHParams) (api.CreateResult, error) {
	var res api.CreateResult
	err := c.Call(api.MethodSessionCreateSSH, p, &res)
	return res, err
}

func (c *Client) CreateTelnet(p api.CreateTelnetParams) (api.CreateResult, error) {
	var res api.CreateResult
	err := c.Call(api.MethodSessionCreateTelnet, p, &res)
	return res, err
}

func (c *Client) CreateLocal(p api.CreateLocalParams) (api.CreateResult, error) {
	var res api.CreateResult
	err := c.Call(api.MethodSessionCreateLocal, p, &res)
	return res, err
}

func (c *Client) List() ([]api.SessionInfo, error) {
	var res []api.SessionInfo
	err := c.Call(api.MethodSessionList, nil, &res)
	return res, err
}

func (c *Client) Current() (api.SessionInfo, error) {
	var res api.SessionInfo
	err := c.Call(api.MethodSessionCurrent, nil, &res)
	return res, err
}

func (c *Client) Focus(terminalID string) error {
	return c.Call(api.MethodSessionFocus, api.FocusParams{TerminalID: terminalID}, nil)
}

func (c *Client) Send(terminalID, data string) error {
	return c.Call(api.MethodTerminalSend, api.SendParams{TerminalID: terminalID, Data: data}, nil)
}

func (c *Client) SendCmd(p api.SendCmdParams) (api.RunResult, error) {
	var res api.RunResult
	err := c.Call(api.MethodTerminalSendCmd, p, &res)
	return res, err
}

func (c *Client) WaitFor(p api.WaitForParams) (api.WaitForResult, error) {
	var res api.WaitForResult
	err := c.Call(api.MethodTerminalWaitFor, p, &res)
	return res, err
}

func (c *Client) CloseSession(terminalID string) error {
	return c.Call(api.MethodTerminalClose, api.CloseParams{TerminalID: terminalID}, nil)
}

func (c *Client) TrackStart(terminalID string) (string, error) {
	var res api.TrackStartResult
	err := c.Call(api.MethodTrackStart, api.TrackStartParams{TerminalID: terminalID}, &res)
	return res.ReaderID, err
}

func (c *Client) TrackRead(terminalID, readerID string) (api.TrackReadResult, error) {
	var res api.TrackReadResult
	err := c.Call(api.MethodTrackRead, api.TrackReadParams{TerminalID: terminalID, ReaderID: readerID}, &res)
	return res, err
}

func (c *Client) TrackStop(terminalID, readerID string) error {
	return c.Call(api.MethodTrackStop, api.TrackStopParams{TerminalID: terminalID, ReaderID: readerID}, nil)
}

func (c *Client) RunMarked(p api.RunMarkedParams) (api.RunMarkedResult, error) {
	var res api.RunMarkedResult
	err := c.Call(api.MethodRunMarked, p, &res)
	return res, err
}

func (c *Client) CommandOutput(terminalID, commandID string) (string, error) {
	var res api.CommandOutputResult
	err := c.Call(api.MethodCommandOutput, api.CommandOutputParams{TerminalID: terminalID, CommandID: commandID}, &res)
	return res.Output, err
}

func (c *Client) ReadTimeRange(terminalID string, startMs, endMs int64) (string, error) {
	var res api.ReadTimeRangeResult
	err := c.Call(api.MethodReadTimeRange, api.ReadTimeRangeParams{TerminalID: terminalID, StartMs: startMs, EndMs: endMs}, &res)
	return res.Content, err
}

func (c *Client) Notify(title, body string) error {
	return c.Call(api.MethodNotifySend, api.NotifyParams{Title: title, Body: body}, nil)
}
