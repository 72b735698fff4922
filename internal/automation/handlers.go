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
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/terminal"
	"github.com/tu10ng/bspterm/pkg/api"
)

var nullID = json.RawMessage("null")

// dispatch decodes one request line and routes it. It always produces a
// response; protocol violations are reported, never fatal.
func (s *Server) dispatch(ctx context.Context, line []byte) api.Response {
	var req api.Request
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse(nullID, api.CodeParseError, "parse error: "+err.Error())
	}
	id := req.ID
	if len(id) == 0 {
		id = nullID
	}
	if req.JSONRPC != api.JSONRPCVersion {
		return errorResponse(id, api.CodeInvalidRequest, fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC))
	}

	result, err := s.handle(ctx, &req)
	if err != nil {
		var rpcErr *api.Error
		if errors.As(err, &rpcErr) {
			return errorResponse(id, rpcErr.Code, rpcErr.Message)
		}
		return errorResponse(id, codeFor(err), err.Error())
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return errorResponse(id, api.CodeInternalError, "marshal result: "+err.Error())
	}
	return api.Response{JSONRPC: api.JSONRPCVersion, Result: raw, ID: id}
}

func errorResponse(id json.RawMessage, code int, msg string) api.Response {
	return api.Response{
		JSONRPC: api.JSONRPCVersion,
		Error:   &api.Error{Code: code, Message: msg},
		ID:      id,
	}
}

// codeFor maps transport and registry failures onto protocol codes.
func codeFor(err error) int {
	switch {
	case errors.Is(err, errdefs.ErrSessionNotFound):
		return api.CodeSessionNotFound
	case errors.Is(err, errdefs.ErrWaitTimeout), errors.Is(err, errdefs.ErrConnectTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return api.CodeTimeout
	case errors.Is(err, errdefs.ErrDisconnected), errors.Is(err, errdefs.ErrChannelClosed),
		errors.Is(err, errdefs.ErrSessionClosed):
		return api.CodeDisconnected
	case errors.Is(err, errdefs.ErrInvalidID), errors.Is(err, errdefs.ErrInvalidPattern),
		errors.Is(err, errdefs.ErrConfig):
		return api.CodeInvalidParams
	default:
		return api.CodeInternalError
	}
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var p T
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", errdefs.ErrConfig, err)
	}
	return p, nil
}

func (s *Server) handle(ctx context.Context, req *api.Request) (any, error) {
	switch req.Method {
	case api.MethodSessionCreateSSH:
		return s.handleCreateSSH(ctx, req.Params)
	case api.MethodSessionCreateTelnet:
		return s.handleCreateTelnet(ctx, req.Params)
	case api.MethodSessionCreateLocal:
		return s.handleCreateLocal(ctx, req.Params)
	case api.MethodSessionList:
		return s.reg.List(), nil
	case api.MethodSessionCurrent:
		return s.handleCurrent()
	case api.MethodSessionFocus:
		return s.handleFocus(req.Params)
	case api.MethodTerminalSend:
		return s.handleSend(req.Params)
	case api.MethodTerminalSendCmd:
		return s.handleSendCmd(ctx, req.Params)
	case api.MethodTerminalWaitFor:
		return s.handleWaitFor(ctx, req.Params)
	case api.MethodTerminalClose:
		return s.handleClose(req.Params)
	case api.MethodTrackStart:
		return s.handleTrackStart(req.Params)
	case api.MethodTrackRead:
		return s.handleTrackRead(req.Params)
	case api.MethodTrackStop:
		return s.handleTrackStop(req.Params)
	case api.MethodRunMarked:
		return s.handleRunMarked(ctx, req.Params)
	case api.MethodCommandOutput:
		return s.handleCommandOutput(req.Params)
	case api.MethodReadTimeRange:
		return s.handleReadTimeRange(req.Params)
	case api.MethodNotifySend:
		return s.handleNotify(req.Params)
	default:
		return nil, &api.Error{Code: api.CodeMethodNotFound, Message: fmt.Sprintf("method not found: %q", req.Method)}
	}
}

func (s *Server) handleCreateSSH(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.CreateSSHParams](raw)
	if err != nil {
		return nil, err
	}
	term, err := s.factory.CreateSSH(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.registerTerminal(term)
}

func (s *Server) handleCreateTelnet(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.CreateTelnetParams](raw)
	if err != nil {
		return nil, err
	}
	term, err := s.factory.CreateTelnet(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.registerTerminal(term)
}

func (s *Server) handleCreateLocal(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.CreateLocalParams](raw)
	if err != nil {
		return nil, err
	}
	term, err := s.factory.CreateLocal(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.registerTerminal(term)
}

// registerTerminal stores a freshly created session and focuses it, the
// way an interactive tab grabs focus when opened.
func (s *Server) registerTerminal(term *terminal.Terminal) (any, error) {
	id := s.reg.Register(term.Handle(), term.Name())
	if err := s.reg.SetFocused(id); err != nil {
		s.logger.Warn("could not focus new session", "id", id, "err", err)
	}
	info := term.Info()
	return api.CreateResult{
		ID:   id.String(),
		Type: string(info.Protocol),
		Host: info.Host,
		Port: info.Port,
	}, nil
}

func (s *Server) handleCurrent() (any, error) {
	id, ok := s.reg.FocusedID()
	if !ok {
		return nil, fmt.Errorf("%w: no focused session", errdefs.ErrSessionNotFound)
	}
	term, err := s.reg.Get(id)
	if err != nil {
		return nil, err
	}
	kind := "local"
	if term.IsRemote() {
		kind = "remote"
	}
	return api.SessionInfo{
		ID:        id.String(),
		Name:      term.Name(),
		Type:      kind,
		Connected: term.IsConnected(),
	}, nil
}

func (s *Server) handleFocus(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.FocusParams](raw)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(p.TerminalID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errdefs.ErrInvalidID, p.TerminalID)
	}
	if err := s.reg.SetFocused(id); err != nil {
		return nil, err
	}
	return api.SuccessResult{Success: true}, nil
}

func (s *Server) handleSend(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.SendParams](raw)
	if err != nil {
		return nil, err
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	if err := term.Input([]byte(p.Data)); err != nil {
		return nil, err
	}
	return api.SuccessResult{Success: true}, nil
}

func (s *Server) handleSendCmd(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.SendCmdParams](raw)
	if err != nil {
		return nil, err
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	stripEcho := true
	if p.StripEcho != nil {
		stripEcho = *p.StripEcho
	}
	out, err := term.SendCommand(ctx, p.Command, terminal.RunOptions{
		Timeout:       time.Duration(p.TimeoutMs) * time.Millisecond,
		PromptPattern: p.PromptPattern,
		StripEcho:     stripEcho,
	})
	if err != nil {
		return nil, err
	}
	return api.RunResult{Output: out, Success: true}, nil
}

func (s *Server) handleWaitFor(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.WaitForParams](raw)
	if err != nil {
		return nil, err
	}
	if p.Pattern == "" {
		return nil, fmt.Errorf("%w: empty pattern", errdefs.ErrInvalidPattern)
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	content, err := term.WaitFor(ctx, p.Pattern, time.Duration(p.TimeoutMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}
	return api.WaitForResult{Matched: true, Content: content}, nil
}

func (s *Server) handleClose(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.CloseParams](raw)
	if err != nil {
		return nil, err
	}
	id, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	if err := term.Close(); err != nil {
		s.logger.Warn("session close reported error", "id", id, "err", err)
	}
	s.reg.Unregister(id)
	return api.SuccessResult{Success: true}, nil
}

func (s *Server) handleTrackStart(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.TrackStartParams](raw)
	if err != nil {
		return nil, err
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	readerID := term.EnsureTracker().CreateReader()
	return api.TrackStartResult{ReaderID: readerID.String()}, nil
}

func (s *Server) handleTrackRead(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.TrackReadParams](raw)
	if err != nil {
		return nil, err
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	readerID, err := uuid.Parse(p.ReaderID)
	if err != nil {
		return nil, fmt.Errorf("%w: reader id %q", errdefs.ErrInvalidID, p.ReaderID)
	}
	content, hasMore, ok := term.EnsureTracker().ReadNew(readerID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown reader %s", errdefs.ErrInvalidID, readerID)
	}
	return api.TrackReadResult{Content: content, HasMore: hasMore}, nil
}

func (s *Server) handleTrackStop(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.TrackStopParams](raw)
	if err != nil {
		return nil, err
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	readerID, err := uuid.Parse(p.ReaderID)
	if err != nil {
		return nil, fmt.Errorf("%w: reader id %q", errdefs.ErrInvalidID, p.ReaderID)
	}
	stopped := term.EnsureTracker().StopReader(readerID)
	return api.SuccessResult{Success: stopped}, nil
}

func (s *Server) handleRunMarked(ctx context.Context, raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.RunMarkedParams](raw)
	if err != nil {
		return nil, err
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	commandID, out, err := term.RunMarked(ctx, p.Command, terminal.RunOptions{
		Timeout:       time.Duration(p.TimeoutMs) * time.Millisecond,
		PromptPattern: p.PromptPattern,
	})
	if err != nil {
		return nil, err
	}
	return api.RunMarkedResult{CommandID: commandID.String(), Output: out}, nil
}

func (s *Server) handleCommandOutput(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.CommandOutputParams](raw)
	if err != nil {
		return nil, err
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	commandID, err := uuid.Parse(p.CommandID)
	if err != nil {
		return nil, fmt.Errorf("%w: command id %q", errdefs.ErrInvalidID, p.CommandID)
	}
	out, ok := term.EnsureTracker().CommandOutput(commandID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown command %s", errdefs.ErrInvalidID, commandID)
	}
	return api.CommandOutputResult{Output: out}, nil
}

func (s *Server) handleReadTimeRange(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.ReadTimeRangeParams](raw)
	if err != nil {
		return nil, err
	}
	if p.EndMs < p.StartMs {
		return nil, fmt.Errorf("%w: end_ms before start_ms", errdefs.ErrConfig)
	}
	_, term, err := s.reg.ResolveTarget(p.TerminalID)
	if err != nil {
		return nil, err
	}
	content := term.EnsureTracker().ReadTimeRange(p.StartMs, p.EndMs)
	return api.ReadTimeRangeResult{Content: content}, nil
}

func (s *Server) handleNotify(raw json.RawMessage) (any, error) {
	p, err := decodeParams[api.NotifyParams](raw)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.Notify(p.Title, p.Body); err != nil {
		return nil, err
	}
	return api.SuccessResult{Success: true}, nil
}
