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
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tu10ng/bspterm/internal/connection"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/logging"
	"github.com/tu10ng/bspterm/internal/registry"
	"github.com/tu10ng/bspterm/internal/terminal"
	"github.com/tu10ng/bspterm/pkg/api"
	"github.com/tu10ng/bspterm/pkg/rpcclient"
)

// shellConn fakes an interactive shell: every line written comes back
// echoed with a fixed response and prompt.
type shellConn struct {
	mu     sync.Mutex
	outR   *io.PipeReader
	outW   *io.PipeWriter
	closed bool
}

func newShellConn() *shellConn {
	r, w := io.Pipe()
	return &shellConn{outR: r, outW: w}
}

func (c *shellConn) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")
	go c.outW.Write([]byte(line + "\r\nok:" + line + "\r\n$ "))
	return len(p), nil
}

func (c *shellConn) Output() io.Reader           { return c.outR }
func (c *shellConn) Resize(api.WindowSize) error { return nil }
func (c *shellConn) Info() connection.Info {
	return connection.Info{Protocol: api.ProtocolTelnet, Host: "test", Port: 23}
}

func (c *shellConn) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *shellConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.outW.Close()
	}
	return nil
}

// fakeFactory lets each test script session creation.
type fakeFactory struct {
	CreateSSHFunc    func(ctx context.Context, p api.CreateSSHParams) (*terminal.Terminal, error)
	CreateTelnetFunc func(ctx context.Context, p api.CreateTelnetParams) (*terminal.Terminal, error)
	CreateLocalFunc  func(ctx context.Context, p api.CreateLocalParams) (*terminal.Terminal, error)
}

func (f *fakeFactory) CreateSSH(ctx context.Context, p api.CreateSSHParams) (*terminal.Terminal, error) {
	if f.CreateSSHFunc == nil {
		return nil, errors.New("unexpected CreateSSH")
	}
	return f.CreateSSHFunc(ctx, p)
}

func (f *fakeFactory) CreateTelnet(ctx context.Context, p api.CreateTelnetParams) (*terminal.Terminal, error) {
	if f.CreateTelnetFunc == nil {
		return nil, errors.New("unexpected CreateTelnet")
	}
	return f.CreateTelnetFunc(ctx, p)
}

func (f *fakeFactory) CreateLocal(ctx context.Context, p api.CreateLocalParams) (*terminal.Terminal, error) {
	if f.CreateLocalFunc == nil {
		return nil, errors.New("unexpected CreateLocal")
	}
	return f.CreateLocalFunc(ctx, p)
}

func telnetFactory() *fakeFactory {
	return &fakeFactory{
		CreateTelnetFunc: func(_ context.Context, p api.CreateTelnetParams) (*terminal.Terminal, error) {
			name := fmt.Sprintf("%s:%d", p.Host, p.Port)
			return terminal.New(logging.NewNoopLogger(), name, newShellConn(), nil), nil
		},
	}
}

func startServer(t *testing.T, factory SessionFactory) *Server {
	t.Helper()
	logger := logging.NewNoopLogger()
	reg := registry.NewRegistry(logger, nil)
	socket := filepath.Join(t.TempDir(), "bspterm.sock")
	srv := NewServer(logger, reg, factory, nil, socket)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("server did not stop")
		}
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(socket); err == nil {
			return srv
		}
		if time.Now().After(deadline) {
			t.Fatalf("socket %s never appeared", socket)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func dialRaw(t *testing.T, srv *Server) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.Dial("unix", srv.Path())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return conn, sc
}

func roundTrip(t *testing.T, conn net.Conn, sc *bufio.Scanner, line string) api.Response {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !sc.Scan() {
		t.Fatalf("no response: %v", sc.Err())
	}
	var resp api.Response
	if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal(%q) error = %v", sc.Text(), err)
	}
	return resp
}

func dialClient(t *testing.T, srv *Server) *rpcclient.Client {
	t.Helper()
	cl, err := rpcclient.Dial(context.Background(), logging.NewNoopLogger(), srv.Path())
	if err != nil {
		t.Fatalf("rpcclient.Dial() error = %v", err)
	}
	t.Cleanup(func() { cl.Close() })
	return cl
}

func Test_ParseErrorHasNullID(t *testing.T) {
	srv := startServer(t, &fakeFactory{})
	conn, sc := dialRaw(t, srv)

	resp := roundTrip(t, conn, sc, "this is not json")
	if resp.Error == nil || resp.Error.Code != api.CodeParseError {
		t.Fatalf("response error = %+v, want code %d", resp.Error, api.CodeParseError)
	}
	if string(resp.ID) != "null" {
		t.Fatalf("response id = %s, want null", resp.ID)
	}
}

func Test_WrongVersionRejected(t *testing.T) {
	srv := startServer(t, &fakeFactory{})
	conn, sc := dialRaw(t, srv)

	resp := roundTrip(t, conn, sc, `{"jsonrpc":"1.0","method":"session.list","id":7}`)
	if resp.Error == nil || resp.Error.Code != api.CodeInvalidRequest {
		t.Fatalf("response error = %+v, want code %d", resp.Error, api.CodeInvalidRequest)
	}
	if string(resp.ID) != "7" {
		t.Fatalf("response id = %s, want 7", resp.ID)
	}
}

func Test_MethodNotFound(t *testing.T) {
	srv := startServer(t, &fakeFactory{})
	conn, sc := dialRaw(t, srv)

	resp := roundTrip(t, conn, sc, `{"jsonrpc":"2.0","method":"session.destroy_all","id":1}`)
	if resp.Error == nil || resp.Error.Code != api.CodeMethodNotFound {
		t.Fatalf("response error = %+v, want code %d", resp.Error, api.CodeMethodNotFound)
	}
}

func Test_UnknownSessionID(t *testing.T) {
	srv := startServer(t, &fakeFactory{})
	cl := dialClient(t, srv)

	err := cl.Send(uuid.NewString(), "data")
	if !errors.Is(err, errdefs.ErrSessionNotFound) {
		t.Fatalf("Send() error = %v, want ErrSessionNotFound", err)
	}
}

func Test_CreateListCloseLifecycle(t *testing.T) {
	srv := startServer(t, telnetFactory())
	cl := dialClient(t, srv)

	created, err := cl.CreateTelnet(api.CreateTelnetParams{Host: "sw1", Port: 2323})
	if err != nil {
		t.Fatalf("CreateTelnet() error = %v", err)
	}
	if created.Type != "telnet" {
		t.Fatalf("CreateTelnet() type = %q", created.Type)
	}

	infos, err := cl.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 1 || infos[0].ID != created.ID {
		t.Fatalf("List() = %+v", infos)
	}

	// The new session grabbed focus.
	cur, err := cl.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if cur.ID != created.ID {
		t.Fatalf("Current() = %s, want %s", cur.ID, created.ID)
	}

	if err := cl.CloseSession(created.ID); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	infos, err = cl.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("List() after close = %+v", infos)
	}
	if err := cl.Send(created.ID, "x"); !errors.Is(err, errdefs.ErrSessionNotFound) {
		t.Fatalf("Send() after close error = %v, want ErrSessionNotFound", err)
	}
}

func Test_SendCmdReturnsCommandOutput(t *testing.T) {
	srv := startServer(t, telnetFactory())
	cl := dialClient(t, srv)

	created, err := cl.CreateTelnet(api.CreateTelnetParams{Host: "sw1", Port: 23})
	if err != nil {
		t.Fatalf("CreateTelnet() error = %v", err)
	}

	res, err := cl.SendCmd(api.SendCmdParams{
		TerminalID: created.ID,
		Command:    "show version",
		TimeoutMs:  2000,
	})
	if err != nil {
		t.Fatalf("SendCmd() error = %v", err)
	}
	if res.Output != "ok:show version" {
		t.Fatalf("SendCmd() output = %q", res.Output)
	}
}

func Test_TrackerLifecycleOverSocket(t *testing.T) {
	srv := startServer(t, telnetFactory())
	cl := dialClient(t, srv)

	created, err := cl.CreateTelnet(api.CreateTelnetParams{Host: "sw1", Port: 23})
	if err != nil {
		t.Fatalf("CreateTelnet() error = %v", err)
	}

	readerID, err := cl.TrackStart(created.ID)
	if err != nil {
		t.Fatalf("TrackStart() error = %v", err)
	}

	if err := cl.Send(created.ID, "ping\n"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var got string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		res, err := cl.TrackRead(created.ID, readerID)
		if err != nil {
			t.Fatalf("TrackRead() error = %v", err)
		}
		got += res.Content
		if strings.Contains(got, "ok:ping") {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(got, "ok:ping") {
		t.Fatalf("tracked output = %q, want ok:ping", got)
	}

	if err := cl.TrackStop(created.ID, readerID); err != nil {
		t.Fatalf("TrackStop() error = %v", err)
	}
	if _, err := cl.TrackRead(created.ID, readerID); err == nil {
		t.Fatalf("TrackRead() after stop should fail")
	}
}

func Test_RunMarkedAndCommandOutput(t *testing.T) {
	srv := startServer(t, telnetFactory())
	cl := dialClient(t, srv)

	created, err := cl.CreateTelnet(api.CreateTelnetParams{Host: "sw1", Port: 23})
	if err != nil {
		t.Fatalf("CreateTelnet() error = %v", err)
	}

	res, err := cl.RunMarked(api.RunMarkedParams{
		TerminalID: created.ID,
		Command:    "uptime",
		TimeoutMs:  2000,
	})
	if err != nil {
		t.Fatalf("RunMarked() error = %v", err)
	}
	if res.Output != "ok:uptime" {
		t.Fatalf("RunMarked() output = %q", res.Output)
	}

	raw, err := cl.CommandOutput(created.ID, res.CommandID)
	if err != nil {
		t.Fatalf("CommandOutput() error = %v", err)
	}
	if !strings.Contains(raw, "ok:uptime") {
		t.Fatalf("CommandOutput() = %q", raw)
	}
}

func Test_WaitForTimesOutOverSocket(t *testing.T) {
	srv := startServer(t, telnetFactory())
	cl := dialClient(t, srv)

	created, err := cl.CreateTelnet(api.CreateTelnetParams{Host: "sw1", Port: 23})
	if err != nil {
		t.Fatalf("CreateTelnet() error = %v", err)
	}

	_, err = cl.WaitFor(api.WaitForParams{
		TerminalID: created.ID,
		Pattern:    "never-appears",
		TimeoutMs:  200,
	})
	if !errors.Is(err, errdefs.ErrWaitTimeout) {
		t.Fatalf("WaitFor() error = %v, want ErrWaitTimeout", err)
	}
}

func Test_ResponsesStayInRequestOrder(t *testing.T) {
	srv := startServer(t, &fakeFactory{})
	conn, sc := dialRaw(t, srv)

	batch := `{"jsonrpc":"2.0","method":"session.list","id":1}` + "\n" +
		`{"jsonrpc":"2.0","method":"session.list","id":2}` + "\n" +
		`{"jsonrpc":"2.0","method":"session.list","id":3}` + "\n"
	if _, err := conn.Write([]byte(batch)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	for want := 1; want <= 3; want++ {
		if !sc.Scan() {
			t.Fatalf("missing response %d: %v", want, sc.Err())
		}
		var resp api.Response
		if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if string(resp.ID) != fmt.Sprintf("%d", want) {
			t.Fatalf("response id = %s, want %d", resp.ID, want)
		}
	}
}

func Test_FinishedConnectionsReleaseGoroutines(t *testing.T) {
	srv := startServer(t, &fakeFactory{})

	before := runtime.NumGoroutine()
	for i := 0; i < 100; i++ {
		conn, err := net.Dial("unix", srv.Path())
		if err != nil {
			t.Fatalf("Dial() error = %v", err)
		}
		if _, err := conn.Write([]byte(`{"jsonrpc":"2.0","method":"session.list","id":1}` + "\n")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if _, err := bufio.NewReader(conn).ReadBytes('\n'); err != nil {
			t.Fatalf("read response: %v", err)
		}
		conn.Close()
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		after := runtime.NumGoroutine()
		if after <= before+10 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("goroutines = %d after 100 closed connections, started at %d", after, before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func Test_ShutdownRemovesSocket(t *testing.T) {
	logger := logging.NewNoopLogger()
	reg := registry.NewRegistry(logger, nil)
	socket := filepath.Join(t.TempDir(), "bspterm.sock")
	srv := NewServer(logger, reg, &fakeFactory{}, nil, socket)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(socket); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("socket never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run() did not return")
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket still present after shutdown")
	}
}
