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
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/internal/logging"
)

func Test_NoCredentialsSkipsPasswordPrompt(t *testing.T) {
	t.Setenv("BSPTERM_SOCKET", filepath.Join(t.TempDir(), "absent.sock"))

	cmd := NewCmd()
	cmd.SetContext(context.WithValue(context.Background(), logging.CtxLogger, logging.NewNoopLogger()))
	cmd.SetArgs([]string{"--host", "router1"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// With no password, no key, and no --ask-password the command must
	// leave credentials empty for the server's agent/key auto chain and
	// proceed to dial, which fails on the absent socket.
	err := cmd.Execute()
	if err == nil {
		t.Fatalf("Execute() succeeded against an absent socket")
	}
	if errors.Is(err, errdefs.ErrNoCredentials) {
		t.Fatalf("Execute() error = %v, want a dial failure, not a credential prompt", err)
	}
}

func Test_AskPasswordNeedsTerminal(t *testing.T) {
	t.Setenv("BSPTERM_SOCKET", filepath.Join(t.TempDir(), "absent.sock"))

	cmd := NewCmd()
	cmd.SetContext(context.WithValue(context.Background(), logging.CtxLogger, logging.NewNoopLogger()))
	cmd.SetArgs([]string{"--host", "router1", "--ask-password"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	// Test processes have no terminal on stdin, so an explicit prompt
	// request must fail rather than read an empty password.
	if err := cmd.Execute(); !errors.Is(err, errdefs.ErrNoCredentials) {
		t.Fatalf("Execute() error = %v, want ErrNoCredentials", err)
	}
}
