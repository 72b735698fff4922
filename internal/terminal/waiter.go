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

package terminal

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tu10ng/bspterm/internal/errdefs"
)

const (
	// DefaultPromptPattern matches the tail of common shell prompts.
	DefaultPromptPattern = `[$#>]\s*$`

	// DefaultRunTimeout bounds wait and run operations when the caller
	// does not supply one.
	DefaultRunTimeout = 30 * time.Second

	pollInterval = 100 * time.Millisecond
)

// RunOptions shape SendCommand and RunMarked. Zero values take the
// package defaults.
type RunOptions struct {
	Timeout       time.Duration
	PromptPattern string
	StripEcho     bool
}

func (o RunOptions) withDefaults() RunOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultRunTimeout
	}
	if o.PromptPattern == "" {
		o.PromptPattern = DefaultPromptPattern
	}
	return o
}

// WaitFor polls tracked output until pattern matches, the timeout
// elapses, or ctx is cancelled. Only output produced after the tracker
// came into existence is visible to the match.
func (t *Terminal) WaitFor(ctx context.Context, pattern string, timeout time.Duration) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", errdefs.ErrInvalidPattern, pattern, err)
	}
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	tr := t.EnsureTracker()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		content := tr.Content()
		if re.MatchString(content) {
			return content, nil
		}
		if !t.IsConnected() {
			return content, fmt.Errorf("%w: wait for %q", errdefs.ErrDisconnected, pattern)
		}
		select {
		case <-ctx.Done():
			return content, ctx.Err()
		case <-deadline.C:
			return content, fmt.Errorf("%w: pattern %q after %s", errdefs.ErrWaitTimeout, pattern, timeout)
		case <-tick.C:
		}
	}
}

// SendCommand writes command followed by a newline and collects output
// until the prompt pattern reappears. The echo line and the trailing
// prompt line are trimmed from the result.
func (t *Terminal) SendCommand(ctx context.Context, command string, opts RunOptions) (string, error) {
	opts = opts.withDefaults()
	re, err := regexp.Compile(opts.PromptPattern)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", errdefs.ErrInvalidPattern, opts.PromptPattern, err)
	}

	tr := t.EnsureTracker()
	readerID := tr.CreateReader()
	defer tr.StopReader(readerID)

	if err := t.Input([]byte(command + "\n")); err != nil {
		return "", err
	}

	deadline := time.NewTimer(opts.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	var collected strings.Builder
	for {
		chunk, _, ok := tr.ReadNew(readerID)
		if !ok {
			return "", fmt.Errorf("%w: command reader expired", errdefs.ErrDisconnected)
		}
		collected.WriteString(chunk)
		if re.MatchString(collected.String()) {
			return trimCommandOutput(collected.String(), command, re, opts.StripEcho), nil
		}
		if !t.IsConnected() {
			return collected.String(), fmt.Errorf("%w: command %q", errdefs.ErrDisconnected, command)
		}
		select {
		case <-ctx.Done():
			return collected.String(), ctx.Err()
		case <-deadline.C:
			return collected.String(), fmt.Errorf("%w: command %q after %s", errdefs.ErrWaitTimeout, command, opts.Timeout)
		case <-tick.C:
		}
	}
}

// RunMarked runs a command under a named capture so its raw output can
// be re-read later through the capture id. The returned output has the
// echo line stripped like SendCommand.
func (t *Terminal) RunMarked(ctx context.Context, command string, opts RunOptions) (uuid.UUID, string, error) {
	opts.StripEcho = true
	tr := t.EnsureTracker()
	commandID := tr.StartCommand(command)
	output, err := t.SendCommand(ctx, command, opts)
	tr.CompleteCommand(commandID)
	return commandID, output, err
}

// trimCommandOutput drops the echoed command line and the prompt line
// that terminated the wait.
func trimCommandOutput(raw, command string, prompt *regexp.Regexp, stripEcho bool) string {
	lines := strings.Split(raw, "\n")
	if len(lines) > 0 && prompt.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	if stripEcho && len(lines) > 0 {
		first := strings.TrimRight(lines[0], "\r")
		if strings.TrimSpace(first) == strings.TrimSpace(command) {
			lines = lines[1:]
		}
	}
	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, "\r\n")
}
