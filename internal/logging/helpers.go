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

package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

func ParseLevel(lvl string) slog.Level {
	switch lvl {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		// default if unknown
		return slog.LevelInfo
	}
}

// NewFileLogger opens (or creates) logfile and returns a logger writing to
// it at the given level, plus the file handle for the caller to close.
func NewFileLogger(logfile, loglevel string) (*slog.Logger, io.Closer, error) {
	if logfile == "" || loglevel == "" {
		return nil, nil, errors.New("logfile and loglevel must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(logfile), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(ParseLevel(loglevel))

	handler := &ReformatHandler{
		Inner:  slog.NewTextHandler(f, &slog.HandlerOptions{Level: levelVar}),
		Writer: f,
	}
	return slog.New(handler), f, nil
}

// NewStderrLogger writes human-readable records to stderr at the given
// level; the default for foreground serving.
func NewStderrLogger(loglevel string) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(ParseLevel(loglevel))
	handler := &ReformatHandler{
		Inner:  slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}),
		Writer: os.Stderr,
	}
	return slog.New(handler)
}

// NewNoopLogger discards everything; used before flags are parsed and in
// tests that do not care about log output.
func NewNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CtxKey namespaces the values commands stash on their context.
type CtxKey string

const (
	CtxLogger CtxKey = "logger"
	CtxCloser CtxKey = "logCloser"
)
