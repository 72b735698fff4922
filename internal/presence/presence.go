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

// Package presence announces session lifecycle to an interested
// collaborator. The default reporter just logs; richer integrations
// plug in behind the same interface.
package presence

import (
	"log/slog"

	"github.com/tu10ng/bspterm/pkg/api"
)

// Reporter receives session lifecycle events from the registry.
type Reporter interface {
	SessionOpened(id string, proto api.Protocol, host string, port int)
	SessionClosed(id string)
}

type logReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a Reporter that records events through logger.
func NewLogReporter(logger *slog.Logger) Reporter {
	return &logReporter{logger: logger}
}

func (r *logReporter) SessionOpened(id string, proto api.Protocol, host string, port int) {
	r.logger.Info("session opened", "id", id, "protocol", proto, "host", host, "port", port)
}

func (r *logReporter) SessionClosed(id string) {
	r.logger.Info("session closed", "id", id)
}
