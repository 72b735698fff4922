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

// Package notify delivers user-facing notifications requested over the
// automation protocol. The log-backed default is what a headless server
// runs with.
package notify

import "log/slog"

type Notifier interface {
	Notify(title, body string) error
}

type logNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(title, body string) error {
	n.logger.Info("notification", "title", title, "body", body)
	return nil
}
