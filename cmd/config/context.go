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

package config

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tu10ng/bspterm/internal/logging"
)

// LoggerFrom pulls the logger the root command stashed on the context.
func LoggerFrom(cmd *cobra.Command) (*slog.Logger, error) {
	logger, ok := cmd.Context().Value(logging.CtxLogger).(*slog.Logger)
	if !ok || logger == nil {
		return nil, errors.New("logger not found in context")
	}
	return logger, nil
}
