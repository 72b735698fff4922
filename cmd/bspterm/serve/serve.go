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

package serve

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tu10ng/bspterm/cmd/config"
	"github.com/tu10ng/bspterm/internal/automation"
	"github.com/tu10ng/bspterm/internal/notify"
	"github.com/tu10ng/bspterm/internal/presence"
	"github.com/tu10ng/bspterm/internal/registry"
)

// NewCmd runs the automation server in the foreground until SIGINT or
// SIGTERM.
func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the automation socket",
		Long: `serve owns terminal sessions and answers automation requests on a
local JSON-RPC socket. The socket path is printed on startup and derives
from the process id unless --socket overrides it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := config.LoggerFrom(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := registry.NewRegistry(logger, presence.NewLogReporter(logger))
			factory := automation.NewSessionFactory(logger)
			notifier := notify.NewLogNotifier(logger)
			srv := automation.NewServer(logger, reg, factory, notifier, config.SOCKET.ValueOrDefault())

			fmt.Fprintln(cmd.OutOrStdout(), srv.Path())
			return srv.Run(ctx)
		},
	}
}
