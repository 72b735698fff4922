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

package run

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tu10ng/bspterm/cmd/config"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
	"github.com/tu10ng/bspterm/pkg/rpcclient"
)

// NewCmd runs one command on a session and prints its captured output.
func NewCmd() *cobra.Command {
	var (
		terminalID string
		timeoutMs  int64
		prompt     string
		keepEcho   bool
	)

	cmd := &cobra.Command{
		Use:   "run <command>",
		Short: "Run a command and capture its output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := config.LoggerFrom(cmd)
			if err != nil {
				return err
			}
			socket := config.SOCKET.ValueOrDefault()
			if socket == "" {
				return fmt.Errorf("%w: --socket is required", errdefs.ErrInvalidFlag)
			}

			cl, err := rpcclient.Dial(cmd.Context(), logger, socket)
			if err != nil {
				return err
			}
			defer cl.Close()

			stripEcho := !keepEcho
			res, err := cl.SendCmd(api.SendCmdParams{
				TerminalID:    terminalID,
				Command:       args[0],
				TimeoutMs:     timeoutMs,
				PromptPattern: prompt,
				StripEcho:     &stripEcho,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&terminalID, "terminal", "", "target session id (default: focused session)")
	f.Int64Var(&timeoutMs, "timeout-ms", 0, "prompt wait timeout in milliseconds (default 30000)")
	f.StringVar(&prompt, "prompt", "", "prompt pattern overriding the default")
	f.BoolVar(&keepEcho, "keep-echo", false, "keep the echoed command line in the output")
	return cmd
}
