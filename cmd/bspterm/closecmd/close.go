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

package closecmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tu10ng/bspterm/cmd/config"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/rpcclient"
)

// NewCmd closes a session on a running server.
func NewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <terminal-id>",
		Short: "Close a terminal session",
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

			return cl.CloseSession(args[0])
		},
	}
}
