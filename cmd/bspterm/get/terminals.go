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

package get

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tu10ng/bspterm/cmd/config"
	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
	"github.com/tu10ng/bspterm/pkg/rpcclient"
)

// NewCmd lists sessions on a running server.
func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "get",
		Short:        "Get resources from a running server",
		SilenceUsage: true,
	}
	cmd.AddCommand(newTerminalsCmd())
	return cmd
}

func newTerminalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "terminals",
		Aliases: []string{"terminal", "terms", "term", "t"},
		Short:   "List terminal sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return errdefs.ErrTooManyArguments
			}
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

			infos, err := cl.List()
			if err != nil {
				return err
			}

			cur, curErr := cl.Current()
			focusedID := ""
			if curErr == nil {
				focusedID = cur.ID
			}
			return printTerminals(cmd.OutOrStdout(), infos, focusedID)
		},
	}
}

func printTerminals(w io.Writer, infos []api.SessionInfo, focusedID string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCONNECTED\tFOCUS")
	for _, s := range infos {
		focus := ""
		if s.ID == focusedID {
			focus = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", s.ID, s.Name, s.Type, s.Connected, focus)
	}
	return tw.Flush()
}
