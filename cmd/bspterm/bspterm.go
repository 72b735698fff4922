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

// Package bspterm assembles the CLI: a serving mode that owns sessions
// and exposes the automation socket, plus client subcommands that talk
// to it.
package bspterm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tu10ng/bspterm/cmd/bspterm/closecmd"
	"github.com/tu10ng/bspterm/cmd/bspterm/connect"
	"github.com/tu10ng/bspterm/cmd/bspterm/get"
	"github.com/tu10ng/bspterm/cmd/bspterm/run"
	"github.com/tu10ng/bspterm/cmd/bspterm/send"
	"github.com/tu10ng/bspterm/cmd/bspterm/serve"
	"github.com/tu10ng/bspterm/cmd/config"
	"github.com/tu10ng/bspterm/internal/logging"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bspterm",
		Short: "bspterm remote terminal sessions",
		Long: `bspterm manages SSH, Telnet, and local terminal sessions and exposes
them to automation clients over a local JSON-RPC socket.

Typical usage:
  bspterm serve
  bspterm connect lab-router --socket /run/user/1000/bspterm/bspterm-1234.sock
  bspterm get terminals --socket ...
  bspterm run "show version" --socket ...
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := LoadConfig(); err != nil {
				fmt.Fprintln(os.Stderr, "Config error:", err)
				os.Exit(1)
			}

			logger, err := buildLogger(cmd)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), logging.CtxLogger, logger))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			releaseLogger(cmd)
		},
	}

	registerPersistentFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serve.NewCmd())
	rootCmd.AddCommand(connect.NewCmd())
	rootCmd.AddCommand(get.NewCmd())
	rootCmd.AddCommand(run.NewCmd())
	rootCmd.AddCommand(send.NewCmd())
	rootCmd.AddCommand(closecmd.NewCmd())
	return rootCmd
}

func registerPersistentFlags(pf *pflag.FlagSet) {
	pf.String(config.SOCKET.CobraKey, "", "automation socket path")
	pf.String(config.LOG_LEVEL.CobraKey, "", "log level (debug|info|warn|error)")
	pf.String(config.LOG_FILE.CobraKey, "", "log file (default: stderr)")
	pf.String(config.PROFILES_FILE.CobraKey, "", "profiles file path")
	for _, v := range config.All() {
		if err := viper.BindPFlag(v.ViperKey, pf.Lookup(v.CobraKey)); err != nil {
			fmt.Fprintln(os.Stderr, "Flag binding error:", err)
			os.Exit(1)
		}
	}
}

// LoadConfig binds the environment surface once per invocation.
func LoadConfig() error {
	for _, v := range config.All() {
		if err := v.BindEnv(); err != nil {
			return err
		}
	}
	return nil
}

func buildLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level := config.LOG_LEVEL.ValueOrDefault()
	logfile := config.LOG_FILE.ValueOrDefault()
	if logfile == "" {
		return logging.NewStderrLogger(level), nil
	}

	logger, closer, err := logging.NewFileLogger(logfile, level)
	if err != nil {
		return nil, err
	}
	cmd.SetContext(context.WithValue(cmd.Context(), logging.CtxCloser, closer))
	return logger, nil
}

// releaseLogger closes the log file buildLogger opened, if any. It runs on
// the executed subcommand, whose context carries the closer; the root
// context never sees it.
func releaseLogger(cmd *cobra.Command) {
	if closer, ok := cmd.Context().Value(logging.CtxCloser).(io.Closer); ok && closer != nil {
		closer.Close()
	}
}
