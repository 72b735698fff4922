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

// A minimal automation client: connects to a running bspterm server,
// opens a Telnet session, runs one command, and prints the output.
//
// Usage:
//
//	go run . /run/user/1000/bspterm/bspterm-1234.sock 10.0.0.2
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tu10ng/bspterm/pkg/api"
	"github.com/tu10ng/bspterm/pkg/rpcclient"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <socket> <host>\n", os.Args[0])
		os.Exit(2)
	}
	socket, host := os.Args[1], os.Args[2]

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cl, err := rpcclient.Dial(context.Background(), logger, socket)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer cl.Close()

	created, err := cl.CreateTelnet(api.CreateTelnetParams{Host: host})
	if err != nil {
		fmt.Fprintln(os.Stderr, "create:", err)
		os.Exit(1)
	}
	defer cl.CloseSession(created.ID)

	res, err := cl.SendCmd(api.SendCmdParams{
		TerminalID: created.ID,
		Command:    "show version",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "sendcmd:", err)
		os.Exit(1)
	}
	fmt.Println(res.Output)
}
