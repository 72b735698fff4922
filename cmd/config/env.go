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

// Package config defines the environment and flag surface shared by all
// bspterm subcommands. Precedence: viper (flag/config) over environment
// over built-in default.
package config

import (
	"os"

	"github.com/spf13/viper"
)

type Var struct {
	Key        string // e.g. "BSPTERM_SOCKET"
	ViperKey   string // e.g. "bspterm.socket"
	CobraKey   string // e.g. "socket"
	Default    string
	HasDefault bool
}

func DefineKV(envName, viperKey, cobraKey string, defaultVal ...string) Var {
	v := Var{Key: envName, ViperKey: viperKey, CobraKey: cobraKey}
	if len(defaultVal) > 0 {
		v.Default = defaultVal[0]
		v.HasDefault = true
	}
	return v
}

// ValueOrDefault resolves viper (if set) then OS env then default.
func (v *Var) ValueOrDefault() string {
	if v.ViperKey != "" && viper.IsSet(v.ViperKey) {
		return viper.GetString(v.ViperKey)
	}
	if val, ok := os.LookupEnv(v.Key); ok {
		return val
	}
	if v.HasDefault {
		return v.Default
	}
	return ""
}

// BindEnv is safe if ViperKey is empty: does nothing.
func (v *Var) BindEnv() error {
	if v.ViperKey == "" {
		return nil
	}
	return viper.BindEnv(v.ViperKey, v.Key)
}

var (
	SOCKET        = DefineKV("BSPTERM_SOCKET", "bspterm.socket", "socket")
	LOG_LEVEL     = DefineKV("BSPTERM_LOG_LEVEL", "bspterm.logLevel", "log-level", "info")
	LOG_FILE      = DefineKV("BSPTERM_LOG_FILE", "bspterm.logFile", "log-file")
	PROFILES_FILE = DefineKV("BSPTERM_PROFILES_FILE", "bspterm.profilesFile", "profiles-file")
)

// All lists every variable so the root command can bind them in one pass.
func All() []*Var {
	return []*Var{&SOCKET, &LOG_LEVEL, &LOG_FILE, &PROFILES_FILE}
}
