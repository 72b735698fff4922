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

package automation

import (
	"testing"

	"github.com/tu10ng/bspterm/internal/connection/sshconn"
	"github.com/tu10ng/bspterm/pkg/api"
)

func Test_SSHConfigDefaults(t *testing.T) {
	cfg := sshConfig(api.CreateSSHParams{Host: "router1"})

	if cfg.Port != 22 {
		t.Errorf("Port = %d, want 22", cfg.Port)
	}
	if cfg.KeepaliveInterval != defaultKeepaliveInterval {
		t.Errorf("KeepaliveInterval = %v, want %v", cfg.KeepaliveInterval, defaultKeepaliveInterval)
	}
	if cfg.Auth.Kind != sshconn.AuthAuto {
		t.Errorf("Auth.Kind = %v, want AuthAuto for empty credentials", cfg.Auth.Kind)
	}
}

func Test_SSHConfigAuthSelection(t *testing.T) {
	tests := []struct {
		name   string
		params api.CreateSSHParams
		want   sshconn.AuthKind
	}{
		{
			name:   "no credentials uses auto chain",
			params: api.CreateSSHParams{Host: "h"},
			want:   sshconn.AuthAuto,
		},
		{
			name:   "password",
			params: api.CreateSSHParams{Host: "h", Password: "secret"},
			want:   sshconn.AuthPassword,
		},
		{
			name:   "key file",
			params: api.CreateSSHParams{Host: "h", PrivateKeyPath: "/tmp/id_ed25519"},
			want:   sshconn.AuthPrivateKey,
		},
		{
			name:   "key file wins over password",
			params: api.CreateSSHParams{Host: "h", Password: "secret", PrivateKeyPath: "/tmp/id_ed25519"},
			want:   sshconn.AuthPrivateKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sshConfig(tt.params)
			if cfg.Auth.Kind != tt.want {
				t.Errorf("Auth.Kind = %v, want %v", cfg.Auth.Kind, tt.want)
			}
		})
	}
}
