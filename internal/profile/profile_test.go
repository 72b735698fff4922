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

package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tu10ng/bspterm/internal/errdefs"
)

const sampleProfiles = `
profiles:
  - name: lab-router
    protocol: ssh
    host: 10.0.0.1
    username: admin
    privateKeyPath: ~/.ssh/id_ed25519
  - name: legacy-switch
    protocol: telnet
    host: 10.0.0.2
    port: 2323
    username: admin
    password: secret
`

func Test_ParseAndLookup(t *testing.T) {
	s, err := Parse([]byte(sampleProfiles))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	p, err := s.Lookup("lab-router")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if p.Port != 22 {
		t.Fatalf("ssh profile port = %d, want default 22", p.Port)
	}

	p, err = s.Lookup("legacy-switch")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if p.Port != 2323 {
		t.Fatalf("telnet profile port = %d, want explicit 2323", p.Port)
	}

	if got := s.Names(); len(got) != 2 || got[0] != "lab-router" {
		t.Fatalf("Names() = %v", got)
	}
}

func Test_LookupUnknown(t *testing.T) {
	s, err := Parse([]byte(sampleProfiles))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := s.Lookup("nope"); !errors.Is(err, errdefs.ErrProfileNotFound) {
		t.Fatalf("Lookup() error = %v, want ErrProfileNotFound", err)
	}
}

func Test_ParseRejectsBadProfiles(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing name", "profiles:\n  - protocol: ssh\n    host: h\n"},
		{"missing host", "profiles:\n  - name: a\n    protocol: ssh\n"},
		{"bad protocol", "profiles:\n  - name: a\n    protocol: gopher\n    host: h\n"},
		{"duplicate", "profiles:\n  - name: a\n    protocol: ssh\n    host: h\n  - name: a\n    protocol: ssh\n    host: h\n"},
		{"not yaml", "::\nnope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.data)); !errors.Is(err, errdefs.ErrConfig) {
				t.Fatalf("Parse() error = %v, want ErrConfig", err)
			}
		})
	}
}

func Test_LoadMissingFileIsEmpty(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(s.Names()) != 0 {
		t.Fatalf("Names() = %v, want empty", s.Names())
	}
}

func Test_LoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(path, []byte(sampleProfiles), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := s.Lookup("lab-router"); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
}
