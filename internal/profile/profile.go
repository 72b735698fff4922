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

// Package profile reads the named connection targets a user keeps in
// their profiles file, so `bspterm connect <name>` works without
// retyping host and credentials.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tu10ng/bspterm/internal/errdefs"
	"github.com/tu10ng/bspterm/pkg/api"
)

// Profile is one saved target.
type Profile struct {
	Name           string `yaml:"name"`
	Protocol       string `yaml:"protocol"` // "ssh" or "telnet"
	Host           string `yaml:"host"`
	Port           int    `yaml:"port,omitempty"`
	Username       string `yaml:"username,omitempty"`
	Password       string `yaml:"password,omitempty"`
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty"`
	Passphrase     string `yaml:"passphrase,omitempty"`
}

type document struct {
	Profiles []Profile `yaml:"profiles"`
}

// Store is a loaded, validated profiles file.
type Store struct {
	profiles map[string]Profile
	order    []string
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot determine config dir: %v", errdefs.ErrConfig, err)
	}
	return filepath.Join(dir, "bspterm", "profiles.yaml"), nil
}

// Load parses and validates the profiles file at path. A missing file
// yields an empty store, not an error.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Store{profiles: map[string]Profile{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errdefs.ErrConfig, path, err)
	}
	return Parse(data)
}

// Parse validates raw YAML profile data.
func Parse(data []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errdefs.ErrConfig, err)
	}

	s := &Store{profiles: make(map[string]Profile, len(doc.Profiles))}
	for i, p := range doc.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: profile %d: name is required", errdefs.ErrConfig, i)
		}
		if p.Host == "" {
			return nil, fmt.Errorf("%w: profile %q: host is required", errdefs.ErrConfig, p.Name)
		}
		switch api.Protocol(p.Protocol) {
		case api.ProtocolSSH:
			if p.Port == 0 {
				p.Port = 22
			}
		case api.ProtocolTelnet:
			if p.Port == 0 {
				p.Port = 23
			}
		default:
			return nil, fmt.Errorf("%w: profile %q: unknown protocol %q", errdefs.ErrConfig, p.Name, p.Protocol)
		}
		if _, dup := s.profiles[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate profile %q", errdefs.ErrConfig, p.Name)
		}
		s.profiles[p.Name] = p
		s.order = append(s.order, p.Name)
	}
	return s, nil
}

// Lookup returns the named profile.
func (s *Store) Lookup(name string) (Profile, error) {
	p, ok := s.profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", errdefs.ErrProfileNotFound, name)
	}
	return p, nil
}

// Names lists profiles in file order.
func (s *Store) Names() []string {
	return append([]string(nil), s.order...)
}
