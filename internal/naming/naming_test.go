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

package naming

import (
	"strings"
	"testing"
)

func Test_RandomName(t *testing.T) {
	for i := 0; i < 100; i++ {
		name := RandomName()
		parts := strings.Split(name, "_")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			t.Fatalf("RandomName() = %q, want adjective_noun", name)
		}
	}
}

func Test_RandomID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := RandomID()
		if len(id) != 8 {
			t.Fatalf("RandomID() = %q, want 8 hex chars", id)
		}
		seen[id] = true
	}
	if len(seen) < 50 {
		t.Fatalf("RandomID() produced only %d distinct values in 100 draws", len(seen))
	}
}
