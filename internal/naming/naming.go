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

// Package naming generates memorable default names for sessions the
// caller did not name.
package naming

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	mrand "math/rand"
)

//nolint:gochecknoglobals // word lists
var left = []string{
	"amber", "attentive", "bold", "brisk", "calm", "candid", "clever", "coastal", "copper", "crisp",
	"curious", "daring", "deep", "direct", "eager", "early", "earnest", "faint", "fast", "fleet",
	"fluent", "frank", "gentle", "glacial", "granite", "hidden", "humming", "idle", "iron", "keen",
	"late", "lively", "lonely", "lucid", "mellow", "midnight", "nimble", "northern", "opal", "pale",
	"patient", "plain", "polar", "prompt", "quiet", "rapid", "remote", "restless", "rough", "rustic",
	"sandy", "sharp", "silent", "sleepy", "slow", "smooth", "sober", "solid", "spare", "steady",
	"stern", "still", "stony", "stormy", "strict", "subtle", "sunny", "swift", "tidal", "tidy",
	"upland", "vivid", "wakeful", "warm", "watchful", "western", "windy", "wired", "wiry", "wry",
}

//nolint:gochecknoglobals // word lists
var right = []string{
	"anchor", "antenna", "aerial", "basin", "beacon", "bridge", "buffer", "cable", "canal", "channel",
	"circuit", "conduit", "console", "current", "dial", "ferry", "fiber", "fjord", "gate", "harbor",
	"headland", "inlet", "jetty", "junction", "lantern", "ledger", "lighthouse", "link", "mast", "meridian",
	"mooring", "node", "outpost", "packet", "pier", "port", "prompt", "pulse", "quay", "relay",
	"ridge", "router", "rudder", "schooner", "semaphore", "signal", "socket", "sound", "spindle", "strait",
	"switch", "telegraph", "terminal", "tiller", "tower", "transit", "trunk", "tunnel", "wharf", "wire",
}

func RandomName() string {
	r := mrand.New(mrand.NewSource(randSeed()))
	l := left[r.Intn(len(left))]
	rn := right[r.Intn(len(right))]
	return l + "_" + rn
}

func randSeed() int64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err == nil {
		return int64(binary.LittleEndian.Uint64(b[:]))
	}
	return mrand.Int63()
}

// RandomID is a short hex tag for log correlation.
func RandomID() string {
	const length = 4
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
