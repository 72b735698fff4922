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

package telnetconn

// Telnet command bytes (RFC 854).
const (
	iacSE   = 240
	iacNOP  = 241
	iacSB   = 250
	iacWILL = 251
	iacWONT = 252
	iacDO   = 253
	iacDONT = 254
	iacByte = 255
)

type negotiatorState int

const (
	stateData negotiatorState = iota
	stateIAC
	stateOption // after WILL/WONT/DO/DONT, one option byte follows
	stateSB     // inside a subnegotiation, until IAC SE
	stateSBIAC  // saw IAC inside a subnegotiation
)

// Negotiator filters Telnet option negotiation out of the inbound stream.
// It refuses every option the peer proposes (WONT/DONT), strips
// subnegotiations, and unescapes IAC IAC. State persists across chunks.
type Negotiator struct {
	state negotiatorState
	cmd   byte
}

// NewNegotiator returns a negotiator in its initial data state.
func NewNegotiator() *Negotiator {
	return &Negotiator{}
}

// Feed consumes one inbound chunk and returns the cleaned application data
// plus any negotiation replies that must be written back to the peer.
func (n *Negotiator) Feed(chunk []byte) (data, reply []byte) {
	data = make([]byte, 0, len(chunk))
	for _, b := range chunk {
		switch n.state {
		case stateData:
			if b == iacByte {
				n.state = stateIAC
			} else {
				data = append(data, b)
			}

		case stateIAC:
			switch b {
			case iacByte: // escaped 0xFF
				data = append(data, iacByte)
				n.state = stateData
			case iacWILL, iacWONT, iacDO, iacDONT:
				n.cmd = b
				n.state = stateOption
			case iacSB:
				n.state = stateSB
			default: // NOP and friends
				n.state = stateData
			}

		case stateOption:
			switch n.cmd {
			case iacDO, iacDONT:
				reply = append(reply, iacByte, iacWONT, b)
			case iacWILL, iacWONT:
				reply = append(reply, iacByte, iacDONT, b)
			}
			n.state = stateData

		case stateSB:
			if b == iacByte {
				n.state = stateSBIAC
			}

		case stateSBIAC:
			if b == iacSE {
				n.state = stateData
			} else {
				n.state = stateSB
			}
		}
	}
	return data, reply
}
