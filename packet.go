// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package sierra

import (
	"bytes"
	"fmt"
)

// Kind is the first byte of every Sierra packet.
type Kind byte

// Packet kinds. Everything except COMMAND, DATA and DATA_END is a single
// control byte on the wire.
const (
	KindNUL          Kind = 0x00
	KindData         Kind = 0x02
	KindDataEnd      Kind = 0x03
	KindENQ          Kind = 0x05
	KindACK          Kind = 0x06
	KindInvalid      Kind = 0x11
	KindNAK          Kind = 0x15
	KindCancel       Kind = 0x18
	KindCommand      Kind = 0x1b
	KindWrongSpeed   Kind = 0x8c
	KindSessionError Kind = 0xfc
	KindSessionEnd   Kind = 0xff
)

// COMMAND sub-types. Serial sessions flag their very first COMMAND.
const (
	SubtypeFirstCommand byte = 0x53
	SubtypeCommand      byte = 0x43
)

// Opcodes carried in byte 0 of a COMMAND payload.
const (
	opSetInt       byte = 0x00
	opGetInt       byte = 0x01
	opAction       byte = 0x02
	opSetString    byte = 0x03
	opGetString    byte = 0x04
	opGetStringExt byte = 0x06
)

// String returns the protocol name of the kind
func (k Kind) String() string {
	switch k {
	case KindNUL:
		return "NUL"
	case KindData:
		return "DATA"
	case KindDataEnd:
		return "DATA_END"
	case KindENQ:
		return "ENQ"
	case KindACK:
		return "ACK"
	case KindInvalid:
		return "INVALID"
	case KindNAK:
		return "NAK"
	case KindCancel:
		return "CANCEL"
	case KindCommand:
		return "COMMAND"
	case KindWrongSpeed:
		return "WRONG_SPEED"
	case KindSessionError:
		return "SESSION_ERROR"
	case KindSessionEnd:
		return "SESSION_END"
	default:
		return fmt.Sprintf("0x%02X", byte(k))
	}
}

// IsKnown reports whether k is one of the twelve defined kinds.
func (k Kind) IsKnown() bool {
	switch k {
	case KindNUL, KindData, KindDataEnd, KindENQ, KindACK, KindInvalid, KindNAK,
		KindCancel, KindCommand, KindWrongSpeed, KindSessionError, KindSessionEnd:
		return true
	default:
		return false
	}
}

// IsMultiByte reports whether packets of this kind carry a header and payload.
func (k Kind) IsMultiByte() bool {
	return k == KindCommand || k == KindData || k == KindDataEnd
}

// IsSessionFault reports whether the device is telling us our session is gone.
func (k Kind) IsSessionFault() bool {
	return k == KindSessionEnd || k == KindSessionError || k == KindWrongSpeed
}

// Packet is one protocol unit. Subtype is the COMMAND sub-type for commands
// and the chunk sequence number for DATA and DATA_END. Control kinds ignore
// both Subtype and Payload.
type Packet struct {
	Payload []byte
	Kind    Kind
	Subtype byte
}

// Control returns a single-byte control packet.
func Control(kind Kind) *Packet {
	return &Packet{Kind: kind}
}

// NewCommand builds a COMMAND packet.
func NewCommand(subtype byte, payload []byte) *Packet {
	return &Packet{Kind: KindCommand, Subtype: subtype, Payload: payload}
}

// NewData builds a DATA packet, or DATA_END when last is set.
func NewData(seq byte, payload []byte, last bool) *Packet {
	kind := KindData
	if last {
		kind = KindDataEnd
	}
	return &Packet{Kind: kind, Subtype: seq, Payload: payload}
}

// Equal compares kind, subtype and payload. Control packets compare by kind only.
func (p *Packet) Equal(o *Packet) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Kind != o.Kind {
		return false
	}
	if !p.Kind.IsMultiByte() {
		return true
	}
	return p.Subtype == o.Subtype && bytes.Equal(p.Payload, o.Payload)
}

func (p *Packet) String() string {
	if !p.Kind.IsMultiByte() {
		return p.Kind.String()
	}
	return fmt.Sprintf("%s[%02X] %d bytes", p.Kind, p.Subtype, len(p.Payload))
}
