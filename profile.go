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
	"fmt"
	"strings"
)

// Framing selects the on-wire packet layout.
type Framing int

const (
	// FramingLengthPrefixed is the primary Sierra layout:
	// [kind][subtype][length LE16][payload][additive checksum LE16].
	FramingLengthPrefixed Framing = iota
	// FramingEscaped is the ESC-framed variant used by some family members:
	// [ESC][kind][seq][payload][ESC][ETX|ETB][xor checksum], ESC doubled in the body.
	FramingEscaped
)

func (f Framing) String() string {
	switch f {
	case FramingLengthPrefixed:
		return "length-prefixed"
	case FramingEscaped:
		return "escaped"
	default:
		return fmt.Sprintf("framing(%d)", int(f))
	}
}

// Payload size limits for the two transport classes.
const (
	SerialMaxPayload = 2048
	USBMaxPayload    = 32 * 1024
)

// Profile describes one on-wire convention. Profiles are chosen once per
// connection; the codec takes a Profile value and is otherwise stateless.
type Profile struct {
	Name       string
	Framing    Framing
	MaxPayload int
	// Handshake is set for serial-class links that need the NUL/NAK probe,
	// bit-rate negotiation and the first-command sub-type.
	Handshake bool
	// ExtendedBulk selects opcode 0x06 (32 KiB packets) for bulk reads.
	ExtendedBulk bool
}

// The closed set of profiles present in the camera family.
var (
	ProfileSerial = Profile{
		Name:       "serial",
		Framing:    FramingLengthPrefixed,
		MaxPayload: SerialMaxPayload,
		Handshake:  true,
	}
	ProfileUSB = Profile{
		Name:         "usb",
		Framing:      FramingLengthPrefixed,
		MaxPayload:   USBMaxPayload,
		ExtendedBulk: true,
	}
	ProfileSerialEscaped = Profile{
		Name:       "serial-escaped",
		Framing:    FramingEscaped,
		MaxPayload: SerialMaxPayload,
		Handshake:  true,
	}
)

// ProfileByName looks up a profile by its configuration name.
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileSerial.Name:
		return ProfileSerial, nil
	case ProfileUSB.Name:
		return ProfileUSB, nil
	case ProfileSerialEscaped.Name:
		return ProfileSerialEscaped, nil
	default:
		return Profile{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidParameter, name)
	}
}

// ProfileForTransport picks the default profile for a transport class.
func ProfileForTransport(t TransportType) Profile {
	if t == TransportUSB {
		return ProfileUSB
	}
	return ProfileSerial
}

// commandSubtype returns the COMMAND sub-type for the next command.
func (p Profile) commandSubtype(first bool) byte {
	if first && p.Handshake {
		return SubtypeFirstCommand
	}
	return SubtypeCommand
}

// bulkOpcode returns the get-string opcode for this profile.
func (p Profile) bulkOpcode() byte {
	if p.ExtendedBulk {
		return opGetStringExt
	}
	return opGetString
}
