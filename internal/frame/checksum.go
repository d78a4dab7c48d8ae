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

package frame

// Sum16 computes the additive 16-bit checksum of the payload bytes.
func Sum16(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}

// XOR8 computes the XOR checksum used by escape-framed packets. The
// terminator byte is folded in after the payload.
func XOR8(data []byte, terminator byte) byte {
	chk := terminator
	for _, b := range data {
		chk ^= b
	}
	return chk
}

// IsLenientChecksum reports whether a received checksum field is one of the
// known firmware "don't care" values.
func IsLenientChecksum(field uint16) bool {
	_, ok := lenientChecksums[field]
	return ok
}

// VerifySum16 checks a received checksum field against the payload,
// honouring the lenient values. The second result is true when the frame was
// accepted only because of the exception table.
func VerifySum16(payload []byte, field uint16) (ok, lenient bool) {
	if Sum16(payload) == field {
		return true, false
	}
	if IsLenientChecksum(field) {
		return true, true
	}
	return false, false
}
