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

// Length-prefixed layout sizes
const (
	HeaderSize  = 4 // kind + subtype + length16
	TrailerSize = 2 // checksum16
	Overhead    = HeaderSize + TrailerSize
)

// Escape-framed layout markers
const (
	ESC = 0x1B // Frame start and escape byte
	ETX = 0x03 // Terminates a final packet
	ETB = 0x17 // Terminates a DATA packet with more to follow
)

// lenientChecksums lists checksum field values some camera firmware emits
// regardless of the payload. Frames carrying them are accepted unchecked.
var lenientChecksums = map[uint16]string{
	0x0000: "zero checksum",
	0xFFFF: "all-ones checksum",
}
