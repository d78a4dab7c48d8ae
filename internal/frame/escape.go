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

// EscapedLen returns the wire length of data once every ESC is doubled.
func EscapedLen(data []byte) int {
	n := len(data)
	for _, b := range data {
		if b == ESC {
			n++
		}
	}
	return n
}

// AppendEscaped appends data to dst with every ESC byte doubled.
func AppendEscaped(dst, data []byte) []byte {
	for _, b := range data {
		if b == ESC {
			dst = append(dst, ESC, ESC)
			continue
		}
		dst = append(dst, b)
	}
	return dst
}
