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

package detection

import (
	"path/filepath"
	"strings"
)

// DefaultBlocklist lists USB serial devices that are never opened during
// detection. Boards in it reset or start a bootloader when their port is
// opened. Format: VID:PID in hexadecimal, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"2341:0043", // Arduino Uno
		"2341:0001", // Arduino Uno (early)
		"2341:8036", // Arduino Leonardo
		"2E8A:0005", // Raspberry Pi Pico MicroPython
		"1915:520F", // Nordic nRF52 bootloader
	}
}

// CameraAdapters lists USB-serial bridges that shipped with, or are
// commonly used for, Sierra-protocol cameras. Ports behind them are
// reported with Medium confidence even in Passive mode.
func CameraAdapters() []string {
	return []string{
		"067B:2303", // Prolific PL2303
		"0403:6001", // FTDI FT232R
		"10C4:EA60", // Silicon Labs CP210x
		"1A86:7523", // WCH CH340
	}
}

// IsBlocked reports whether vidpid appears in list.
func IsBlocked(vidpid string, list []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}
	for _, entry := range list {
		if vidpid == strings.ToUpper(strings.TrimSpace(entry)) {
			return true
		}
	}
	return false
}

// ParseVIDPID extracts VID:PID from the descriptor formats seen across
// platforms: "VID:1234 PID:5678", "vendor=1234 product=5678",
// "USB\VID_1234&PID_5678" and plain "1234:5678". It returns "" when
// no pair is found.
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(descriptor)

	vid := hexAfter(descriptor, "VID:", "VID_", "VID=", "VENDOR=")
	pid := hexAfter(descriptor, "PID:", "PID_", "PID=", "PRODUCT=")
	if vid != "" && pid != "" {
		return vid + ":" + pid
	}

	if parts := strings.Split(descriptor, ":"); len(parts) == 2 && isHex(parts[0]) && isHex(parts[1]) {
		return descriptor
	}
	return ""
}

// hexAfter returns the hex digits following the first marker found.
func hexAfter(s string, markers ...string) string {
	for _, m := range markers {
		if idx := strings.Index(s, m); idx >= 0 {
			return leadingHex(s[idx+len(m):])
		}
	}
	return ""
}

func leadingHex(s string) string {
	end := 0
	for end < len(s) && isHexDigit(rune(s[end])) {
		end++
	}
	return s[:end]
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'F') || (r >= 'a' && r <= 'f')
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isHexDigit(r) {
			return false
		}
	}
	return true
}

// IsPathIgnored reports whether devicePath matches one of ignorePaths,
// exactly or after cleaning and case folding.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p == "" {
			continue
		}
		if p == devicePath || normalizedPath(p) == device {
			return true
		}
	}
	return false
}

// normalizedPath cleans a path and folds case, since Windows port names
// are case-insensitive.
func normalizedPath(path string) string {
	return strings.ToLower(filepath.Clean(path))
}
