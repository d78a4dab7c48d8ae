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

import "time"

// Connect handshake policy.
const (
	// ConnectAttempts is the number of NUL probes sent before giving up.
	ConnectAttempts = 3
	// ConnectInitialBackoff is the delay between the first two probes.
	ConnectInitialBackoff = 50 * time.Millisecond
	// ConnectMaxBackoff caps the delay between probes.
	ConnectMaxBackoff = 250 * time.Millisecond
	// ConnectBackoffMultiplier is the exponential backoff multiplier.
	ConnectBackoffMultiplier = 2.0
	// ConnectJitter is the random jitter factor (0.0-1.0).
	ConnectJitter = 0.1
	// ConnectRetryTimeout bounds the whole handshake.
	ConnectRetryTimeout = 15 * time.Second
)

// Link-level recovery bounds.
const (
	// ReadAttempts is how many times a reply is awaited, with a NAK sent
	// before every attempt after the first.
	ReadAttempts = 3
	// NAKResends is how many times a packet is resent after the camera NAKs it.
	NAKResends = 2
	// SessionRecoveries is how many reconnect-and-replay cycles an exchange
	// may go through before the session fault is returned.
	SessionRecoveries = 2
)

// Timing defaults.
const (
	// DefaultTimeout is the per-read timeout for ordinary exchanges.
	DefaultTimeout = 2 * time.Second
	// DefaultCaptureTimeout is the read timeout while the camera captures
	// or erases, since it acknowledges only when done.
	DefaultCaptureTimeout = 20 * time.Second
	// DefaultBitRate is the rate every serial session starts at.
	DefaultBitRate = 19200
	// SpeedSettleDelay is the pause after switching the line speed.
	SpeedSettleDelay = 10 * time.Millisecond
)
