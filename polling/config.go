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

package polling

import "time"

// SleepRecoveryConfig configures recovery after the host sleeps. A serial
// camera usually drops its session (and often powers off) while the host is
// suspended, so the first poll after wake-up reconnects before reading.
type SleepRecoveryConfig struct {
	// Enabled turns sleep detection and recovery on
	Enabled bool

	// TimeDiscontinuityThreshold is the elapsed time beyond the poll interval
	// that counts as a sleep. Default: 2 seconds
	TimeDiscontinuityThreshold time.Duration

	// MaxRecoveryAttempts is the number of reconnect attempts before the
	// camera is reported lost. Default: 3
	MaxRecoveryAttempts int

	// RecoveryBackoff is the delay between reconnect attempts
	RecoveryBackoff time.Duration
}

// DefaultSleepRecoveryConfig returns the default sleep recovery settings
func DefaultSleepRecoveryConfig() SleepRecoveryConfig {
	return SleepRecoveryConfig{
		Enabled:                    true,
		TimeDiscontinuityThreshold: 2 * time.Second,
		MaxRecoveryAttempts:        3,
		RecoveryBackoff:            500 * time.Millisecond,
	}
}

// DetectSleep reports whether elapsed exceeds pollInterval plus the
// discontinuity threshold.
func (cfg SleepRecoveryConfig) DetectSleep(elapsed, pollInterval time.Duration) bool {
	if !cfg.Enabled {
		return false
	}
	return elapsed > pollInterval+cfg.TimeDiscontinuityThreshold
}

// Config holds watcher configuration
type Config struct {
	// PollInterval is the delay between item count reads. Each read is a
	// full command exchange, so intervals below a second keep a 19200 bps
	// link busy.
	PollInterval time.Duration
	// SleepRecovery configures reconnection after host sleep or link loss
	SleepRecovery SleepRecoveryConfig
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  2 * time.Second,
		SleepRecovery: DefaultSleepRecoveryConfig(),
	}
}
