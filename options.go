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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a Camera.
type Config struct {
	// RetryConfig is the connect handshake retry policy
	RetryConfig *RetryConfig
	// Progress receives bulk transfer progress, if set
	Progress ProgressFunc
	// Profile is the wire convention; the zero value picks one from the
	// transport type
	Profile Profile
	// Timeout is the per-read timeout for ordinary exchanges
	Timeout time.Duration
	// CaptureTimeout is the read timeout while capturing or erasing
	CaptureTimeout time.Duration
	// BitRate is the serial speed negotiated after connecting
	BitRate int
	// TraceSize is the number of wire entries kept for error reports
	TraceSize int
}

// DefaultConfig returns the default camera configuration
func DefaultConfig() *Config {
	return &Config{
		RetryConfig:    DefaultRetryConfig(),
		Timeout:        DefaultTimeout,
		CaptureTimeout: DefaultCaptureTimeout,
		BitRate:        DefaultBitRate,
		TraceSize:      32,
	}
}

// fileConfig is the YAML shape of Config.
type fileConfig struct {
	Retry          *RetryConfig  `yaml:"retry"`
	Profile        string        `yaml:"profile"`
	Timeout        time.Duration `yaml:"timeout"`
	CaptureTimeout time.Duration `yaml:"capture_timeout"`
	BitRate        int           `yaml:"bit_rate"`
	TraceSize      int           `yaml:"trace_size"`
}

// LoadConfig reads a YAML camera configuration from path. Fields missing
// from the file keep their defaults; a missing file yields DefaultConfig.
//
//	profile: serial
//	timeout: 2s
//	bit_rate: 115200
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if fc.Profile != "" {
		profile, err := ProfileByName(fc.Profile)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Profile = profile
	}
	if fc.Timeout > 0 {
		cfg.Timeout = fc.Timeout
	}
	if fc.CaptureTimeout > 0 {
		cfg.CaptureTimeout = fc.CaptureTimeout
	}
	if fc.BitRate > 0 {
		cfg.BitRate = fc.BitRate
	}
	if fc.TraceSize > 0 {
		cfg.TraceSize = fc.TraceSize
	}
	if fc.Retry != nil {
		cfg.RetryConfig = fc.Retry
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the camera cannot use.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, c.Timeout)
	}
	if c.CaptureTimeout < c.Timeout {
		return fmt.Errorf("%w: capture timeout %v is shorter than timeout %v",
			ErrInvalidParameter, c.CaptureTimeout, c.Timeout)
	}
	if _, ok := bitRateCode(c.BitRate); !ok {
		return fmt.Errorf("%w: unsupported bit rate %d", ErrInvalidParameter, c.BitRate)
	}
	return nil
}

// Option configures a Camera
type Option func(*Camera) error

// WithConfig replaces the whole configuration.
func WithConfig(cfg *Config) Option {
	return func(c *Camera) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidParameter)
		}
		copied := *cfg
		c.config = &copied
		return nil
	}
}

// WithProfile forces a wire profile instead of deriving it from the transport.
func WithProfile(profile Profile) Option {
	return func(c *Camera) error {
		if profile.MaxPayload <= 0 {
			return fmt.Errorf("%w: profile %q has no payload limit", ErrInvalidParameter, profile.Name)
		}
		c.config.Profile = profile
		return nil
	}
}

// WithTimeout sets the per-read timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Camera) error {
		c.config.Timeout = timeout
		return nil
	}
}

// WithCaptureTimeout sets the read timeout used while the camera captures
// or erases.
func WithCaptureTimeout(timeout time.Duration) Option {
	return func(c *Camera) error {
		c.config.CaptureTimeout = timeout
		return nil
	}
}

// WithBitRate sets the serial speed negotiated after connecting.
func WithBitRate(rate int) Option {
	return func(c *Camera) error {
		c.config.BitRate = rate
		return nil
	}
}

// WithProgress installs a bulk transfer progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Camera) error {
		c.config.Progress = fn
		return nil
	}
}

// WithRetryConfig sets the connect retry policy.
func WithRetryConfig(rc *RetryConfig) Option {
	return func(c *Camera) error {
		c.config.RetryConfig = rc
		return nil
	}
}

// WithTraceSize sets how many wire entries are kept for error reports.
func WithTraceSize(n int) Option {
	return func(c *Camera) error {
		c.config.TraceSize = n
		return nil
	}
}
