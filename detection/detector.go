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

// Package detection finds ports that may have a Sierra-protocol camera
// attached. Transport-specific detectors register themselves from their
// own packages (see detection/serial); import them for side effects.
package detection

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ZaparooProject/go-sierra/internal/syncutil"
)

// Mode is how far a detector may go to confirm a camera.
type Mode int

const (
	// Passive lists ports from their descriptors and never opens them.
	Passive Mode = iota
	// Safe opens each candidate and runs the NUL/NAK handshake at 19200 bps.
	Safe
	// Full also reads the item count register.
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Confidence is how sure a detector is that a camera sits on a port.
type Confidence int

const (
	// Low means the port exists and nothing rules a camera out
	Low Confidence = iota
	// Medium means the adapter is a kind commonly used with cameras
	Medium
	// High means a camera answered the handshake
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes one candidate camera.
type DeviceInfo struct {
	// Metadata holds extra descriptor fields, such as "vidpid" and
	// "serial" for USB adapters and "items" after a Full probe.
	Metadata map[string]string
	// Transport is the detector's transport name, e.g. "serial"
	Transport string
	// Path is what the transport opens, e.g. "/dev/ttyUSB0" or "COM3"
	Path string
	// Name is a human-readable adapter description
	Name       string
	Confidence Confidence
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s camera at %s (confidence: %s)", d.Transport, d.Path, d.Confidence)
}

// Options configures detection.
type Options struct {
	// Blocklist holds USB VID:PID pairs that are never opened
	Blocklist []string
	// IgnorePaths holds port paths that are skipped, e.g. a modem on COM1
	IgnorePaths []string
	// Transports limits detection to these detectors (empty = all)
	Transports []string
	// CacheTTL is how long cached results stay valid
	CacheTTL time.Duration
	// Timeout bounds the whole detection run
	Timeout time.Duration
	Mode    Mode
	// EnableCache reuses results from a recent run
	EnableCache bool
}

// DefaultOptions probes safely with a short cache.
func DefaultOptions() Options {
	return Options{
		Mode:        Safe,
		Timeout:     10 * time.Second,
		Blocklist:   DefaultBlocklist(),
		EnableCache: true,
		CacheTTL:    30 * time.Second,
	}
}

// Detector finds candidate cameras on one transport class.
type Detector interface {
	// Detect searches for devices using the given options
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	// Transport returns the transport name this detector handles
	Transport() string
}

// Errors
var (
	// ErrNoDevicesFound means no detector found a candidate
	ErrNoDevicesFound = errors.New("no Sierra cameras found")
	// ErrDetectionTimeout means detection ran past its deadline
	ErrDetectionTimeout = errors.New("detection timeout")
	// ErrNoDetectors means no detector matches the requested transports
	ErrNoDetectors = errors.New("no detectors available for requested transports")
)

var (
	registryMu syncutil.RWMutex
	registry   []Detector
)

// RegisterDetector adds a detector. A detector for an already registered
// transport replaces it.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()

	for i, existing := range registry {
		if existing.Transport() == d.Transport() {
			registry[i] = d
			return
		}
	}
	registry = append(registry, d)
}

// Detectors returns the registered detectors for the given transports, or
// all of them when transports is empty.
func Detectors(transports []string) []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var out []Detector
	for _, d := range registry {
		if len(transports) == 0 || slices.Contains(transports, d.Transport()) {
			out = append(out, d)
		}
	}
	return out
}

type detectionResult struct {
	err     error
	devices []DeviceInfo
}

// DetectAll runs every selected detector in parallel and merges their
// results, best confidence first. Devices found by one detector are
// returned even when another fails.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	detectors := Detectors(opts.Transports)
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results := make(chan detectionResult, len(detectors))
	for _, d := range detectors {
		go func() {
			results <- runDetector(ctx, d, opts)
		}()
	}

	var devices []DeviceInfo
	var errs []error
	for range detectors {
		select {
		case res := <-results:
			if res.err != nil {
				errs = append(errs, res.err)
				continue
			}
			devices = append(devices, res.devices...)
		case <-ctx.Done():
			return nil, ErrDetectionTimeout
		}
	}

	if len(devices) > 0 {
		slices.SortStableFunc(devices, func(a, b DeviceInfo) int {
			return int(b.Confidence) - int(a.Confidence)
		})
		return devices, nil
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoDevicesFound
}

func runDetector(ctx context.Context, d Detector, opts *Options) detectionResult {
	if opts.EnableCache {
		if cached, ok := getCached(d.Transport(), opts.Mode, opts.CacheTTL); ok {
			return detectionResult{devices: FilterDevices(cached, opts)}
		}
	}

	devices, err := d.Detect(ctx, opts)
	if err != nil && !errors.Is(err, ErrNoDevicesFound) {
		return detectionResult{err: fmt.Errorf("%s detection: %w", d.Transport(), err)}
	}

	if opts.EnableCache {
		if len(devices) > 0 {
			setCached(d.Transport(), opts.Mode, devices)
		} else {
			// A camera that was unplugged must not linger until the TTL.
			clearCacheForTransport(d.Transport())
		}
	}
	return detectionResult{devices: devices}
}

// FilterDevices drops devices on ignored paths or with blocked VID:PIDs.
// Cached results go through it because they bypass Detect.
func FilterDevices(devices []DeviceInfo, opts *Options) []DeviceInfo {
	if len(opts.IgnorePaths) == 0 && len(opts.Blocklist) == 0 {
		return devices
	}

	var filtered []DeviceInfo
	for _, device := range devices {
		if IsPathIgnored(device.Path, opts.IgnorePaths) {
			continue
		}
		if vidpid, ok := device.Metadata["vidpid"]; ok && IsBlocked(vidpid, opts.Blocklist) {
			continue
		}
		filtered = append(filtered, device)
	}
	return filtered
}

// ClearDetectionCache removes all cached detection results
func ClearDetectionCache() {
	clearCache()
}

// ClearDetectionCacheForTransport removes cached results for one transport
func ClearDetectionCacheForTransport(transport string) {
	clearCacheForTransport(transport)
}
