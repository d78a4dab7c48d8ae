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
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
	delay     time.Duration
	calls     atomic.Int32
}

func (f *fakeDetector) Detect(_ context.Context, _ *Options) ([]DeviceInfo, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.devices, f.err
}

func (f *fakeDetector) Transport() string {
	return f.transport
}

func TestModeAndConfidenceStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Mode(0), Passive)
	assert.Equal(t, "safe", Safe.String())
	assert.Equal(t, "full", Full.String())
	assert.Equal(t, "mode(7)", Mode(7).String())

	assert.Equal(t, Confidence(0), Low)
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "unknown", Confidence(99).String())
}

func TestDeviceInfo_String(t *testing.T) {
	t.Parallel()

	d := DeviceInfo{Transport: "serial", Path: "/dev/ttyUSB0", Confidence: Medium}
	assert.Equal(t, "serial camera at /dev/ttyUSB0 (confidence: medium)", d.String())
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Equal(t, Safe, opts.Mode)
	assert.True(t, opts.EnableCache)
	assert.Positive(t, opts.Timeout)
	assert.Equal(t, DefaultBlocklist(), opts.Blocklist)
}

func TestRegisterDetector_ReplacesSameTransport(t *testing.T) {
	t.Parallel()

	first := &fakeDetector{transport: "test-replace"}
	second := &fakeDetector{transport: "test-replace"}
	RegisterDetector(first)
	RegisterDetector(second)

	found := Detectors([]string{"test-replace"})
	require.Len(t, found, 1)
	assert.Same(t, second, found[0])
}

func TestDetectAll_MergesAndSorts(t *testing.T) {
	t.Parallel()

	RegisterDetector(&fakeDetector{transport: "test-merge-a", devices: []DeviceInfo{
		{Transport: "test-merge-a", Path: "/dev/a", Confidence: Low},
	}})
	RegisterDetector(&fakeDetector{transport: "test-merge-b", devices: []DeviceInfo{
		{Transport: "test-merge-b", Path: "/dev/b", Confidence: High},
	}})
	RegisterDetector(&fakeDetector{transport: "test-merge-c", err: errors.New("bus exploded")})

	devices, err := DetectAll(context.Background(), &Options{
		Transports: []string{"test-merge-a", "test-merge-b", "test-merge-c"},
	})
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/b", devices[0].Path)
	assert.Equal(t, "/dev/a", devices[1].Path)
}

func TestDetectAll_Errors(t *testing.T) {
	t.Parallel()

	_, err := DetectAll(context.Background(), &Options{Transports: []string{"test-missing"}})
	require.ErrorIs(t, err, ErrNoDetectors)

	RegisterDetector(&fakeDetector{transport: "test-empty", err: ErrNoDevicesFound})
	_, err = DetectAll(context.Background(), &Options{Transports: []string{"test-empty"}})
	require.ErrorIs(t, err, ErrNoDevicesFound)

	boom := errors.New("permission denied")
	RegisterDetector(&fakeDetector{transport: "test-failing", err: boom})
	_, err = DetectAll(context.Background(), &Options{Transports: []string{"test-failing"}})
	require.ErrorIs(t, err, boom)
}

func TestDetectAll_Timeout(t *testing.T) {
	t.Parallel()

	RegisterDetector(&fakeDetector{transport: "test-slow", delay: time.Second})
	_, err := DetectAll(context.Background(), &Options{
		Transports: []string{"test-slow"},
		Timeout:    20 * time.Millisecond,
	})
	require.ErrorIs(t, err, ErrDetectionTimeout)
}

func TestDetectAll_Cache(t *testing.T) {
	t.Parallel()

	d := &fakeDetector{transport: "test-cache", devices: []DeviceInfo{
		{Transport: "test-cache", Path: "/dev/ttyUSB0", Metadata: map[string]string{"vidpid": "067B:2303"}},
		{Transport: "test-cache", Path: "/dev/ttyUSB1"},
	}}
	RegisterDetector(d)
	opts := &Options{Transports: []string{"test-cache"}, EnableCache: true, CacheTTL: time.Minute, Mode: Safe}

	_, err := DetectAll(context.Background(), opts)
	require.NoError(t, err)
	_, err = DetectAll(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, int32(1), d.calls.Load(), "second run must come from the cache")

	filtered := *opts
	filtered.IgnorePaths = []string{"/dev/ttyUSB1"}
	filtered.Blocklist = []string{"067b:2303"}
	_, err = DetectAll(context.Background(), &filtered)
	require.ErrorIs(t, err, ErrNoDevicesFound, "cached results are filtered too")

	stronger := *opts
	stronger.Mode = Full
	_, err = DetectAll(context.Background(), &stronger)
	require.NoError(t, err)
	assert.Equal(t, int32(2), d.calls.Load(), "a safe listing does not satisfy a full probe")

	ClearDetectionCacheForTransport("test-cache")
	_, err = DetectAll(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, int32(3), d.calls.Load())
}

func TestFilterDevices(t *testing.T) {
	t.Parallel()

	devices := []DeviceInfo{
		{Path: "/dev/ttyUSB0", Metadata: map[string]string{"vidpid": "2341:0043"}},
		{Path: "/dev/ttyUSB1", Metadata: map[string]string{"vidpid": "067B:2303"}},
		{Path: "COM3"},
	}

	assert.Len(t, FilterDevices(devices, &Options{}), 3)

	got := FilterDevices(devices, &Options{Blocklist: DefaultBlocklist(), IgnorePaths: []string{"com3"}})
	require.Len(t, got, 1)
	assert.Equal(t, "/dev/ttyUSB1", got[0].Path)
}
