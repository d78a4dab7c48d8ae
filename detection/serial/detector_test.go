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

//nolint:paralleltest // Tests replace package-level listPortsFn and probeFn
package serial

import (
	"context"
	"errors"
	"testing"

	sierra "github.com/ZaparooProject/go-sierra"
	"github.com/ZaparooProject/go-sierra/detection"
	virt "github.com/ZaparooProject/go-sierra/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPorts(t *testing.T, ports []port, probe func(string, detection.Mode) probeResult) {
	t.Helper()
	origList, origProbe := listPortsFn, probeFn
	t.Cleanup(func() {
		listPortsFn, probeFn = origList, origProbe
	})
	listPortsFn = func() ([]port, error) { return ports, nil }
	probeFn = func(_ context.Context, path string, mode detection.Mode) probeResult {
		return probe(path, mode)
	}
}

var testPorts = []port{
	{Path: "/dev/ttyUSB0", Name: "FT232R", VIDPID: "0403:6001", IsUSB: true},
	{Path: "/dev/ttyUSB1", Name: "Uno", VIDPID: "2341:0043", IsUSB: true},
	{Path: "/dev/ttyS0", Name: "ttyS0"},
	{Path: "/dev/ttyUSB2", Name: "Generic", VIDPID: "AAAA:BBBB", Manufacturer: "Prolific Technology", IsUSB: true},
}

func TestDetect_PassiveReportsCameraAdaptersWithoutOpening(t *testing.T) {
	stubPorts(t, testPorts, func(string, detection.Mode) probeResult {
		t.Fatal("passive detection must not probe")
		return probeResult{}
	})

	opts := detection.Options{Mode: detection.Passive, Blocklist: detection.DefaultBlocklist()}
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "/dev/ttyUSB0", devices[0].Path)
	assert.Equal(t, detection.Medium, devices[0].Confidence)
	assert.Equal(t, "0403:6001", devices[0].Metadata["vidpid"])
	assert.Equal(t, "/dev/ttyUSB2", devices[1].Path, "matched by manufacturer")
}

func TestDetect_SafeReportsOnlyAnsweringPorts(t *testing.T) {
	var probed []string
	stubPorts(t, testPorts, func(path string, _ detection.Mode) probeResult {
		probed = append(probed, path)
		return probeResult{ok: path == "/dev/ttyS0"}
	})

	opts := detection.Options{
		Mode:        detection.Safe,
		Blocklist:   detection.DefaultBlocklist(),
		IgnorePaths: []string{"/dev/ttyUSB2"},
	}
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyS0", devices[0].Path)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyS0"}, probed, "blocked and ignored ports are never opened")
}

func TestDetect_FullRecordsItemCount(t *testing.T) {
	stubPorts(t, testPorts[:1], func(_ string, mode detection.Mode) probeResult {
		assert.Equal(t, detection.Full, mode)
		return probeResult{ok: true, items: 12}
	})

	devices, err := New().Detect(context.Background(), &detection.Options{Mode: detection.Full})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "12", devices[0].Metadata["items"])
}

func TestDetect_NothingFound(t *testing.T) {
	stubPorts(t, testPorts, func(string, detection.Mode) probeResult { return probeResult{} })

	_, err := New().Detect(context.Background(), &detection.Options{Mode: detection.Safe})
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetect_EnumerationFailure(t *testing.T) {
	origList := listPortsFn
	t.Cleanup(func() { listPortsFn = origList })
	listPortsFn = func() ([]port, error) { return nil, errors.New("no sysfs") }

	_, err := New().Detect(context.Background(), &detection.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sysfs")
}

func TestProbeTransport(t *testing.T) {
	cam := virt.NewVirtualCamera(sierra.ProfileSerial)
	cam.AddItem(virt.VirtualItem{Filename: "A.JPG", Image: []byte{1}})
	cam.AddItem(virt.VirtualItem{Filename: "B.JPG", Image: []byte{2}})

	res := probeTransport(context.Background(), cam, detection.Full)
	assert.True(t, res.ok)
	assert.Equal(t, 2, res.items)
	assert.Contains(t, cam.Actions(), sierra.ActionEnd, "probe closes the session")

	silent := sierra.NewMockTransport()
	res = probeTransport(context.Background(), silent, detection.Safe)
	assert.False(t, res.ok)
	assert.Len(t, silent.Written(), 1, "a single NUL, no retries")
}

func TestDetectorRegistered(t *testing.T) {
	found := detection.Detectors([]string{TransportName})
	require.Len(t, found, 1)
	assert.Equal(t, TransportName, found[0].Transport())
}
