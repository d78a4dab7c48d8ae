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

// Package serial registers a detector for cameras on serial ports. Import
// it for side effects:
//
//	import _ "github.com/ZaparooProject/go-sierra/detection/serial"
package serial

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	sierra "github.com/ZaparooProject/go-sierra"
	"github.com/ZaparooProject/go-sierra/detection"
	"github.com/ZaparooProject/go-sierra/transport/serial"
	"go.bug.st/serial/enumerator"
)

// TransportName is the detection transport name of this detector.
const TransportName = "serial"

// probeTimeout bounds one port probe.
const probeTimeout = 3 * time.Second

type detector struct{}

// New creates a serial port detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport name
func (*detector) Transport() string {
	return TransportName
}

// port is an enumerated serial port with its USB descriptor, if any.
type port struct {
	Path         string
	Name         string
	VIDPID       string
	Manufacturer string
	SerialNumber string
	IsUSB        bool
}

// probeResult is what a probe learned about a port.
type probeResult struct {
	items int
	ok    bool
}

// Overridable in tests.
var (
	listPortsFn = listPorts
	probeFn     = probe
)

// Detect lists serial ports and, outside Passive mode, runs the camera
// handshake on each candidate.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPortsFn()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for i := range ports {
		if ctx.Err() != nil {
			break
		}
		p := &ports[i]
		if detection.IsBlocked(p.VIDPID, opts.Blocklist) || detection.IsPathIgnored(p.Path, opts.IgnorePaths) {
			sierra.Debugf("detection: skipping %s", p.Path)
			continue
		}
		if device, ok := d.examine(ctx, p, opts.Mode); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// examine decides whether a port is reported. Passive mode reports known
// camera adapters only. Safe and Full modes report only ports where a
// camera answered, whatever the adapter.
func (*detector) examine(ctx context.Context, p *port, mode detection.Mode) (detection.DeviceInfo, bool) {
	device := detection.DeviceInfo{
		Transport:  TransportName,
		Path:       p.Path,
		Name:       p.Name,
		Confidence: detection.Low,
		Metadata:   make(map[string]string),
	}
	if p.VIDPID != "" {
		device.Metadata["vidpid"] = p.VIDPID
	}
	if p.Manufacturer != "" {
		device.Metadata["manufacturer"] = p.Manufacturer
	}
	if p.SerialNumber != "" {
		device.Metadata["serial"] = p.SerialNumber
	}
	if isCameraAdapter(p) {
		device.Confidence = detection.Medium
	}

	if mode == detection.Passive {
		return device, device.Confidence == detection.Medium
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	res := probeFn(probeCtx, p.Path, mode)
	if !res.ok {
		return detection.DeviceInfo{}, false
	}
	device.Confidence = detection.High
	if mode == detection.Full {
		device.Metadata["items"] = strconv.Itoa(res.items)
	}
	return device, true
}

// isCameraAdapter matches the USB-serial bridges cameras are used with.
func isCameraAdapter(p *port) bool {
	if detection.IsBlocked(p.VIDPID, detection.CameraAdapters()) {
		return true
	}
	manufacturer := strings.ToLower(p.Manufacturer)
	for _, known := range []string{"ftdi", "prolific", "silicon labs", "wch"} {
		if strings.Contains(manufacturer, known) {
			return true
		}
	}
	return false
}

// listPorts enumerates ports through go.bug.st/serial/enumerator.
func listPorts() ([]port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by Detect
	}

	ports := make([]port, 0, len(details))
	for _, d := range details {
		p := port{Path: d.Name, Name: d.Product, IsUSB: d.IsUSB}
		if d.IsUSB {
			p.VIDPID = strings.ToUpper(d.VID + ":" + d.PID)
			p.SerialNumber = d.SerialNumber
		}
		if p.Name == "" {
			p.Name = d.Name
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// probe opens a port and runs one handshake attempt. Detection never
// retries: a device that is not a camera should be disturbed as little as
// possible.
func probe(ctx context.Context, path string, mode detection.Mode) probeResult {
	transport, err := serial.New(path)
	if err != nil {
		return probeResult{}
	}
	defer func() { _ = transport.Close() }()
	return probeTransport(ctx, transport, mode)
}

func probeTransport(ctx context.Context, transport sierra.Transport, mode detection.Mode) probeResult {
	cam, err := sierra.New(transport,
		sierra.WithProfile(sierra.ProfileSerial),
		sierra.WithTimeout(500*time.Millisecond),
		sierra.WithRetryConfig(&sierra.RetryConfig{}),
	)
	if err != nil {
		return probeResult{}
	}
	if err := cam.Connect(ctx); err != nil {
		sierra.Debugf("detection: no camera answered: %v", err)
		return probeResult{}
	}
	defer cam.Disconnect(ctx)

	res := probeResult{ok: true}
	if mode == detection.Full {
		n, err := cam.NumItems(ctx)
		if err != nil {
			return probeResult{}
		}
		res.items = n
	}
	return res
}
