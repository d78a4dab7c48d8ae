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
	"context"
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-sierra/detection"
)

// TransportFactory opens a transport for a port path
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory opens a transport for a detected device
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// DetectorFunc finds candidate cameras
type DetectorFunc func(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error)

// ConnectOption configures ConnectCamera
type ConnectOption func(*connectConfig) error

type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	detector               DetectorFunc
	detectOptions          *detection.Options
	cameraOptions          []Option
	autoDetect             bool
}

// WithAutoDetection picks the first camera found by the detectors instead
// of opening a fixed path.
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDetectionOptions overrides the detection options used by auto-detection.
func WithDetectionOptions(opts detection.Options) ConnectOption {
	return func(c *connectConfig) error {
		c.detectOptions = &opts
		return nil
	}
}

// WithCameraOptions adds camera-level options
func WithCameraOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.cameraOptions = append(c.cameraOptions, opts...)
		return nil
	}
}

// WithTransportFactory sets how a port path becomes a transport
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets how a detected device becomes a transport
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

// WithDetector replaces detection.DetectAll, mainly for tests
func WithDetector(detector DetectorFunc) ConnectOption {
	return func(c *connectConfig) error {
		c.detector = detector
		return nil
	}
}

// ConnectCamera opens a transport, creates the camera and runs the
// handshake. The transport is closed again if any step fails.
//
//	cam, err := sierra.ConnectCamera(ctx, "/dev/ttyUSB0",
//	    sierra.WithTransportFactory(func(p string) (sierra.Transport, error) {
//	        return serial.New(p)
//	    }))
func ConnectCamera(ctx context.Context, path string, opts ...ConnectOption) (*Camera, error) {
	config := &connectConfig{}
	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	transport, err := openTransport(ctx, path, config)
	if err != nil {
		return nil, err
	}

	cam, err := New(transport, config.cameraOptions...)
	if err != nil {
		_ = transport.Close()
		return nil, fmt.Errorf("failed to create camera: %w", err)
	}
	if err := cam.Connect(ctx); err != nil {
		_ = transport.Close()
		return nil, err
	}
	return cam, nil
}

func openTransport(ctx context.Context, path string, config *connectConfig) (Transport, error) {
	if !config.autoDetect && path != "" {
		if config.transportFactory == nil {
			return nil, errors.New("transport factory not provided")
		}
		transport, err := config.transportFactory(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
		}
		return transport, nil
	}

	if config.transportDeviceFactory == nil {
		return nil, errors.New("transport device factory not provided")
	}

	opts := detection.DefaultOptions()
	if config.detectOptions != nil {
		opts = *config.detectOptions
	}
	detect := config.detector
	if detect == nil {
		detect = detection.DetectAll
	}

	devices, err := detect(ctx, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to detect cameras: %w", err)
	}
	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	Debugf("auto-detected %s", devices[0])
	return config.transportDeviceFactory(devices[0])
}
