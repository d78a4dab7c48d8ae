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

// Package serial connects to Sierra cameras over RS-232 using go.bug.st/serial.
package serial

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	sierra "github.com/ZaparooProject/go-sierra"
	goserial "go.bug.st/serial"
)

// Transport implements sierra.Transport over a serial port. Cameras always
// start at 19200 8N1; the engine changes the rate once a session is up.
type Transport struct {
	port     goserial.Port
	portName string
	mode     goserial.Mode
	mu       sync.Mutex
	closed   bool
}

func isWindows() bool {
	return runtime.GOOS == "windows"
}

// minReadTimeout is the shortest read timeout the platform drivers honour.
func minReadTimeout() time.Duration {
	if isWindows() {
		return 100 * time.Millisecond
	}
	return 50 * time.Millisecond
}

// windowsPostWriteDelay gives Windows drivers time to flush after a write.
func windowsPostWriteDelay() {
	if isWindows() {
		time.Sleep(15 * time.Millisecond)
	}
}

func defaultMode() goserial.Mode {
	return goserial.Mode{
		BaudRate: sierra.DefaultBitRate,
		DataBits: 8,
		Parity:   goserial.NoParity,
		StopBits: goserial.OneStopBit,
	}
}

// New opens portName at the camera's power-on speed.
func New(portName string) (*Transport, error) {
	mode := defaultMode()
	port, err := goserial.Open(portName, &mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	t := NewFromPort(port, portName)
	if err := t.SetTimeout(sierra.DefaultTimeout); err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewFromPort wraps an already open port, which is assumed to be at 19200 8N1.
func NewFromPort(port goserial.Port, portName string) *Transport {
	return &Transport{
		port:     port,
		portName: portName,
		mode:     defaultMode(),
	}
}

// Read reads whatever the camera has sent. A read that times out with no
// data is reported as a timeout error; device-gone errors are fatal.
func (t *Transport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, sierra.ErrTransportClosed
	}

	n, err := t.port.Read(p)
	switch {
	case err == nil && n == 0:
		return 0, sierra.NewTimeoutError("read", t.portName)
	case err == nil:
		return n, nil
	case isInterruptedSystemCall(err):
		if n > 0 {
			return n, nil
		}
		return 0, sierra.NewTimeoutError("read", t.portName)
	default:
		return n, sierra.NewFatalError("read", t.portName, err)
	}
}

// Write writes all of p and waits for it to leave the UART.
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, sierra.ErrTransportClosed
	}

	written := 0
	for written < len(p) {
		n, err := t.port.Write(p[written:])
		written += n
		if err != nil {
			if isInterruptedSystemCall(err) {
				continue
			}
			return written, sierra.NewFatalError("write", t.portName, err)
		}
		if n == 0 {
			return written, sierra.NewFatalError("write", t.portName, errors.New("port accepted no bytes"))
		}
	}

	if err := t.drainWithRetry("write"); err != nil {
		return written, err
	}
	windowsPostWriteDelay()
	return written, nil
}

// SetTimeout sets the read timeout, raised to the platform minimum.
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	timeout = max(timeout, minReadTimeout())
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("serial set timeout failed: %w", err)
	}
	return nil
}

// SetBitRate reprograms the port speed and discards anything received at
// the old speed.
func (t *Transport) SetBitRate(rate int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if rate <= 0 {
		return fmt.Errorf("%w: bit rate %d", sierra.ErrInvalidParameter, rate)
	}
	if t.mode.BaudRate == rate {
		return nil
	}

	mode := t.mode
	mode.BaudRate = rate
	if err := t.port.SetMode(&mode); err != nil {
		return fmt.Errorf("serial set %d bps failed: %w", rate, err)
	}
	t.mode = mode
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("serial flush after speed change failed: %w", err)
	}
	sierra.Debugf("%s now at %d bps", t.portName, rate)
	return nil
}

// BitRate returns the current port speed.
func (t *Transport) BitRate() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode.BaudRate
}

// Close closes the port. Closing twice is harmless.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || t.port == nil {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("serial close failed: %w", err)
	}
	return nil
}

// IsConnected reports whether the port is open.
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil && !t.closed
}

// Type implements sierra.Transport
func (*Transport) Type() sierra.TransportType {
	return sierra.TransportSerial
}

// PortName returns the device path
func (t *Transport) PortName() string {
	return t.portName
}

// isInterruptedSystemCall checks if an error is caused by an interrupted system call
func isInterruptedSystemCall(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "interrupted system call") ||
		strings.Contains(errStr, "eintr")
}

func (t *Transport) drainWithRetry(operation string) error {
	const maxRetries = 3
	baseDelay := 2 * time.Millisecond

	for attempt := range maxRetries {
		err := t.port.Drain()
		if err == nil {
			return nil
		}
		if isInterruptedSystemCall(err) && attempt < maxRetries-1 {
			time.Sleep(baseDelay * time.Duration(1<<attempt))
			continue
		}
		return sierra.NewFatalError(operation+" drain", t.portName, err)
	}
	return fmt.Errorf("serial %s drain failed after %d retries", operation, maxRetries)
}

var _ sierra.Transport = (*Transport)(nil)
