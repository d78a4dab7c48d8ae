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
	"sync"
	"time"
)

// Transport is the raw byte link to a camera. Implementations exist for
// RS-232 (transport/serial); USB-class links plug in behind the same
// interface.
type Transport interface {
	// Read reads available bytes. When nothing arrives within the
	// configured timeout it returns 0 and an error matching
	// ErrTransportTimeout (returning 0, nil is treated the same way).
	Read(p []byte) (int, error)

	// Write writes all of p or returns an error
	Write(p []byte) (int, error)

	// SetTimeout sets the per-read timeout
	SetTimeout(timeout time.Duration) error

	// SetBitRate changes the line speed. USB-class links ignore it.
	SetBitRate(rate int) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportSerial represents an RS-232 link.
	TransportSerial TransportType = "serial"
	// TransportUSB represents a USB-class link.
	TransportUSB TransportType = "usb"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// MockTransport is a scripted Transport for tests. Bytes queued with
// QueueRead are returned by Read; everything written is recorded.
type MockTransport struct {
	writeErr  error
	readErr   error
	reads     [][]byte
	written   []byte
	timeout   time.Duration
	bitRates  []int
	mu        sync.Mutex
	connected bool
}

// NewMockTransport creates a new mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		connected: true,
		timeout:   time.Second,
	}
}

// Read implements Transport. Each queued chunk is delivered by at most one
// Read; an empty queue is a timeout.
func (m *MockTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrTransportClosed
	}
	if len(m.reads) == 0 {
		if m.readErr != nil {
			return 0, m.readErr
		}
		return 0, ErrTransportTimeout
	}

	chunk := m.reads[0]
	n := copy(p, chunk)
	if n == len(chunk) {
		m.reads = m.reads[1:]
	} else {
		m.reads[0] = chunk[n:]
	}
	return n, nil
}

// Write implements Transport
func (m *MockTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

// SetTimeout implements Transport
func (m *MockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// SetBitRate implements Transport
func (m *MockTransport) SetBitRate(rate int) error {
	m.mu.Lock()
	m.bitRates = append(m.bitRates, rate)
	m.mu.Unlock()
	return nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
	return nil
}

// IsConnected implements Transport
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Type implements Transport
func (*MockTransport) Type() TransportType {
	return TransportMock
}

// Test helper methods

// QueueRead appends bytes for subsequent reads
func (m *MockTransport) QueueRead(data ...byte) {
	m.mu.Lock()
	m.reads = append(m.reads, append([]byte(nil), data...))
	m.mu.Unlock()
}

// SetReadError makes Read fail with err once the queue is empty
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// SetWriteError makes every Write fail with err
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// Written returns a copy of everything written so far
func (m *MockTransport) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written...)
}

// BitRates returns every rate passed to SetBitRate
func (m *MockTransport) BitRates() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.bitRates...)
}

// Timeout returns the last timeout set
func (m *MockTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Pending returns the number of queued read chunks
func (m *MockTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads)
}
