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
	"io"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// Error categories for retry and recovery decisions
var (
	// Transport errors
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportClosed  = errors.New("transport is closed")
	ErrTransportWrite   = errors.New("transport write failed")

	// ErrTimeout is the protocol-level timeout; it matches ErrTransportTimeout.
	ErrTimeout = ErrTransportTimeout

	// Link errors - retried locally with NAK
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrFraming          = errors.New("framing error")
	ErrTruncated        = errors.New("truncated packet")

	// Device answers - surfaced to the caller
	ErrRejected             = errors.New("rejected by camera")
	ErrSessionInvalidated   = errors.New("session invalidated by camera")
	ErrRegisterNotSupported = errors.New("register not supported")
	ErrNotFound             = errors.New("item not found")
	ErrProtocolViolation    = errors.New("protocol violation")

	// Session and caller errors
	ErrConnectFailed    = errors.New("connect failed")
	ErrNotConnected     = errors.New("camera not connected")
	ErrCancelled        = errors.New("operation cancelled")
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates the transport itself is broken
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error
	ErrorTypeTimeout
)

// TransportError wraps transport-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TruncatedError reports a packet that ended early. A short read caused by
// a timeout can be recovered with a NAK; one caused by a failing transport
// cannot.
type TruncatedError struct {
	Err  error // Why the read stopped
	Want int   // Bytes the frame needed
	Got  int   // Bytes actually read
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("truncated packet: got %d of %d bytes: %v", e.Got, e.Want, e.Err)
}

// Is lets errors.Is match ErrTruncated as well as the wrapped cause.
func (*TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

func (e *TruncatedError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the truncation was a timeout
func (e *TruncatedError) Retryable() bool {
	return errors.Is(e.Err, ErrTransportTimeout)
}

// SessionError records which control byte ended the session.
type SessionError struct {
	Kind Kind
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%v: camera sent %s", ErrSessionInvalidated, e.Kind)
}

func (*SessionError) Unwrap() error {
	return ErrSessionInvalidated
}

// RegisterError wraps a device refusal for a specific register.
type RegisterError struct {
	Err      error
	Op       string
	Register Register
	Index    int
}

func (e *RegisterError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("%s register %d (item %d): %v", e.Op, e.Register, e.Index, e.Err)
	}
	return fmt.Sprintf("%s register %d: %v", e.Op, e.Register, e.Err)
}

func (e *RegisterError) Unwrap() error {
	return e.Err
}

// ProtocolError describes an unexpected reply.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, ErrProtocolViolation, e.Detail)
}

func (*ProtocolError) Unwrap() error {
	return ErrProtocolViolation
}

func newProtocolError(op, format string, args ...any) error {
	return &ProtocolError{Op: op, Detail: fmt.Sprintf(format, args...)}
}

// IsRetryable returns true for errors the link layer recovers from with a
// NAK and a re-read: timeouts, checksum and framing errors, and truncation
// caused by a timeout.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var tr *TruncatedError
	if errors.As(err, &tr) {
		return tr.Retryable()
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrChecksumMismatch),
		errors.Is(err, ErrFraming):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the transport is unusable.
// Fatal errors are never retried and never trigger a reconnect.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var tr *TruncatedError
	if errors.As(err, &tr) {
		return !tr.Retryable()
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// IsNotSupported reports whether the camera refused a register. Callers
// reading optional metadata treat this as "feature absent".
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrRegisterNotSupported)
}

// IsNotFound reports whether the camera refused to select an item.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Windows error codes for device disconnection detection.
const (
	errAccessDenied syscall.Errno = 5   // ERROR_ACCESS_DENIED
	errGenFailure   syscall.Errno = 31  // ERROR_GEN_FAILURE
	errNoSuchDevice syscall.Errno = 433 // ERROR_NO_SUCH_DEVICE
)

// isDeviceGoneError checks for OS-level errors raised when a USB-serial
// adapter is unplugged during I/O.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}

	//nolint:exhaustive // Only checking specific device-gone errors
	switch errno {
	case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
		return true
	}

	if runtime.GOOS == "windows" {
		//nolint:exhaustive // Only checking specific device-gone errors
		switch errno {
		case errAccessDenied, errGenFailure, errNoSuchDevice:
			return true
		}
	}
	return false
}

// NewTransportError creates a standard transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for transport operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFatalError wraps a non-timeout I/O failure
func NewFatalError(op, port string, err error) *TransportError {
	return NewTransportError(op, port, err, ErrorTypePermanent)
}

// =============================================================================
// Wire Trace Logging
// =============================================================================
// TraceableError embeds wire-level trace data in errors, so applications can
// see the packets that led to a failure.

// TraceDirection indicates the direction of wire data
type TraceDirection string

const (
	// TraceTX indicates data sent to the camera
	TraceTX TraceDirection = "TX"
	// TraceRX indicates data received from the camera
	TraceRX TraceDirection = "RX"
)

// TraceEntry represents a single wire-level operation
type TraceEntry struct {
	Timestamp time.Time
	Direction TraceDirection
	Note      string
	Data      []byte
}

// String formats a trace entry for display
func (e TraceEntry) String() string {
	hexData := formatHexBytes(e.Data)
	if e.Note != "" {
		return fmt.Sprintf("[%s] %s: %s (%s)", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData, e.Note)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.Format("15:04:05.000"), e.Direction, hexData)
}

// TraceableError wraps an error with wire-level trace data for debugging.
//
//	var te *sierra.TraceableError
//	if errors.As(err, &te) {
//	    log.Printf("Wire trace:\n%s", te.FormatTrace())
//	}
type TraceableError struct {
	Err       error
	Transport string
	Port      string
	Trace     []TraceEntry
}

// Error implements the error interface
func (e *TraceableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *TraceableError) Unwrap() error {
	return e.Err
}

// FormatTrace returns a human-readable formatted trace log
func (e *TraceableError) FormatTrace() string {
	if len(e.Trace) == 0 {
		return fmt.Sprintf("[%s:%s] (no trace data)", e.Transport, e.Port)
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "[%s:%s] Wire trace (%d entries):\n", e.Transport, e.Port, len(e.Trace))
	for _, entry := range e.Trace {
		direction := ">"
		if entry.Direction == TraceRX {
			direction = "<"
		}
		if entry.Note != "" {
			_, _ = fmt.Fprintf(&sb, "  %s %s (%s)\n", direction, formatHexBytes(entry.Data), entry.Note)
		} else {
			_, _ = fmt.Fprintf(&sb, "  %s %s\n", direction, formatHexBytes(entry.Data))
		}
	}
	return sb.String()
}

// formatHexBytes formats a byte slice as space-separated hex values,
// truncating long bulk chunks.
func formatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	const maxShown = 32
	shown := data
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	parts := make([]string, len(shown))
	for i, b := range shown {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	out := strings.Join(parts, " ")
	if len(data) > maxShown {
		out += fmt.Sprintf(" ... (%d bytes total)", len(data))
	}
	return out
}

// TraceBuffer keeps the most recent wire entries of a camera.
type TraceBuffer struct {
	transport string
	port      string
	entries   []TraceEntry
	maxSize   int
}

// NewTraceBuffer creates a new trace buffer with the specified capacity
func NewTraceBuffer(transport, port string, maxSize int) *TraceBuffer {
	if maxSize <= 0 {
		maxSize = 16
	}
	return &TraceBuffer{
		entries:   make([]TraceEntry, 0, maxSize),
		maxSize:   maxSize,
		transport: transport,
		port:      port,
	}
}

// RecordTX records a transmission to the camera
func (tb *TraceBuffer) RecordTX(data []byte, note string) {
	tb.record(TraceTX, data, note)
}

// RecordRX records data received from the camera
func (tb *TraceBuffer) RecordRX(data []byte, note string) {
	tb.record(TraceRX, data, note)
}

// RecordTimeout records a timeout event
func (tb *TraceBuffer) RecordTimeout(note string) {
	tb.record(TraceRX, nil, "TIMEOUT: "+note)
}

func (tb *TraceBuffer) record(dir TraceDirection, data []byte, note string) {
	entry := TraceEntry{
		Direction: dir,
		Data:      append([]byte(nil), data...),
		Timestamp: time.Now(),
		Note:      note,
	}

	if len(tb.entries) >= tb.maxSize {
		copy(tb.entries, tb.entries[1:])
		tb.entries[len(tb.entries)-1] = entry
	} else {
		tb.entries = append(tb.entries, entry)
	}
}

// WrapError wraps an error with the collected trace data.
// Returns nil if err is nil.
func (tb *TraceBuffer) WrapError(err error) error {
	if err == nil {
		return nil
	}
	if HasTrace(err) {
		return err
	}
	return &TraceableError{
		Err:       err,
		Trace:     append([]TraceEntry(nil), tb.entries...),
		Transport: tb.transport,
		Port:      tb.port,
	}
}

// Len returns the number of buffered entries
func (tb *TraceBuffer) Len() int {
	return len(tb.entries)
}

// Clear resets the trace buffer
func (tb *TraceBuffer) Clear() {
	tb.entries = tb.entries[:0]
}

// HasTrace checks if an error contains trace data
func HasTrace(err error) bool {
	var te *TraceableError
	return errors.As(err, &te)
}

// GetTrace extracts trace data from an error, returning nil if not present
func GetTrace(err error) *TraceableError {
	var te *TraceableError
	if errors.As(err, &te) {
		return te
	}
	return nil
}
