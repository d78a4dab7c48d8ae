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
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport timeout", err: ErrTransportTimeout, want: true},
		{name: "protocol timeout alias", err: ErrTimeout, want: true},
		{name: "checksum mismatch", err: ErrChecksumMismatch, want: true},
		{name: "framing", err: ErrFraming, want: true},
		{name: "wrapped checksum", err: fmt.Errorf("reply: %w", ErrChecksumMismatch), want: true},
		{name: "timeout transport error", err: NewTimeoutError("read", "/dev/ttyUSB0"), want: true},
		{
			name: "fatal transport error",
			err:  NewFatalError("write", "/dev/ttyUSB0", syscall.EIO),
			want: false,
		},
		{
			name: "truncated by timeout",
			err:  &TruncatedError{Want: 10, Got: 4, Err: ErrTransportTimeout},
			want: true,
		},
		{
			name: "truncated by closed port",
			err:  &TruncatedError{Want: 10, Got: 4, Err: ErrTransportClosed},
			want: false,
		},
		{name: "rejected", err: ErrRejected, want: false},
		{name: "session invalidated", err: &SessionError{Kind: KindSessionEnd}, want: false},
		{name: "register not supported", err: ErrRegisterNotSupported, want: false},
		{name: "protocol violation", err: newProtocolError("read", "bad"), want: false},
		{name: "cancelled", err: ErrCancelled, want: false},
		{name: "unrelated", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "closed", err: ErrTransportClosed, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "closed pipe", err: fmt.Errorf("write: %w", io.ErrClosedPipe), want: true},
		{name: "eio", err: syscall.EIO, want: true},
		{name: "enxio", err: fmt.Errorf("read: %w", syscall.ENXIO), want: true},
		{name: "enodev", err: syscall.ENODEV, want: true},
		{name: "eagain", err: syscall.EAGAIN, want: false},
		{name: "permanent transport error", err: NewFatalError("read", "COM3", errors.New("gone")), want: true},
		{name: "timeout transport error", err: NewTimeoutError("read", "COM3"), want: false},
		{
			name: "truncated by closed port",
			err:  &TruncatedError{Want: 8, Got: 2, Err: ErrTransportClosed},
			want: true,
		},
		{
			name: "truncated by timeout",
			err:  &TruncatedError{Want: 8, Got: 2, Err: ErrTransportTimeout},
			want: false,
		},
		{name: "timeout", err: ErrTransportTimeout, want: false},
		{name: "session invalidated", err: ErrSessionInvalidated, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestTransportError(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("read", "/dev/ttyS0")
	assert.Equal(t, "read /dev/ttyS0: transport timeout", err.Error())
	assert.True(t, err.Retryable)
	assert.Equal(t, ErrorTypeTimeout, err.Type)
	require.ErrorIs(t, err, ErrTransportTimeout)

	noPort := NewTransportError("write", "", ErrTransportWrite, ErrorTypeTransient)
	assert.Equal(t, "write: transport write failed", noPort.Error())
	assert.True(t, noPort.Retryable)

	fatal := NewFatalError("write", "COM1", syscall.EIO)
	assert.False(t, fatal.Retryable)
	assert.Equal(t, ErrorTypePermanent, fatal.Type)
	require.ErrorIs(t, fatal, syscall.EIO)
}

func TestTruncatedError(t *testing.T) {
	t.Parallel()

	err := error(&TruncatedError{Want: 2054, Got: 100, Err: ErrTransportTimeout})
	require.ErrorIs(t, err, ErrTruncated)
	require.ErrorIs(t, err, ErrTransportTimeout)
	assert.Contains(t, err.Error(), "got 100 of 2054 bytes")

	var tr *TruncatedError
	require.ErrorAs(t, fmt.Errorf("decode: %w", err), &tr)
	assert.True(t, tr.Retryable())
}

func TestSessionError(t *testing.T) {
	t.Parallel()

	for _, kind := range []Kind{KindSessionEnd, KindSessionError} {
		err := error(&SessionError{Kind: kind})
		require.ErrorIs(t, err, ErrSessionInvalidated)
		assert.Contains(t, err.Error(), kind.String())
	}
}

func TestRegisterError(t *testing.T) {
	t.Parallel()

	err := error(&RegisterError{Op: "get string", Register: 44, Index: 3, Err: ErrRegisterNotSupported})
	assert.Equal(t, "get string register 44 (item 3): register not supported", err.Error())
	assert.True(t, IsNotSupported(err))
	assert.False(t, IsNotFound(err))

	noIndex := &RegisterError{Op: "set int", Register: 17, Err: ErrRejected}
	assert.Equal(t, "set int register 17: rejected by camera", noIndex.Error())

	var re *RegisterError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &re)
	assert.Equal(t, Register(44), re.Register)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: %w", ErrNotFound, ErrRegisterNotSupported)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotSupported(err))
	assert.False(t, IsNotFound(ErrRegisterNotSupported))
	assert.False(t, IsNotFound(nil))
}

func TestProtocolError(t *testing.T) {
	t.Parallel()

	err := newProtocolError("get int", "reply payload has %d bytes", 2)
	require.ErrorIs(t, err, ErrProtocolViolation)
	assert.Equal(t, "get int: protocol violation: reply payload has 2 bytes", err.Error())
}

func TestTraceBuffer_RecordsAndWraps(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("serial", "/dev/ttyUSB0", 3)
	tb.RecordTX([]byte{0x1b, 0x43}, "set int")
	tb.RecordRX([]byte{0x06}, "")
	tb.RecordTimeout("waiting for reply")
	assert.Equal(t, 3, tb.Len())

	err := tb.WrapError(ErrTransportTimeout)
	require.ErrorIs(t, err, ErrTransportTimeout)
	require.True(t, HasTrace(err))

	te := GetTrace(err)
	require.NotNil(t, te)
	require.Len(t, te.Trace, 3)
	assert.Equal(t, TraceTX, te.Trace[0].Direction)
	assert.Equal(t, "TIMEOUT: waiting for reply", te.Trace[2].Note)

	formatted := te.FormatTrace()
	assert.Contains(t, formatted, "[serial:/dev/ttyUSB0] Wire trace (3 entries)")
	assert.Contains(t, formatted, "> 1B 43 (set int)")
	assert.Contains(t, formatted, "< 06")
}

func TestTraceBuffer_Overflow(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("usb", "bus1", 2)
	tb.RecordTX([]byte{1}, "first")
	tb.RecordTX([]byte{2}, "second")
	tb.RecordTX([]byte{3}, "third")
	require.Equal(t, 2, tb.Len())

	te := GetTrace(tb.WrapError(ErrRejected))
	require.NotNil(t, te)
	assert.Equal(t, "second", te.Trace[0].Note)
	assert.Equal(t, "third", te.Trace[1].Note)

	tb.Clear()
	assert.Zero(t, tb.Len())
	assert.Contains(t, GetTrace(tb.WrapError(ErrRejected)).FormatTrace(), "(no trace data)")
}

func TestTraceBuffer_WrapError(t *testing.T) {
	t.Parallel()

	tb := NewTraceBuffer("serial", "COM4", 0)
	require.NoError(t, tb.WrapError(nil))

	first := tb.WrapError(ErrFraming)
	assert.Same(t, first, tb.WrapError(first), "an already traced error is not wrapped again")

	assert.False(t, HasTrace(ErrFraming))
	assert.Nil(t, GetTrace(ErrFraming))
}

func TestTraceEntry_String(t *testing.T) {
	t.Parallel()

	long := make([]byte, 40)
	tb := NewTraceBuffer("serial", "p", 4)
	tb.RecordRX(long, "bulk")
	tb.RecordRX(nil, "")

	te := GetTrace(tb.WrapError(ErrFraming))
	require.NotNil(t, te)
	assert.Contains(t, te.Trace[0].String(), "... (40 bytes total) (bulk)")
	assert.True(t, strings.HasSuffix(te.Trace[1].String(), "RX: (empty)"))
}
