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
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/go-sierra/internal/frame"
	"github.com/ZaparooProject/go-sierra/internal/syncutil"
)

// Camera is one Sierra-protocol camera reached through a Transport.
//
// Thread Safety: every exported method takes the camera lock for its whole
// exchange, so concurrent callers are serialized. The protocol is strictly
// half-duplex and has no way to multiplex requests.
type Camera struct {
	transport Transport
	config    *Config
	trace     *TraceBuffer
	reader    *traceReader
	session   session
	profile   Profile
	// raised is the timeout set by withTimeout, zero outside it
	raised time.Duration
	mu     syncutil.Mutex
}

// New creates a camera on an open transport. No bytes are exchanged until
// Connect is called.
func New(transport Transport, opts ...Option) (*Camera, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidParameter)
	}

	c := &Camera{
		transport: transport,
		config:    DefaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := c.config.Validate(); err != nil {
		return nil, err
	}

	c.profile = c.config.Profile
	if c.profile.MaxPayload == 0 {
		c.profile = ProfileForTransport(transport.Type())
	}
	c.trace = NewTraceBuffer(string(transport.Type()), c.profile.Name, c.config.TraceSize)
	c.reader = &traceReader{r: transport}
	c.session.reset()
	c.session.state = StateDisconnected

	return c, nil
}

// Profile returns the wire profile in use
func (c *Camera) Profile() Profile {
	return c.profile
}

// Transport returns the underlying transport
func (c *Camera) Transport() Transport {
	return c.transport
}

// State returns the session state
func (c *Camera) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.state
}

// BitRate returns the line speed of the current session.
func (c *Camera) BitRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.bitRate
}

// SetTimeout changes the per-read timeout for subsequent exchanges.
func (c *Camera) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidParameter)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Timeout = timeout
	if err := c.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set timeout: %w", err)
	}
	return nil
}

// Close ends the session and closes the transport.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disconnect(context.Background())
	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// wrap attaches the recent wire trace to err.
func (c *Camera) wrap(err error) error {
	return c.trace.WrapError(err)
}

// withTimeout runs fn with the transport read timeout raised to d.
func (c *Camera) withTimeout(d time.Duration, fn func() error) error {
	if err := c.transport.SetTimeout(d); err != nil {
		return fmt.Errorf("failed to raise timeout: %w", err)
	}
	c.raised = d
	defer func() {
		c.raised = 0
		if err := c.transport.SetTimeout(c.config.Timeout); err != nil {
			Debugf("restoring timeout: %v", err)
		}
	}()
	return fn()
}

// send writes one packet. The context is checked first so a cancelled
// operation never puts a new packet on the wire.
func (c *Camera) send(ctx context.Context, p *Packet) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return c.write(p)
}

// stampCommand returns a COMMAND carrying the sub-type the session expects
// next. Resends of the stamped packet keep that sub-type.
func (c *Camera) stampCommand(p *Packet) *Packet {
	if p.Kind != KindCommand {
		return p
	}
	cmd := *p
	cmd.Subtype = c.profile.commandSubtype(c.session.firstCommand)
	return &cmd
}

// write encodes and writes p without consulting any context. Used for the
// acknowledgements that complete an exchange already on the wire.
func (c *Camera) write(p *Packet) error {
	buf := frame.GetBuffer(EncodedLen(c.profile, p))
	defer frame.PutBuffer(buf)

	wire, err := AppendPacket(buf[:0], c.profile, p)
	if err != nil {
		return err
	}
	c.trace.RecordTX(wire, p.String())

	if _, err := c.transport.Write(wire); err != nil {
		return NewFatalError("write", c.profile.Name, fmt.Errorf("%w: %w", ErrTransportWrite, err))
	}
	return nil
}

// receive decodes one packet and records the bytes it consumed.
func (c *Camera) receive() (*Packet, error) {
	c.reader.begin()
	p, err := Decode(c.profile, c.reader)
	raw := c.reader.end()

	switch {
	case err == nil:
		c.trace.RecordRX(raw, p.String())
	case len(raw) == 0 && IsRetryable(err):
		c.trace.RecordTimeout("no reply")
	default:
		c.trace.RecordRX(raw, err.Error())
	}
	return p, err
}

// traceReader keeps a copy of the bytes read since begin.
type traceReader struct {
	r   io.Reader
	buf []byte
}

func (t *traceReader) begin() {
	t.buf = t.buf[:0]
}

func (t *traceReader) end() []byte {
	return t.buf
}

func (t *traceReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.buf = append(t.buf, p[:n]...)
	}
	return n, err
}
