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
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Register is a numbered device value or bulk channel.
type Register uint8

// Registers used by the driver. Which other registers exist, and their
// legal values, depends on the camera model.
const (
	RegisterCurrentItem   Register = 4
	RegisterItemCount     Register = 10
	RegisterItemSize      Register = 12
	RegisterThumbnailSize Register = 13
	RegisterImage         Register = 14
	RegisterThumbnail     Register = 15
	RegisterBattery       Register = 16
	RegisterBitRate       Register = 17
	RegisterFreeMemory    Register = 28
	RegisterUploadData    Register = 29
	RegisterUploadArm     Register = 32
	RegisterLock          Register = 39
	RegisterAudioSize     Register = 43
	RegisterAudio         Register = 44
	RegisterItemInfo      Register = 47
	RegisterFilename      Register = 79
	RegisterFolderSelect  Register = 83
	RegisterFolderName    Register = 84
)

// GetInt reads a scalar register.
func (c *Camera) GetInt(ctx context.Context, reg Register) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, err := c.getInt(ctx, reg)
	return value, c.wrap(err)
}

// SetInt writes a scalar register.
func (c *Camera) SetInt(ctx context.Context, reg Register, value uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrap(c.setInt(ctx, reg, &value))
}

// SetIntNoValue sends a set command without a value, which some models
// treat as a query or trigger.
func (c *Camera) SetIntNoValue(ctx context.Context, reg Register) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrap(c.setInt(ctx, reg, nil))
}

// GetString streams a bulk register into sink and returns the number of
// bytes written. A non-zero index selects that item (1-based) first.
func (c *Camera) GetString(ctx context.Context, reg Register, index int, sink io.Writer) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.getString(ctx, reg, index, sink, 0)
	return n, c.wrap(err)
}

// GetBytes reads a bulk register into memory.
func (c *Camera) GetBytes(ctx context.Context, reg Register, index int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.getBytes(ctx, reg, index)
	return data, c.wrap(err)
}

// SetString writes a bulk register.
func (c *Camera) SetString(ctx context.Context, reg Register, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrap(c.setString(ctx, reg, data))
}

func (c *Camera) getInt(ctx context.Context, reg Register) (uint32, error) {
	var value uint32
	err := c.withSession(ctx, func() error {
		reply, err := c.command(ctx, []byte{opGetInt, byte(reg)}, true)
		if err != nil {
			return err
		}
		if reply.Kind != KindDataEnd || len(reply.Payload) != 4 {
			return newProtocolError("get int", "register %d answered %s", reg, reply)
		}
		value = binary.LittleEndian.Uint32(reply.Payload)
		return c.write(Control(KindACK))
	})
	if err != nil {
		return 0, registerError("get int", reg, 0, err)
	}
	Debugf("register %d = %d", reg, value)
	return value, nil
}

func (c *Camera) setInt(ctx context.Context, reg Register, value *uint32) error {
	payload := []byte{opSetInt, byte(reg)}
	if value != nil {
		payload = binary.LittleEndian.AppendUint32(payload, *value)
	}

	err := c.withSession(ctx, func() error {
		return c.transmit(ctx, NewCommand(SubtypeCommand, payload))
	})
	if err != nil {
		return registerError("set int", reg, 0, err)
	}
	return nil
}

// selectItem points register 4 at a 1-based item.
func (c *Camera) selectItem(ctx context.Context, index int) error {
	if index <= 0 || index > 0xFFFF {
		return fmt.Errorf("%w: item index %d", ErrInvalidParameter, index)
	}
	value := uint32(index)
	err := c.setInt(ctx, RegisterCurrentItem, &value)
	if IsNotSupported(err) {
		return &RegisterError{
			Op:       "select item",
			Register: RegisterCurrentItem,
			Index:    index,
			Err:      fmt.Errorf("%w: %w", ErrNotFound, ErrRegisterNotSupported),
		}
	}
	return err
}

func (c *Camera) getBytes(ctx context.Context, reg Register, index int) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.getString(ctx, reg, index, &buf, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Camera) getString(ctx context.Context, reg Register, index int, sink io.Writer, expected int64) (int64, error) {
	if index != 0 {
		if err := c.selectItem(ctx, index); err != nil {
			return 0, err
		}
	}

	t := newTransfer(reg, expected, sink, c.config.Progress)
	err := c.withSession(ctx, func() error {
		return c.receiveBulk(ctx, t)
	})
	if err != nil {
		return t.done, registerError("get string", reg, index, err)
	}
	Debugf("register %d: received %d bytes", reg, t.done)
	return t.done, nil
}

// receiveBulk issues the bulk get and collects DATA packets until DATA_END.
// A repeated packet, sent again because our ACK was lost, is acknowledged
// and dropped. On a replay after session recovery the transfer skips the
// bytes the sink already has.
func (c *Camera) receiveBulk(ctx context.Context, t *transfer) error {
	t.restart()

	reply, err := c.command(ctx, []byte{c.profile.bulkOpcode(), byte(t.register)}, true)
	var prev *Packet
	for {
		if err != nil {
			return err
		}
		if prev != nil && prev.Equal(reply) {
			Debugf("register %d: dropping repeated chunk %d", t.register, reply.Subtype)
		} else {
			if err := t.write(reply.Payload); err != nil {
				return err
			}
			prev = reply
		}
		if err := c.write(Control(KindACK)); err != nil {
			return err
		}
		if reply.Kind == KindDataEnd {
			return nil
		}
		reply, err = c.readData(ctx)
	}
}

func (c *Camera) setString(ctx context.Context, reg Register, data []byte) error {
	var progress ProgressFunc
	if len(data) > c.profile.MaxPayload {
		progress = c.config.Progress
	}
	t := newTransfer(reg, int64(len(data)), nil, progress)

	chunks := splitChunks(data, c.profile.MaxPayload)
	for k, chunk := range chunks {
		var p *Packet
		if k == 0 {
			payload := make([]byte, 0, len(chunk)+2)
			payload = append(payload, opSetString, byte(reg))
			p = NewCommand(SubtypeCommand, append(payload, chunk...))
		} else {
			p = NewData(byte(k), chunk, k == len(chunks)-1)
		}

		err := c.withSession(ctx, func() error {
			return c.transmit(ctx, p)
		})
		if err != nil {
			return registerError("set string", reg, 0, err)
		}
		t.advance(int64(len(chunk)))
	}
	Debugf("register %d: sent %d bytes in %d packets", reg, len(data), len(chunks))
	return nil
}

// splitChunks cuts data into packet payloads. The first chunk leaves room
// for the two-byte opcode and register header.
func splitChunks(data []byte, maxPayload int) [][]byte {
	first := min(len(data), maxPayload-2)
	chunks := [][]byte{data[:first]}
	for rest := data[first:]; len(rest) > 0; {
		n := min(len(rest), maxPayload)
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}
	return chunks
}

// transmitAndAck writes p and reads the camera's answer. ACK and ENQ are
// success; DATA and DATA_END are returned for callers that expect a data
// phase. A NAK makes us resend p, at most NAKResends times.
func (c *Camera) transmitAndAck(ctx context.Context, p *Packet) (*Packet, error) {
	p = c.stampCommand(p)
	for resend := 0; ; resend++ {
		if err := c.send(ctx, p); err != nil {
			return nil, err
		}
		if p.Kind == KindCommand {
			c.session.firstCommand = false
		}
		reply, err := c.readReply(ctx)
		if err != nil {
			return nil, err
		}

		switch reply.Kind {
		case KindACK, KindENQ, KindData, KindDataEnd:
			return reply, nil
		case KindNAK:
			if resend < NAKResends {
				Debugf("camera NAKed %s, resending", p)
				continue
			}
			return nil, fmt.Errorf("%w: %s refused %d times", ErrRejected, p, resend+1)
		default:
			return nil, refusal("transmit", reply)
		}
	}
}

// transmit sends p and requires a plain acknowledgement.
func (c *Camera) transmit(ctx context.Context, p *Packet) error {
	reply, err := c.transmitAndAck(ctx, p)
	if err != nil {
		return err
	}
	if reply.Kind != KindACK && reply.Kind != KindENQ {
		return newProtocolError("transmit", "%s answered with %s", p, reply)
	}
	return nil
}

// command sends a COMMAND and, when wantData is set, returns the first
// packet of the data phase. Cameras either acknowledge first or answer
// with the data straight away; both are accepted.
func (c *Camera) command(ctx context.Context, payload []byte, wantData bool) (*Packet, error) {
	if !wantData {
		return nil, c.transmit(ctx, NewCommand(SubtypeCommand, payload))
	}
	reply, err := c.transmitAndAck(ctx, NewCommand(SubtypeCommand, payload))
	if err != nil {
		return nil, err
	}
	if reply.Kind == KindData || reply.Kind == KindDataEnd {
		return reply, nil
	}
	return c.readData(ctx)
}

// readReply waits for one packet. Timeouts, checksum and framing errors
// are answered with a NAK asking the camera to resend, up to ReadAttempts
// reads in total.
func (c *Camera) readReply(ctx context.Context) (*Packet, error) {
	var lastErr error
	for attempt := range ReadAttempts {
		if attempt > 0 {
			if err := c.send(ctx, Control(KindNAK)); err != nil {
				return nil, err
			}
		}
		reply, err := c.receive()
		if err == nil {
			return reply, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		Debugf("reply attempt %d/%d: %v", attempt+1, ReadAttempts, err)
	}
	return nil, lastErr
}

// readData waits for the next DATA or DATA_END packet.
func (c *Camera) readData(ctx context.Context) (*Packet, error) {
	reply, err := c.readReply(ctx)
	if err != nil {
		return nil, err
	}
	if reply.Kind == KindData || reply.Kind == KindDataEnd {
		return reply, nil
	}
	return nil, refusal("read data", reply)
}

// refusal converts a reply that ends an exchange into its error.
func refusal(op string, reply *Packet) error {
	switch {
	case reply.Kind == KindCancel:
		return fmt.Errorf("%w: camera sent CANCEL", ErrRejected)
	case reply.Kind == KindInvalid:
		return ErrRegisterNotSupported
	case reply.Kind.IsSessionFault():
		return &SessionError{Kind: reply.Kind}
	default:
		return newProtocolError(op, "unexpected %s", reply)
	}
}

// registerError attaches the register to err unless it already carries one.
func registerError(op string, reg Register, index int, err error) error {
	var re *RegisterError
	if errors.As(err, &re) {
		return err
	}
	return &RegisterError{Op: op, Register: reg, Index: index, Err: err}
}
