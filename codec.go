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
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-sierra/internal/frame"
)

// EncodedLen returns the number of wire bytes p occupies under profile.
func EncodedLen(profile Profile, p *Packet) int {
	if p == nil {
		return 0
	}
	if !p.Kind.IsMultiByte() {
		if profile.Framing == FramingEscaped {
			return 2
		}
		return 1
	}
	if profile.Framing == FramingEscaped {
		// ESC kind seq* payload* ESC term xor
		return 2 + frame.EscapedLen([]byte{p.Subtype}) + frame.EscapedLen(p.Payload) + 3
	}
	return len(p.Payload) + frame.Overhead
}

// Encode converts a packet to its wire form.
func Encode(profile Profile, p *Packet) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: cannot encode nil packet", ErrInvalidParameter)
	}
	return AppendPacket(make([]byte, 0, EncodedLen(profile, p)), profile, p)
}

// AppendPacket appends the wire form of p to dst.
func AppendPacket(dst []byte, profile Profile, p *Packet) ([]byte, error) {
	if p == nil || !p.Kind.IsKnown() {
		return dst, fmt.Errorf("%w: cannot encode packet %v", ErrInvalidParameter, p)
	}
	if len(p.Payload) > profile.MaxPayload {
		return dst, fmt.Errorf("%w: payload of %d bytes exceeds %d", ErrInvalidParameter,
			len(p.Payload), profile.MaxPayload)
	}

	if profile.Framing == FramingEscaped {
		return appendEscapedPacket(dst, p), nil
	}

	if !p.Kind.IsMultiByte() {
		return append(dst, byte(p.Kind)), nil
	}

	length := len(p.Payload) + frame.Overhead
	dst = append(dst, byte(p.Kind), p.Subtype)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(length))
	dst = append(dst, p.Payload...)
	return binary.LittleEndian.AppendUint16(dst, frame.Sum16(p.Payload)), nil
}

func terminatorFor(kind Kind) byte {
	if kind == KindData {
		return frame.ETB
	}
	return frame.ETX
}

func appendEscapedPacket(dst []byte, p *Packet) []byte {
	dst = append(dst, frame.ESC, byte(p.Kind))
	if !p.Kind.IsMultiByte() {
		return dst
	}
	term := terminatorFor(p.Kind)
	dst = frame.AppendEscaped(dst, []byte{p.Subtype})
	dst = frame.AppendEscaped(dst, p.Payload)
	return append(dst, frame.ESC, term, frame.XOR8(p.Payload, term))
}

// Decode reads one packet from r. A read that returns no data is treated as
// a timeout. Garbage at the start of a frame is drained until the line goes
// quiet and reported as ErrFraming.
func Decode(profile Profile, r io.Reader) (*Packet, error) {
	if profile.Framing == FramingEscaped {
		return decodeEscaped(profile, r)
	}
	return decodeLengthPrefixed(profile, r)
}

func decodeLengthPrefixed(profile Profile, r io.Reader) (*Packet, error) {
	var head [frame.HeaderSize]byte
	if _, err := readFull(r, head[:1]); err != nil {
		return nil, err
	}

	kind := Kind(head[0])
	if !kind.IsKnown() {
		return nil, resync(profile, r, fmt.Errorf("%w: unexpected start byte 0x%02X", ErrFraming, head[0]))
	}
	if !kind.IsMultiByte() {
		return Control(kind), nil
	}

	if n, err := readFull(r, head[1:]); err != nil {
		return nil, &TruncatedError{Want: frame.HeaderSize, Got: 1 + n, Err: err}
	}

	length := int(binary.LittleEndian.Uint16(head[2:]))
	if length < frame.Overhead || length-frame.Overhead > profile.MaxPayload {
		return nil, resync(profile, r, newProtocolError("decode",
			"%s declares length %d, limit is %d", kind, length, profile.MaxPayload+frame.Overhead))
	}

	rest := make([]byte, length-frame.HeaderSize)
	if n, err := readFull(r, rest); err != nil {
		return nil, &TruncatedError{Want: length, Got: frame.HeaderSize + n, Err: err}
	}

	payload := rest[:len(rest)-frame.TrailerSize]
	field := binary.LittleEndian.Uint16(rest[len(rest)-frame.TrailerSize:])
	ok, lenient := frame.VerifySum16(payload, field)
	if !ok {
		return nil, fmt.Errorf("%w: %s field %04X, computed %04X",
			ErrChecksumMismatch, kind, field, frame.Sum16(payload))
	}
	if lenient {
		Debugf("accepting %s with firmware checksum %04X", kind, field)
	}

	return &Packet{Kind: kind, Subtype: head[1], Payload: payload}, nil
}

func decodeEscaped(profile Profile, r io.Reader) (*Packet, error) {
	var one [1]byte
	if _, err := readFull(r, one[:]); err != nil {
		return nil, err
	}
	if one[0] != frame.ESC {
		return nil, resync(profile, r, fmt.Errorf("%w: expected ESC, got 0x%02X", ErrFraming, one[0]))
	}

	got := 1
	next := func() (byte, error) {
		if _, err := readFull(r, one[:]); err != nil {
			return 0, &TruncatedError{Want: got + 1, Got: got, Err: err}
		}
		got++
		return one[0], nil
	}

	b, err := next()
	if err != nil {
		return nil, err
	}
	kind := Kind(b)
	if !kind.IsKnown() {
		return nil, resync(profile, r, fmt.Errorf("%w: unknown kind 0x%02X", ErrFraming, b))
	}
	if !kind.IsMultiByte() {
		return Control(kind), nil
	}

	body := make([]byte, 0, 64)
	var term byte
	for term == 0 {
		c, err := next()
		if err != nil {
			return nil, err
		}
		if c == frame.ESC {
			d, err := next()
			if err != nil {
				return nil, err
			}
			switch d {
			case frame.ESC:
			case frame.ETX, frame.ETB:
				term = d
				continue
			default:
				return nil, resync(profile, r, fmt.Errorf("%w: ESC followed by 0x%02X", ErrFraming, d))
			}
		}
		body = append(body, c)
		if len(body) > profile.MaxPayload+1 {
			return nil, resync(profile, r, newProtocolError("decode",
				"%s body exceeds %d bytes", kind, profile.MaxPayload))
		}
	}

	chk, err := next()
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s without sequence byte", ErrFraming, kind)
	}
	if term != terminatorFor(kind) {
		return nil, fmt.Errorf("%w: %s terminated by 0x%02X", ErrFraming, kind, term)
	}

	payload := body[1:]
	if want := frame.XOR8(payload, term); want != chk {
		return nil, fmt.Errorf("%w: %s xor %02X, computed %02X", ErrChecksumMismatch, kind, chk, want)
	}
	return &Packet{Kind: kind, Subtype: body[0], Payload: payload}, nil
}

// readFull reads exactly len(buf) bytes. A read returning no bytes and no
// error is the transport's timeout signal.
func readFull(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if n >= len(buf) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, ErrTransportTimeout
		}
	}
	return n, nil
}

// resync drains the line until a read times out and then returns cause.
// Every drain read is bounded by the transport timeout and the total is
// capped at two maximum-size frames.
func resync(profile Profile, r io.Reader, cause error) error {
	limit := 2 * (profile.MaxPayload + frame.Overhead)
	buf := frame.GetBuffer(frame.SmallBufferSize)
	defer frame.PutBuffer(buf)

	drained := 0
	for drained < limit {
		n, err := r.Read(buf[:1])
		if err != nil {
			if errors.Is(err, ErrTransportTimeout) {
				break
			}
			return errors.Join(cause, err)
		}
		if n == 0 {
			break
		}
		drained += n
	}
	if drained > 0 {
		Debugf("resync drained %d bytes", drained)
	}
	return cause
}
