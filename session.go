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
)

// SessionState is the link state of a camera.
type SessionState int

const (
	// StateDisconnected means no session exists.
	StateDisconnected SessionState = iota
	// StateHandshaking means the NUL probe is in progress.
	StateHandshaking
	// StateEstablished means registers and actions may be used.
	StateEstablished
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// folderSupport caches the register 83 probe.
type folderSupport int

const (
	foldersUnknown folderSupport = iota
	foldersSupported
	foldersUnsupported
)

// session is the negotiated state with one camera. It belongs to a single
// Camera; nothing here is shared between cameras.
type session struct {
	folder       string
	bitRate      int
	recoveries   int
	state        SessionState
	folders      folderSupport
	firstCommand bool
}

// reset forgets everything learned from the camera.
func (s *session) reset() {
	*s = session{
		state:        StateHandshaking,
		bitRate:      DefaultBitRate,
		firstCommand: true,
		recoveries:   s.recoveries,
	}
}

// Connect performs the link handshake. Serial profiles drop to the default
// bit rate and probe with NUL until the camera answers NAK, then negotiate
// the configured bit rate. Profiles without a handshake are established
// immediately.
func (c *Camera) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return c.wrap(err)
	}
	if c.config.BitRate != c.session.bitRate {
		if err := c.setSpeed(ctx, c.config.BitRate); err != nil {
			return c.wrap(fmt.Errorf("negotiating %d bps: %w", c.config.BitRate, err))
		}
	}
	return nil
}

// Disconnect sends the END action if a session is up, then marks the camera
// disconnected whatever the camera answered.
func (c *Camera) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnect(ctx)
}

func (c *Camera) disconnect(ctx context.Context) {
	if c.session.state == StateEstablished && c.transport.IsConnected() {
		if _, err := c.transmitAndAck(ctx, c.actionPacket(ActionEnd, 0)); err != nil {
			Debugf("end session: %v", err)
		}
		if c.profile.Handshake && c.session.bitRate != DefaultBitRate {
			if err := c.transport.SetBitRate(DefaultBitRate); err != nil {
				Debugf("restoring %d bps: %v", DefaultBitRate, err)
			}
		}
	}
	c.session.reset()
	c.session.state = StateDisconnected
}

// connect resets the session and runs the NUL/NAK handshake.
func (c *Camera) connect(ctx context.Context) error {
	c.session.reset()

	if err := c.transport.SetTimeout(c.config.Timeout); err != nil {
		c.session.state = StateDisconnected
		return fmt.Errorf("failed to set timeout: %w", err)
	}
	if !c.profile.Handshake {
		c.session.state = StateEstablished
		Debugf("%s profile needs no handshake", c.profile.Name)
		return c.restoreRaisedTimeout()
	}

	if err := c.transport.SetBitRate(DefaultBitRate); err != nil {
		c.session.state = StateDisconnected
		return fmt.Errorf("%w: setting %d bps: %w", ErrConnectFailed, DefaultBitRate, err)
	}

	err := RetryWithConfig(ctx, c.config.RetryConfig, func() error {
		return c.probe(ctx)
	})
	if err != nil {
		c.session.state = StateDisconnected
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	c.session.state = StateEstablished
	Debugf("session established at %d bps", c.session.bitRate)
	return c.restoreRaisedTimeout()
}

// restoreRaisedTimeout re-applies a timeout raised by withTimeout after the
// handshake ran at the normal one, so a replayed action keeps its budget.
func (c *Camera) restoreRaisedTimeout() error {
	if c.raised == 0 {
		return nil
	}
	if err := c.transport.SetTimeout(c.raised); err != nil {
		return fmt.Errorf("failed to raise timeout: %w", err)
	}
	return nil
}

// probe sends one NUL and expects NAK. Any other answer, or silence, is a
// retryable failure; transport faults are returned as they are.
func (c *Camera) probe(ctx context.Context) error {
	if err := c.send(ctx, Control(KindNUL)); err != nil {
		return err
	}
	reply, err := c.receive()
	if err != nil {
		return err
	}
	if reply.Kind != KindNAK {
		return NewTransportError("handshake", c.profile.Name,
			fmt.Errorf("camera answered %s to NUL", reply.Kind), ErrorTypeTransient)
	}
	return nil
}

// requireSession fails fast when Connect has not succeeded.
func (c *Camera) requireSession() error {
	if c.session.state != StateEstablished {
		return fmt.Errorf("%w: session is %s", ErrNotConnected, c.session.state)
	}
	return nil
}

// withSession runs one exchange step. When the camera invalidates the
// session the link is re-established at the default bit rate and the step
// runs again, which re-sends the same outbound packet. Steps must therefore
// be safe to repeat.
func (c *Camera) withSession(ctx context.Context, step func() error) error {
	if err := c.requireSession(); err != nil {
		return err
	}

	for recovery := 0; ; recovery++ {
		err := step()
		if !errors.Is(err, ErrSessionInvalidated) {
			return err
		}
		if recovery >= SessionRecoveries {
			Debugf("session lost %d times, giving up", recovery+1)
			return err
		}

		Debugf("session invalidated (%v), reconnecting", err)
		c.session.recoveries++
		if cerr := c.connect(ctx); cerr != nil {
			return errors.Join(err, cerr)
		}
	}
}

// Recoveries returns how many times the session was transparently
// re-established since the camera was created.
func (c *Camera) Recoveries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.recoveries
}
