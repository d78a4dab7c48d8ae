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
	"fmt"
	"io"
)

// Action is a device-side verb invoked with opcode 0x02.
type Action byte

// Known actions.
const (
	ActionDeleteAll    Action = 0x01
	ActionCapture      Action = 0x02
	ActionEnd          Action = 0x04
	ActionPreview      Action = 0x05
	ActionDelete       Action = 0x07
	ActionLCDMode      Action = 0x08
	ActionProtectState Action = 0x09
	ActionUpload       Action = 0x0b
)

func (a Action) String() string {
	switch a {
	case ActionDeleteAll:
		return "delete-all"
	case ActionCapture:
		return "capture"
	case ActionEnd:
		return "end"
	case ActionPreview:
		return "preview"
	case ActionDelete:
		return "delete"
	case ActionLCDMode:
		return "lcd-mode"
	case ActionProtectState:
		return "protect"
	case ActionUpload:
		return "upload"
	default:
		return fmt.Sprintf("action(0x%02X)", byte(a))
	}
}

// uploadArm is written to RegisterUploadArm before an upload.
const uploadArm uint32 = 0x0FEC000E

// CaptureResult describes where the camera stored a new picture.
type CaptureResult struct {
	// Filename is empty when the camera has no filename register
	Filename string
	// Index is the 1-based item number of the picture
	Index int
}

// Invoke fires an action. Actions that keep the camera busy before it
// acknowledges need a raised timeout; the helpers below take care of that.
func (c *Camera) Invoke(ctx context.Context, action Action, sub byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrap(c.invoke(ctx, action, sub))
}

func (c *Camera) actionPacket(action Action, sub byte) *Packet {
	return NewCommand(SubtypeCommand, []byte{opAction, byte(action), sub})
}

func (c *Camera) invoke(ctx context.Context, action Action, sub byte) error {
	p := c.actionPacket(action, sub)
	err := c.withSession(ctx, func() error {
		return c.transmit(ctx, p)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	Debugf("action %s(%d) acknowledged", action, sub)
	return nil
}

// Capture takes a picture and reports where it was stored.
func (c *Camera) Capture(ctx context.Context) (*CaptureResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.capture(ctx)
	return res, c.wrap(err)
}

func (c *Camera) capture(ctx context.Context) (*CaptureResult, error) {
	err := c.withTimeout(c.config.CaptureTimeout, func() error {
		return c.invoke(ctx, ActionCapture, 0)
	})
	if err != nil {
		return nil, err
	}

	index, err := c.getInt(ctx, RegisterCurrentItem)
	if err != nil {
		return nil, fmt.Errorf("reading captured item: %w", err)
	}

	name, err := c.filename(ctx, 0)
	if err != nil {
		return nil, err
	}
	return &CaptureResult{Index: int(index), Filename: name}, nil
}

// CapturePreview takes a preview frame and streams it into sink.
func (c *Camera) CapturePreview(ctx context.Context, sink io.Writer) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.withTimeout(c.config.CaptureTimeout, func() error {
		return c.invoke(ctx, ActionPreview, 0)
	})
	if err != nil {
		return 0, c.wrap(err)
	}
	n, err := c.getString(ctx, RegisterImage, 0, sink, 0)
	return n, c.wrap(err)
}

// DeleteItem erases one item.
func (c *Camera) DeleteItem(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.selectItem(ctx, index); err != nil {
		return c.wrap(err)
	}
	return c.wrap(c.invoke(ctx, ActionDelete, 0))
}

// DeleteAll erases every unprotected item.
func (c *Camera) DeleteAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.wrap(c.withTimeout(c.config.CaptureTimeout, func() error {
		return c.invoke(ctx, ActionDeleteAll, 0)
	}))
}

// SetLocked protects or unprotects an item against deletion.
func (c *Camera) SetLocked(ctx context.Context, index int, locked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.selectItem(ctx, index); err != nil {
		return c.wrap(err)
	}
	return c.wrap(c.invoke(ctx, ActionProtectState, boolByte(locked)))
}

// SetLCDMode switches the camera's display mode on or off.
func (c *Camera) SetLCDMode(ctx context.Context, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wrap(c.invoke(ctx, ActionLCDMode, boolByte(on)))
}

// Upload sends a file to the camera.
func (c *Camera) Upload(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	arm := uploadArm
	if err := c.setInt(ctx, RegisterUploadArm, &arm); err != nil {
		return c.wrap(fmt.Errorf("arming upload: %w", err))
	}
	if err := c.setString(ctx, RegisterUploadData, data); err != nil {
		return c.wrap(err)
	}
	return c.wrap(c.invoke(ctx, ActionUpload, 0))
}

// filename reads the name of an item, or of the current item when index is
// 0. Cameras without the register yield "".
func (c *Camera) filename(ctx context.Context, index int) (string, error) {
	raw, err := c.getBytes(ctx, RegisterFilename, index)
	if err != nil {
		if IsNotSupported(err) && !IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return string(bytes.TrimSpace(raw)), nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
