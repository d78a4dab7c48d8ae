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
	"encoding/binary"
	"fmt"
	"io"
)

// itemInfoSize is the length of the register 47 block.
const itemInfoSize = 32

// ItemInfo is the per-item metadata block.
type ItemInfo struct {
	// Size is the image file size in bytes
	Size uint32
	// PreviewSize is the thumbnail size in bytes
	PreviewSize uint32
	// AudioSize is the size of an attached audio clip, 0 if none
	AudioSize uint32
	// Resolution is the model-specific resolution code
	Resolution uint32
	// Date is the capture time in camera epoch seconds
	Date uint32
	// AnimationType is non-zero for movie items
	AnimationType uint32
	Locked        bool
}

// parseItemInfo decodes the register 47 block: seven little-endian words
// in the order size, preview size, audio size, resolution, lock, date,
// animation type. Trailing bytes are reserved.
func parseItemInfo(block []byte) (*ItemInfo, error) {
	if len(block) < 7*4 {
		return nil, newProtocolError("item info", "block is %d bytes, want %d", len(block), itemInfoSize)
	}
	word := func(i int) uint32 {
		return binary.LittleEndian.Uint32(block[i*4:])
	}
	return &ItemInfo{
		Size:          word(0),
		PreviewSize:   word(1),
		AudioSize:     word(2),
		Resolution:    word(3),
		Locked:        word(4) != 0,
		Date:          word(5),
		AnimationType: word(6),
	}, nil
}

// ItemInfo reads the metadata of a 1-based item. Cameras without register
// 47 are asked for the individual size and lock registers instead, and
// anything they lack reads as zero.
func (c *Camera) ItemInfo(ctx context.Context, index int) (*ItemInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := c.itemInfo(ctx, index)
	return info, c.wrap(err)
}

func (c *Camera) itemInfo(ctx context.Context, index int) (*ItemInfo, error) {
	block, err := c.getBytes(ctx, RegisterItemInfo, index)
	if err == nil {
		return parseItemInfo(block)
	}
	if !IsNotSupported(err) || IsNotFound(err) {
		return nil, err
	}

	// The failed block read already selected the item.
	Debugf("item %d: no metadata block, reading individual registers", index)
	info := &ItemInfo{}
	fields := []struct {
		dst *uint32
		reg Register
	}{
		{&info.Size, RegisterItemSize},
		{&info.PreviewSize, RegisterThumbnailSize},
		{&info.AudioSize, RegisterAudioSize},
	}
	for _, f := range fields {
		if *f.dst, err = c.optionalInt(ctx, f.reg); err != nil {
			return nil, err
		}
	}
	locked, err := c.optionalInt(ctx, RegisterLock)
	if err != nil {
		return nil, err
	}
	info.Locked = locked != 0
	return info, nil
}

// optionalInt reads a scalar that some models lack, defaulting to 0.
func (c *Camera) optionalInt(ctx context.Context, reg Register) (uint32, error) {
	v, err := c.getInt(ctx, reg)
	if IsNotSupported(err) {
		return 0, nil
	}
	return v, err
}

// NumItems returns the number of items stored on the camera.
func (c *Camera) NumItems(ctx context.Context) (int, error) {
	n, err := c.GetInt(ctx, RegisterItemCount)
	return int(n), err
}

// CurrentItem returns the selected item number.
func (c *Camera) CurrentItem(ctx context.Context) (int, error) {
	n, err := c.GetInt(ctx, RegisterCurrentItem)
	return int(n), err
}

// BatteryLevel returns the battery register (percent on most models).
func (c *Camera) BatteryLevel(ctx context.Context) (int, error) {
	n, err := c.GetInt(ctx, RegisterBattery)
	return int(n), err
}

// FreeMemory returns the free space reported by the camera.
func (c *Camera) FreeMemory(ctx context.Context) (uint32, error) {
	return c.GetInt(ctx, RegisterFreeMemory)
}

// Filename returns the name of a 1-based item, "" when the camera does not
// name its files.
func (c *Camera) Filename(ctx context.Context, index int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	name, err := c.filename(ctx, index)
	return name, c.wrap(err)
}

// GetImage streams a picture into sink.
func (c *Camera) GetImage(ctx context.Context, index int, sink io.Writer) (int64, error) {
	return c.download(ctx, RegisterImage, index, sink, func(i *ItemInfo) uint32 { return i.Size })
}

// GetThumbnail streams a thumbnail into sink.
func (c *Camera) GetThumbnail(ctx context.Context, index int, sink io.Writer) (int64, error) {
	return c.download(ctx, RegisterThumbnail, index, sink, func(i *ItemInfo) uint32 { return i.PreviewSize })
}

// GetAudio streams an item's audio clip into sink.
func (c *Camera) GetAudio(ctx context.Context, index int, sink io.Writer) (int64, error) {
	return c.download(ctx, RegisterAudio, index, sink, func(i *ItemInfo) uint32 { return i.AudioSize })
}

// download reads a bulk item register. With a progress callback installed
// the item metadata is read first so progress has a total.
func (c *Camera) download(
	ctx context.Context, reg Register, index int, sink io.Writer, size func(*ItemInfo) uint32,
) (int64, error) {
	if index <= 0 {
		return 0, fmt.Errorf("%w: item index %d", ErrInvalidParameter, index)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expected int64
	if c.config.Progress != nil {
		info, err := c.itemInfo(ctx, index)
		switch {
		case err == nil:
			expected = int64(size(info))
		case IsNotSupported(err) && !IsNotFound(err):
		default:
			return 0, c.wrap(err)
		}
	}

	n, err := c.getString(ctx, reg, index, sink, expected)
	return n, c.wrap(err)
}
