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

package frame

import "sync"

// BufferPool manages reusable byte slices for outgoing frames.
// Bulk uploads encode one frame per chunk, so reusing the frame buffer keeps
// a multi-megabyte upload from allocating once per packet.
type BufferPool struct {
	// Control bytes and headers
	smallPool sync.Pool
	// Serial-class frames, including the worst-case escaped form
	serialPool sync.Pool
	// USB-class frames
	usbPool sync.Pool
}

// Size thresholds for buffer categories
const (
	SmallBufferSize  = 16
	SerialBufferSize = 2*2048 + 2*Overhead
	USBBufferSize    = 32*1024 + Overhead
)

var defaultPool = NewBufferPool()

func newPool(size int) sync.Pool {
	return sync.Pool{
		New: func() any {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// NewBufferPool creates a new buffer pool
func NewBufferPool() *BufferPool {
	return &BufferPool{
		smallPool:  newPool(SmallBufferSize),
		serialPool: newPool(SerialBufferSize),
		usbPool:    newPool(USBBufferSize),
	}
}

func take(p *sync.Pool, size int) []byte {
	bufPtr, ok := p.Get().(*[]byte)
	if !ok {
		return make([]byte, size)
	}
	return (*bufPtr)[:size]
}

// GetBuffer returns a buffer of at least size bytes. Return it with
// PutBuffer when done.
func (p *BufferPool) GetBuffer(size int) []byte {
	switch {
	case size <= SmallBufferSize:
		return take(&p.smallPool, size)
	case size <= SerialBufferSize:
		return take(&p.serialPool, size)
	case size <= USBBufferSize:
		return take(&p.usbPool, size)
	default:
		return make([]byte, size)
	}
}

// PutBuffer returns a buffer to the pool. Buffers whose capacity does not
// match a pool category are left to the GC.
func (p *BufferPool) PutBuffer(buf []byte) {
	if buf == nil {
		return
	}
	full := buf[:cap(buf)]
	clear(full)

	switch cap(buf) {
	case SmallBufferSize:
		p.smallPool.Put(&full)
	case SerialBufferSize:
		p.serialPool.Put(&full)
	case USBBufferSize:
		p.usbPool.Put(&full)
	}
}

// GetBuffer acquires a buffer from the default pool
func GetBuffer(size int) []byte {
	return defaultPool.GetBuffer(size)
}

// PutBuffer returns a buffer to the default pool
func PutBuffer(buf []byte) {
	defaultPool.PutBuffer(buf)
}
