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
	"fmt"
	"io"
)

// Progress reports a bulk transfer in flight.
type Progress struct {
	// Register being read or written
	Register Register
	// Done is the number of bytes transferred so far
	Done int64
	// Total is the expected size, 0 when unknown
	Total int64
}

// Fraction returns Done/Total, or 0 when the size is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressFunc receives progress updates. It runs with the camera lock
// held and must not call back into the Camera.
type ProgressFunc func(Progress)

// transfer tracks one bulk register operation from its first packet to the
// acknowledged DATA_END.
type transfer struct {
	sink     io.Writer
	progress ProgressFunc
	total    int64
	// done counts bytes delivered to the sink (or acknowledged by the
	// camera when sending); pos counts bytes seen in the current attempt
	done     int64
	pos      int64
	register Register
}

func newTransfer(reg Register, total int64, sink io.Writer, progress ProgressFunc) *transfer {
	return &transfer{
		register: reg,
		total:    total,
		sink:     sink,
		progress: progress,
	}
}

// restart begins a new attempt after the command was replayed. Bytes the
// sink already holds are skipped when they arrive again.
func (t *transfer) restart() {
	if t.pos > 0 {
		Debugf("register %d: replaying transfer, %d bytes already delivered", t.register, t.done)
	}
	t.pos = 0
}

// write hands a received chunk to the sink.
func (t *transfer) write(chunk []byte) error {
	start := t.pos
	t.pos += int64(len(chunk))
	if t.pos <= t.done {
		return nil
	}
	if start < t.done {
		chunk = chunk[t.done-start:]
	}

	n, err := t.sink.Write(chunk)
	t.done += int64(n)
	if err != nil {
		return fmt.Errorf("writing register %d data: %w", t.register, err)
	}
	if n < len(chunk) {
		return fmt.Errorf("writing register %d data: %w", t.register, io.ErrShortWrite)
	}
	t.report()
	return nil
}

// advance records an acknowledged outgoing chunk.
func (t *transfer) advance(n int64) {
	t.done += n
	t.pos = t.done
	t.report()
}

func (t *transfer) report() {
	if t.progress == nil {
		return
	}
	t.progress(Progress{Register: t.register, Done: t.done, Total: t.total})
}
