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

package testing

import (
	"math/rand/v2"
	"sync"
	"time"

	sierra "github.com/ZaparooProject/go-sierra"
)

// JitterConfig configures JitteryTransport.
type JitterConfig struct {
	MaxLatency       time.Duration
	FragmentMinBytes int
	StallAfterBytes  int
	StallDuration    time.Duration
	Seed             uint64
	FragmentReads    bool
	// BoundaryStress splits reads at 64-byte boundaries the way USB-serial
	// bridges hand data over.
	BoundaryStress bool
}

// DefaultJitterConfig fragments every read without adding latency.
func DefaultJitterConfig() JitterConfig {
	return JitterConfig{
		FragmentReads:    true,
		FragmentMinBytes: 1,
	}
}

// JitteryTransport wraps a sierra.Transport and delivers what the backend
// reads in random fragments, with optional latency and a one-off stall, as
// cheap USB-serial adapters do. Bytes read from the backend are buffered
// so fragmentation never loses data.
type JitteryTransport struct {
	sierra.Transport
	rng                 *rand.Rand
	readBuf             []byte
	config              JitterConfig
	bytesReadSinceStall int
	mu                  sync.Mutex
	stallTriggered      bool
}

// NewJitteryTransport wraps backend. A zero seed picks a random one.
func NewJitteryTransport(backend sierra.Transport, config JitterConfig) *JitteryTransport {
	seed := config.Seed
	if seed == 0 {
		seed = rand.Uint64() //nolint:gosec // test code
	}
	if config.FragmentMinBytes < 1 {
		config.FragmentMinBytes = 1
	}
	return &JitteryTransport{
		Transport: backend,
		config:    config,
		rng:       rand.New(rand.NewPCG(seed, seed^0xDEADBEEF)), //nolint:gosec // test code
		readBuf:   make([]byte, 0, 1024),
	}
}

// Read returns buffered bytes in fragments, refilling from the backend
// when the buffer is empty.
func (j *JitteryTransport) Read(buf []byte) (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.config.MaxLatency > 0 {
		if delay := time.Duration(j.rng.Int64N(int64(j.config.MaxLatency) + 1)); delay > 0 {
			time.Sleep(delay)
		}
	}

	if len(j.readBuf) == 0 {
		tmp := make([]byte, 1024)
		n, err := j.Transport.Read(tmp)
		if n == 0 {
			return 0, err //nolint:wrapcheck // pass-through
		}
		j.readBuf = append(j.readBuf, tmp[:n]...)
	}

	toReturn := min(len(j.readBuf), len(buf))

	if j.config.StallAfterBytes > 0 && !j.stallTriggered {
		if j.bytesReadSinceStall >= j.config.StallAfterBytes {
			j.stallTriggered = true
			time.Sleep(j.config.StallDuration)
		} else {
			toReturn = min(toReturn, j.config.StallAfterBytes-j.bytesReadSinceStall)
		}
	}

	if j.config.BoundaryStress {
		untilBoundary := 64 - j.bytesReadSinceStall%64
		toReturn = min(toReturn, untilBoundary)
	}

	if j.config.FragmentReads && toReturn > j.config.FragmentMinBytes {
		toReturn = j.config.FragmentMinBytes + j.rng.IntN(toReturn-j.config.FragmentMinBytes+1)
	}

	copy(buf, j.readBuf[:toReturn])
	j.readBuf = j.readBuf[toReturn:]
	j.bytesReadSinceStall += toReturn
	return toReturn, nil
}

// ResetStallState re-arms the stall.
func (j *JitteryTransport) ResetStallState() {
	j.mu.Lock()
	j.bytesReadSinceStall = 0
	j.stallTriggered = false
	j.mu.Unlock()
}

// ClearBuffer drops buffered bytes.
func (j *JitteryTransport) ClearBuffer() {
	j.mu.Lock()
	j.readBuf = j.readBuf[:0]
	j.mu.Unlock()
}
