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

package polling

import (
	"context"
	"errors"
	"fmt"
	"time"

	sierra "github.com/ZaparooProject/go-sierra"
	"github.com/ZaparooProject/go-sierra/internal/syncutil"
)

// CameraRecoverer re-establishes a lost camera link
type CameraRecoverer interface {
	// AttemptRecovery tries to bring the camera back.
	// Returns nil if recovery was successful, error otherwise.
	AttemptRecovery(ctx context.Context) error

	// Camera returns the current camera (may change after a reopen)
	Camera() *sierra.Camera
}

// ReopenFunc opens a fresh camera, typically through sierra.ConnectCamera
type ReopenFunc func(ctx context.Context) (*sierra.Camera, error)

// DefaultRecoverer implements a tiered recovery strategy:
// 1. Repeat the handshake on the existing transport
// 2. Close the camera and open a new one through the reopen function
type DefaultRecoverer struct {
	camera      *sierra.Camera
	reopenFunc  ReopenFunc
	backoff     time.Duration
	maxAttempts int
	mu          syncutil.Mutex
}

// NewDefaultRecoverer creates a tiered recoverer.
// If reopenFunc is nil, only the handshake is retried.
func NewDefaultRecoverer(
	camera *sierra.Camera,
	reopenFunc ReopenFunc,
	backoff time.Duration,
	maxAttempts int,
) *DefaultRecoverer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &DefaultRecoverer{
		camera:      camera,
		reopenFunc:  reopenFunc,
		backoff:     backoff,
		maxAttempts: maxAttempts,
	}
}

var errTransportGone = errors.New("transport is no longer connected")

// AttemptRecovery implements the tiered recovery
func (r *DefaultRecoverer) AttemptRecovery(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error

	for attempt := range r.maxAttempts {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff):
			}
		}

		// Tier 1: handshake again, only meaningful while the port is open
		if r.camera.Transport().IsConnected() {
			err := r.camera.Connect(ctx)
			if err == nil {
				return nil
			}
			lastErr = err
		} else {
			lastErr = errTransportGone
		}

		// Tier 2: full reopen
		if r.reopenFunc != nil {
			_ = r.camera.Close()
			camera, err := r.reopenFunc(ctx)
			if err == nil {
				r.camera = camera
				return nil
			}
			lastErr = err
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", sierra.ErrConnectFailed, r.maxAttempts, lastErr)
}

// Camera returns the current camera.
// This may be a different camera after a successful reopen.
func (r *DefaultRecoverer) Camera() *sierra.Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.camera
}
