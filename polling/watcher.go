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
	"sync/atomic"
	"time"

	sierra "github.com/ZaparooProject/go-sierra"
	"github.com/ZaparooProject/go-sierra/internal/syncutil"
)

// WatcherMetrics counts watcher activity
type WatcherMetrics struct {
	PollCycles    int64
	PollErrors    int64
	ItemsAdded    int64
	Recoveries    int64
	LastPollDelay time.Duration
}

// Watcher polls a camera's item count and reports pictures taken or deleted
// on the camera itself. Sierra cameras have no event channel, so polling is
// the only way to notice a shutter press.
type Watcher struct {
	// OnItemAdded is called once per new item, in index order. An error
	// stops the watcher.
	OnItemAdded func(camera *sierra.Camera, index int) error
	// OnItemsRemoved is called when the item count shrinks
	OnItemsRemoved func(count int)
	// OnCameraLost is called once when recovery gives up
	OnCameraLost func(err error)

	config    *Config
	recoverer CameraRecoverer
	camera    *sierra.Camera
	now       func() time.Time
	state     CameraState
	mu        syncutil.RWMutex
	cycles    atomic.Int64
	errs      atomic.Int64
	added     atomic.Int64
	recovered atomic.Int64
	lastDelay atomic.Int64
}

// NewWatcher creates a watcher for a connected camera
func NewWatcher(camera *sierra.Camera, config *Config) *Watcher {
	if config == nil {
		config = DefaultConfig()
	}
	return &Watcher{
		camera: camera,
		config: config,
		now:    time.Now,
		recoverer: NewDefaultRecoverer(camera, nil,
			config.SleepRecovery.RecoveryBackoff, config.SleepRecovery.MaxRecoveryAttempts),
	}
}

// SetRecoverer replaces the default handshake-only recoverer, for example
// with one that can reopen the serial port.
func (w *Watcher) SetRecoverer(r CameraRecoverer) {
	w.mu.Lock()
	w.recoverer = r
	w.mu.Unlock()
}

// Camera returns the camera currently being watched
func (w *Watcher) Camera() *sierra.Camera {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.camera
}

// State returns a copy of the current watch state
func (w *Watcher) State() CameraState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Metrics returns a snapshot of the watcher counters
func (w *Watcher) Metrics() WatcherMetrics {
	return WatcherMetrics{
		PollCycles:    w.cycles.Load(),
		PollErrors:    w.errs.Load(),
		ItemsAdded:    w.added.Load(),
		Recoveries:    w.recovered.Load(),
		LastPollDelay: time.Duration(w.lastDelay.Load()),
	}
}

// Start polls until ctx is done, a callback fails, or the camera is lost.
// The first poll happens immediately and sets the baseline count.
func (w *Watcher) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil {
			return err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// poll runs one cycle: sleep check, item count read, callbacks.
func (w *Watcher) poll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.cycles.Add(1)

	now := w.now()
	w.mu.RLock()
	last := w.state.LastPoll
	w.mu.RUnlock()

	if !last.IsZero() {
		elapsed := now.Sub(last)
		w.lastDelay.Store(int64(elapsed))
		if w.config.SleepRecovery.DetectSleep(elapsed, w.config.PollInterval) {
			sierra.Debugf("watcher: %v since last poll, assuming host sleep", elapsed)
			if err := w.reconnect(ctx, nil); err != nil {
				return err
			}
		}
	}

	count, err := w.Camera().NumItems(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.errs.Add(1)
		if !sierra.IsFatal(err) && !errors.Is(err, sierra.ErrSessionInvalidated) {
			sierra.Debugf("watcher: poll failed: %v", err)
			return nil
		}
		if rerr := w.reconnect(ctx, err); rerr != nil {
			return rerr
		}
		if count, err = w.Camera().NumItems(ctx); err != nil {
			w.errs.Add(1)
			return nil
		}
	}

	return w.observe(count)
}

// observe updates the state and runs callbacks outside the lock.
func (w *Watcher) observe(count int) error {
	w.mu.Lock()
	added, removed := w.state.Observe(count, w.now())
	camera := w.camera
	onAdded, onRemoved := w.OnItemAdded, w.OnItemsRemoved
	w.mu.Unlock()

	if removed > 0 && onRemoved != nil {
		onRemoved(removed)
	}
	for _, index := range added {
		w.added.Add(1)
		if onAdded == nil {
			continue
		}
		if err := onAdded(camera, index); err != nil {
			return fmt.Errorf("item %d callback: %w", index, err)
		}
	}
	return nil
}

// reconnect runs the recoverer. cause is the poll error that triggered it, or
// nil after a detected sleep.
func (w *Watcher) reconnect(ctx context.Context, cause error) error {
	w.mu.Lock()
	w.state.State = StateRecovering
	recoverer := w.recoverer
	w.mu.Unlock()

	if !w.config.SleepRecovery.Enabled {
		return w.lost(cause)
	}

	if err := recoverer.AttemptRecovery(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return w.lost(errors.Join(cause, err))
	}

	w.recovered.Add(1)
	w.mu.Lock()
	w.camera = recoverer.Camera()
	w.state.State = StateWatching
	w.mu.Unlock()
	sierra.Debugf("watcher: camera recovered")
	return nil
}

func (w *Watcher) lost(err error) error {
	if err == nil {
		err = sierra.ErrNotConnected
	}
	w.mu.Lock()
	w.state.State = StateLost
	onLost := w.OnCameraLost
	w.mu.Unlock()

	if onLost != nil {
		onLost(err)
	}
	return fmt.Errorf("camera lost: %w", err)
}
