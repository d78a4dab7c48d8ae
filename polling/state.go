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

import "time"

// WatchState is the watcher's view of the camera link
type WatchState int

const (
	StateIdle WatchState = iota
	StateWatching
	StateRecovering
	StateLost
)

// String returns the state name
func (s WatchState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateRecovering:
		return "recovering"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// CameraState tracks what the last successful poll saw
type CameraState struct {
	LastPoll time.Time
	Count    int
	State    WatchState
	Primed   bool
}

// Observe records a new item count. The first observation only sets the
// baseline. Items are numbered from 1, so a count growing from 3 to 5 adds
// items 4 and 5. A shrinking count reports how many items went away.
func (cs *CameraState) Observe(count int, at time.Time) (added []int, removed int) {
	cs.LastPoll = at
	cs.State = StateWatching
	if !cs.Primed {
		cs.Primed = true
		cs.Count = count
		return nil, 0
	}

	switch {
	case count > cs.Count:
		for i := cs.Count + 1; i <= count; i++ {
			added = append(added, i)
		}
	case count < cs.Count:
		removed = cs.Count - count
	}
	cs.Count = count
	return added, removed
}
