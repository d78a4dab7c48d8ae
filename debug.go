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
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// debugEnabled controls whether debug lines reach the console logger
var debugEnabled atomic.Bool

var (
	loggerMu      sync.RWMutex
	consoleLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05.000"}).
			With().Timestamp().Str("component", "sierra").Logger()
)

func init() {
	if os.Getenv("SIERRA_DEBUG") != "" || os.Getenv("DEBUG") != "" {
		debugEnabled.Store(true)
	}
}

// Debugf logs a debug line.
// Always written to the session log (if initialized); printed through the
// console logger only when debug mode is enabled.
func Debugf(format string, args ...any) {
	emit(func(l *zerolog.Logger) { l.Debug().Msgf(format, args...) })
}

// Debugln logs its operands like fmt.Sprint.
func Debugln(args ...any) {
	msg := fmt.Sprint(args...)
	emit(func(l *zerolog.Logger) { l.Debug().Msg(msg) })
}

func emit(write func(*zerolog.Logger)) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()

	if sessionLogger != nil {
		write(sessionLogger)
	}
	if debugEnabled.Load() {
		write(&consoleLogger)
	}
}

// SetDebugEnabled allows programmatic control of debug logging
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger routes console debug output through an application logger.
func SetLogger(logger zerolog.Logger) {
	loggerMu.Lock()
	consoleLogger = logger
	loggerMu.Unlock()
}
