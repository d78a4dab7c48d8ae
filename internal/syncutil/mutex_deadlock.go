//go:build deadlock

// Package syncutil provides the lock types used across the driver. Building
// with -tags=deadlock swaps in go-deadlock so lock-order bugs between the
// camera, its transport and the detector cache are reported at test time.
package syncutil

import deadlock "github.com/sasha-s/go-deadlock"

// Mutex is a deadlock-detecting mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock-detecting reader/writer mutex.
type RWMutex struct {
	deadlock.RWMutex
}
