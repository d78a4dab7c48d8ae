//go:build !deadlock

// Package syncutil provides the lock types used across the driver. Building
// with -tags=deadlock swaps in go-deadlock so lock-order bugs between the
// camera, its transport and the detector cache are reported at test time.
package syncutil

import "sync"

// Mutex is a plain sync.Mutex in normal builds.
type Mutex struct {
	sync.Mutex
}

// RWMutex is a plain sync.RWMutex in normal builds.
type RWMutex struct {
	sync.RWMutex
}
