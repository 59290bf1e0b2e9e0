//go:build !deadlock

package syncs

import "sync"

// Mutex is the lock guarding the internal state of the coordination
// primitives. Build with -tags deadlock to swap in a lock-order checker.
type Mutex = sync.Mutex
