// Package lock provides value-owning locks whose protected value is only
// reachable through a guard.
//
// A Mutex or RWLock owns its value. Lock returns a Guard; the value can be
// read and written through the guard until Unlock is called. Guards are
// move-once: releasing a guard twice, or using its value after release,
// panics with ErrReleased. Use With, or defer Unlock right after a successful
// Lock, so the lock is released on every exit path including a panic.
//
// There is no poisoning. A panic inside a critical section releases the
// lock like any other return, and the next Lock succeeds.
//
// Every blocking acquire takes a context. Cancellation returns ctx.Err()
// and leaves the lock state untouched.
//
// Lock ordering is the caller's responsibility; deadlocks are not detected.
// In particular RWLock has no read-to-write upgrade: calling Lock while the
// same goroutine holds a ReadGuard of that lock never returns.
package lock
