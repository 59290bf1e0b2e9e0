// Package syncs selects the mutex implementation used for the short
// internal critical sections of the coordination primitives.
//
// Normal builds use sync.Mutex. Building with the deadlock tag replaces it
// with github.com/sasha-s/go-deadlock, which reports lock-order inversions
// and waits longer than its timeout. Neither build detects deadlocks in
// caller code that misuses the public locks.
package syncs
