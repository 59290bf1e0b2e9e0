//go:build deadlock

package syncs

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Mutex reports lock-order inversions and long waits on the internal
// state locks. Only compiled with -tags deadlock.
type Mutex = deadlock.Mutex

func init() {
	deadlock.Opts.DeadlockTimeout = 10 * time.Second
}
