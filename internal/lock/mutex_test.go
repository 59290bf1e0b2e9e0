package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// At most one guard may be live at any instant.
func TestMutexExclusive(t *testing.T) {
	t.Parallel()

	const goroutines = 32
	const iterations = 200

	m := NewMutex(0)
	var inside, peak atomic.Int64

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				g, err := m.Lock(context.Background())
				if err != nil {
					t.Errorf("lock: %v", err)
					return
				}
				cur := inside.Add(1)
				for {
					prev := peak.Load()
					if cur <= prev || peak.CompareAndSwap(prev, cur) {
						break
					}
				}
				*g.Value()++
				inside.Add(-1)
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), peak.Load())

	g, ok := m.TryLock()
	require.True(t, ok)
	defer g.Unlock()
	assert.Equal(t, goroutines*iterations, *g.Value())
}

func TestMutexLockBlocksUntilUnlock(t *testing.T) {
	t.Parallel()

	m := NewMutex("a")
	g, err := m.Lock(context.Background())
	require.NoError(t, err)

	done := make(chan *Guard[string], 1)
	go func() {
		g2, err := m.Lock(context.Background())
		if err != nil {
			t.Errorf("second lock: %v", err)
		}
		done <- g2
	}()

	select {
	case <-done:
		t.Fatal("expected second lock to block before unlock")
	case <-time.After(25 * time.Millisecond):
	}

	*g.Value() = "b"
	g.Unlock()

	select {
	case g2 := <-done:
		assert.Equal(t, "b", *g2.Value())
		g2.Unlock()
	case <-time.After(time.Second):
		t.Fatal("expected second lock to succeed after unlock")
	}
}

func TestMutexLockContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ctx     func() (context.Context, context.CancelFunc)
		held    bool
		wantErr error
	}{
		{
			name: "timeout_while_held",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 10*time.Millisecond)
			},
			held:    true,
			wantErr: context.DeadlineExceeded,
		},
		{
			name: "already_canceled_free_lock",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			held:    false,
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMutex(struct{}{})
			if tt.held {
				g, err := m.Lock(context.Background())
				require.NoError(t, err)
				defer g.Unlock()
			}

			ctx, cancel := tt.ctx()
			defer cancel()

			g, err := m.Lock(ctx)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			assert.Equal(t, tt.held, m.Locked(), "cancellation must not change lock state")
		})
	}
}

func TestMutexTryLock(t *testing.T) {
	t.Parallel()

	m := NewMutex(1)

	g, ok := m.TryLock()
	require.True(t, ok)

	g2, ok := m.TryLock()
	assert.False(t, ok)
	assert.Nil(t, g2)

	g.Unlock()

	g3, ok := m.TryLock()
	require.True(t, ok)
	g3.Unlock()
}

// A panic inside the critical section must not leave the lock held.
func TestMutexReleasedAfterPanic(t *testing.T) {
	t.Parallel()

	m := NewMutex(0)

	func() {
		defer func() {
			r := recover()
			require.Equal(t, "boom", r)
		}()
		_ = m.With(context.Background(), func(v *int) error {
			*v = 7
			panic("boom")
		})
	}()

	g, ok := m.TryLock()
	require.True(t, ok, "expected lock to be free after panic")
	assert.Equal(t, 7, *g.Value())
	g.Unlock()
}

func TestMutexWithError(t *testing.T) {
	t.Parallel()

	m := NewMutex(0)
	sentinel := errors.New("partial")

	err := m.With(context.Background(), func(v *int) error {
		*v++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	assert.False(t, m.Locked())
}

func TestGuardReleaseOnce(t *testing.T) {
	t.Parallel()

	m := NewMutex(0)
	g, err := m.Lock(context.Background())
	require.NoError(t, err)
	g.Unlock()

	assert.PanicsWithValue(t, ErrReleased, func() { g.Unlock() })
	assert.PanicsWithValue(t, ErrReleased, func() { _ = g.Value() })
	assert.False(t, m.Locked(), "double release must not corrupt the lock")
}

func BenchmarkMutexParallel(b *testing.B) {
	m := NewMutex(0)
	ctx := context.Background()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g, err := m.Lock(ctx)
			if err != nil {
				b.Fatal(err)
			}
			*g.Value()++
			g.Unlock()
		}
	})
}
