package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gate struct {
	open  bool
	count int
}

func TestCondWaitUntilPredicate(t *testing.T) {
	t.Parallel()

	m := NewMutex(gate{})
	c := NewCond(m)

	const waiters = 5
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			g, err := m.Lock(context.Background())
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer g.Unlock()

			if err := c.WaitUntil(context.Background(), g, func(s *gate) bool { return s.open }); err != nil {
				t.Errorf("wait: %v", err)
				return
			}
			g.Value().count++
		}()
	}

	require.Eventually(t, func() bool { return c.Waiters() == waiters }, time.Second, time.Millisecond)

	// A spurious notify without the predicate must not release anyone.
	c.NotifyAll()
	require.Eventually(t, func() bool { return c.Waiters() == waiters }, time.Second, time.Millisecond)

	require.NoError(t, m.With(context.Background(), func(s *gate) error {
		s.open = true
		return nil
	}))
	c.NotifyAll()

	waitOrFail(t, &wg, time.Second)

	g, ok := m.TryLock()
	require.True(t, ok)
	defer g.Unlock()
	assert.Equal(t, waiters, g.Value().count)
}

func TestCondNotifyOneWakesOne(t *testing.T) {
	t.Parallel()

	m := NewMutex(0)
	c := NewCond(m)

	woken := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		go func() {
			g, err := m.Lock(context.Background())
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			_ = c.Wait(context.Background(), g)
			g.Unlock()
			woken <- struct{}{}
		}()
	}

	require.Eventually(t, func() bool { return c.Waiters() == 2 }, time.Second, time.Millisecond)

	c.NotifyOne()

	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("expected one waiter to wake")
	}

	select {
	case <-woken:
		t.Fatal("expected second waiter to keep waiting")
	case <-time.After(25 * time.Millisecond):
	}
	assert.Equal(t, 1, c.Waiters())

	c.NotifyOne()
	select {
	case <-woken:
	case <-time.After(time.Second):
		t.Fatal("expected second waiter to wake")
	}
}

func TestCondNotifyWithoutWaiters(t *testing.T) {
	t.Parallel()

	m := NewMutex(0)
	c := NewCond(m)

	c.NotifyOne()
	c.NotifyAll()

	g, err := m.Lock(context.Background())
	require.NoError(t, err)
	defer g.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// Earlier notifies are not remembered.
	err = c.Wait(ctx, g)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "expected deadline, got %v", err)
}

func TestCondWaitCanceledReacquires(t *testing.T) {
	t.Parallel()

	m := NewMutex(0)
	c := NewCond(m)

	g, err := m.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Wait(ctx, g)
	}()

	require.Eventually(t, func() bool {
		return c.Waiters() == 1 && !m.Locked()
	}, time.Second, time.Millisecond, "expected wait to release the mutex")

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("expected canceled wait to return")
	}

	assert.True(t, m.Locked(), "expected guard to be held again after wait")
	assert.Equal(t, 0, c.Waiters())
	*g.Value() = 1
	g.Unlock()
}

func TestCondWaitForeignGuardPanics(t *testing.T) {
	t.Parallel()

	c := NewCond(NewMutex(0))
	other := NewMutex(0)

	g, ok := other.TryLock()
	require.True(t, ok)
	defer g.Unlock()

	assert.Panics(t, func() { _ = c.Wait(context.Background(), g) })
}
