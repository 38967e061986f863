package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLimiter_AcquireRelease(t *testing.T) {
	l := NewRunLimiter(2, time.Second)

	require.NoError(t, l.Acquire(context.Background()))
	require.NoError(t, l.Acquire(context.Background()))
	assert.Equal(t, LimiterStatus{Active: 2, Available: 0, MaxConcurrent: 2}, l.Status())

	l.Release()
	assert.Equal(t, LimiterStatus{Active: 1, Available: 1, MaxConcurrent: 2}, l.Status())
	l.Release()
}

func TestRunLimiter_Defaults(t *testing.T) {
	l := NewRunLimiter(0, -1)
	assert.Equal(t, 1, l.Status().MaxConcurrent)
	assert.Equal(t, DefaultMaxWait, l.maxWait)
}

func TestRunLimiter_Timeout(t *testing.T) {
	l := NewRunLimiter(1, 20*time.Millisecond)
	require.True(t, l.TryAcquire())
	defer l.Release()

	start := time.Now()
	err := l.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRunLimiter_NoWait(t *testing.T) {
	l := NewRunLimiter(1, 0)
	require.True(t, l.TryAcquire())
	defer l.Release()

	assert.ErrorIs(t, l.Acquire(context.Background()), ErrRunInProgress)
	assert.False(t, l.TryAcquire())
}

func TestRunLimiter_ContextCancelled(t *testing.T) {
	l := NewRunLimiter(1, time.Minute)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	assert.ErrorIs(t, l.Acquire(ctx), context.Canceled)
}

func TestRunLimiter_WaiterGetsSlot(t *testing.T) {
	l := NewRunLimiter(1, time.Second)
	require.True(t, l.TryAcquire())

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release()
	}()

	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
}

func TestRunLimiter_Concurrent(t *testing.T) {
	l := NewRunLimiter(3, time.Second)

	var mu sync.Mutex
	peak := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				return
			}
			defer l.Release()

			mu.Lock()
			peak = max(peak, l.Status().Active)
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, 3)
	assert.Zero(t, l.Status().Active)
}

func TestRunLimiter_WaitForDrain(t *testing.T) {
	l := NewRunLimiter(1, time.Second)
	require.NoError(t, l.WaitForDrain(context.Background()), "idle limiter drains at once")

	require.True(t, l.TryAcquire())
	go func() {
		time.Sleep(30 * time.Millisecond)
		l.Release()
	}()
	require.NoError(t, l.WaitForDrain(context.Background()))

	require.True(t, l.TryAcquire())
	defer l.Release()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitForDrain(ctx), context.DeadlineExceeded)
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	assert.Empty(t, h.List())

	for _, id := range []string{"a", "b", "c", "d"} {
		h.Add(RunResult{ID: id})
	}

	var ids []string
	for _, r := range h.List() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"d", "c", "b"}, ids)

	_, ok := h.Get("a")
	assert.False(t, ok, "evicted")
	got, ok := h.Get("c")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)
}
