package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireSpacesRequests(t *testing.T) {
	t.Parallel()

	l := New(100 * time.Millisecond)
	ctx := context.Background()

	// First acquisition is immediate.
	start := time.Now()
	require.NoError(t, l.Acquire(ctx))
	require.Less(t, time.Since(start), 50*time.Millisecond)

	// Second acquisition waits for the configured delay.
	start = time.Now()
	require.NoError(t, l.Acquire(ctx))
	require.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestAcquireZeroDelayNeverBlocks(t *testing.T) {
	t.Parallel()

	l := New(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire(ctx))
	}
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	l := New(time.Hour)
	ctx := context.Background()
	require.NoError(t, l.Acquire(ctx))

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := l.Acquire(cancelCtx)
	require.Error(t, err)
}

func TestConcurrentAcquisitionsSerialize(t *testing.T) {
	t.Parallel()

	const delay = 50 * time.Millisecond
	l := New(delay)
	ctx := context.Background()

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, l.Acquire(ctx))
		}()
	}
	wg.Wait()

	// Four grants from a cold bucket need at least three full delays.
	require.GreaterOrEqual(t, time.Since(start), 3*delay-10*time.Millisecond)
}
