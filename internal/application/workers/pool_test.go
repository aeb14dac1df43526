package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ogghst/puntini/pkg/adapters/metrics/nop"
)

func newTestPool(t *testing.T, size, depth int) *Pool {
	t.Helper()
	pool := NewPool(size, depth, nop.NewCollector(), zap.NewNop(), time.Minute)
	require.NoError(t, pool.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	return pool
}

func TestPoolRunsSubmittedJobs(t *testing.T) {
	pool := newTestPool(t, 2, 16)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			mu.Lock()
			seen++
			mu.Unlock()
		})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.Equal(t, 10, seen)
}

func TestPoolStartTwiceFails(t *testing.T) {
	pool := newTestPool(t, 1, 4)
	assert.Error(t, pool.Start())
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	pool := newTestPool(t, 1, 1)

	block := make(chan struct{})
	done := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		<-block
		close(done)
	}))

	// Fill the queue behind the busy worker, then overflow it.
	var overflow error
	for i := 0; i < 3; i++ {
		if err := pool.Submit(func() {}); err != nil {
			overflow = err
			break
		}
	}
	assert.Error(t, overflow)

	close(block)
	<-done
}

func TestPoolShutdownRejectsNewJobs(t *testing.T) {
	pool := NewPool(1, 4, nop.NewCollector(), zap.NewNop(), time.Minute)
	require.NoError(t, pool.Start())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	assert.Error(t, pool.Submit(func() {}))
}

func TestPoolStatusAndHealth(t *testing.T) {
	pool := newTestPool(t, 3, 8)

	status := pool.GetStatus()
	assert.Len(t, status, 3)

	assert.True(t, pool.health.IsHealthy())
}
