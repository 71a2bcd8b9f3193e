package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasksBeforeStop(t *testing.T) {
	pool := NewWorkerPool(4, 100, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var done atomic.Int64
	for i := 0; i < 50; i++ {
		require.True(t, pool.Submit(func(context.Context) {
			done.Add(1)
		}))
	}

	require.NoError(t, pool.Stop())
	assert.Equal(t, int64(50), done.Load())
}

func TestWorkerPool_RecoversFromPanic(t *testing.T) {
	pool := NewWorkerPool(1, 10, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	var done atomic.Bool
	pool.Submit(func(context.Context) { panic("boom") })
	pool.Submit(func(context.Context) { done.Store(true) })

	require.NoError(t, pool.Stop())
	assert.True(t, done.Load())
	assert.Equal(t, int64(0), pool.GetStats()["busy_workers"])
}

func TestWorkerPool_DropsWhenQueueFull(t *testing.T) {
	pool := NewWorkerPool(1, 1, zerolog.Nop())

	// Not started: the single queue slot fills and stays full.
	require.True(t, pool.Submit(func(context.Context) {}))

	began := time.Now()
	assert.False(t, pool.Submit(func(context.Context) {}))
	assert.Less(t, time.Since(began), 100*time.Millisecond, "submit must not wait for room")

	require.NoError(t, pool.Start(context.Background()))
	require.NoError(t, pool.Stop())
}

func TestWorkerPool_StopIsIdempotent(t *testing.T) {
	pool := NewWorkerPool(2, 2, zerolog.Nop())
	require.NoError(t, pool.Start(context.Background()))

	require.NoError(t, pool.Stop())
	require.NoError(t, pool.Stop())
	assert.False(t, pool.Submit(func(context.Context) {}))
}

func TestWorkerPool_TasksOutliveStartContext(t *testing.T) {
	pool := NewWorkerPool(1, 10, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))
	cancel()

	var taskErr atomic.Value
	pool.Submit(func(ctx context.Context) {
		taskErr.Store(ctx.Err() == nil)
	})

	require.NoError(t, pool.Stop())
	assert.Equal(t, true, taskErr.Load())
}

func TestWorkerPool_GetStats(t *testing.T) {
	pool := NewWorkerPool(3, 7, zerolog.Nop())

	stats := pool.GetStats()
	assert.Equal(t, 3, stats["max_workers"])
	assert.Equal(t, 7, stats["queue_capacity"])
	assert.Equal(t, 0, stats["queue_length"])
}
