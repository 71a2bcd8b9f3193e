package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context)

// WorkerPool runs tasks on a fixed number of goroutines fed by a bounded queue.
type WorkerPool struct {
	tasks       chan Task
	wg          sync.WaitGroup
	busyWorkers atomic.Int64
	maxWorkers  int
	logger      zerolog.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorkerPool(maxWorkers, queueSize int, logger zerolog.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = maxWorkers * 10
	}
	return &WorkerPool{
		tasks:      make(chan Task, queueSize),
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

func (wp *WorkerPool) Start(ctx context.Context) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.started || wp.stopped {
		return nil
	}
	wp.started = true
	// Tasks outlive the request that queued them.
	wp.ctx, wp.cancel = context.WithCancel(context.WithoutCancel(ctx))

	wp.logger.Info().Int("max_workers", wp.maxWorkers).Msg("Starting worker pool")

	for i := 0; i < wp.maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i, wp.ctx)
	}

	return nil
}

// Stop drains the queue and waits for the workers to finish.
func (wp *WorkerPool) Stop() error {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return nil
	}
	wp.stopped = true
	close(wp.tasks)
	wp.mu.Unlock()

	wp.logger.Info().Msg("Stopping worker pool")
	wp.wg.Wait()
	if wp.cancel != nil {
		wp.cancel()
	}
	wp.logger.Info().Msg("Worker pool stopped")
	return nil
}

// Submit queues task without blocking and reports whether it was accepted. A full queue drops the task.
func (wp *WorkerPool) Submit(task Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		wp.logger.Error().Msg("Task submitted to a stopped worker pool")
		return false
	}

	select {
	case wp.tasks <- task:
		return true
	default:
		wp.logger.Error().
			Int("queue_capacity", cap(wp.tasks)).
			Msg("Worker pool task queue is full, task dropped")
		return false
	}
}

func (wp *WorkerPool) worker(id int, ctx context.Context) {
	defer wp.wg.Done()

	wp.logger.Debug().Int("worker_id", id).Msg("Worker started")

	for task := range wp.tasks {
		wp.run(ctx, id, task)
	}

	wp.logger.Debug().Int("worker_id", id).Msg("Worker stopped")
}

func (wp *WorkerPool) run(ctx context.Context, id int, task Task) {
	wp.busyWorkers.Add(1)
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error().
				Int("worker_id", id).
				Interface("panic", r).
				Msg("Worker recovered from panic")
		}
		wp.busyWorkers.Add(-1)
	}()

	task(ctx)
}

func (wp *WorkerPool) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"busy_workers":   wp.busyWorkers.Load(),
		"max_workers":    wp.maxWorkers,
		"queue_length":   len(wp.tasks),
		"queue_capacity": cap(wp.tasks),
	}
}
