package worker

import (
	"context"
	"sync"

	"ingestion-portal/internal/logger"

	"github.com/rs/zerolog"
)

// WorkerPool runs fire-and-forget jobs off the request path.
type WorkerPool struct {
	workerCount int
	jobChan     chan func(context.Context) error
	wg          sync.WaitGroup
	stopOnce    sync.Once
	mu          sync.RWMutex // guards stopped and the close of jobChan
	stopped     bool
	log         zerolog.Logger
}

func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
		jobChan:     make(chan func(context.Context) error, workerCount*16),
		log:         logger.Component("worker-pool"),
	}
}

func (wp *WorkerPool) Start(ctx context.Context) {
	wp.log.Info().Int("worker_count", wp.workerCount).Msg("Starting worker pool")

	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop drains queued jobs and waits for the workers to exit.
func (wp *WorkerPool) Stop() {
	wp.stopOnce.Do(func() {
		wp.log.Info().Msg("Stopping worker pool")
		wp.mu.Lock()
		wp.stopped = true
		close(wp.jobChan)
		wp.mu.Unlock()
		wp.wg.Wait()
		wp.log.Info().Msg("Worker pool stopped")
	})
}

// Submit queues job without blocking. It reports false when the job was dropped
// because the queue is full or the pool is stopped.
func (wp *WorkerPool) Submit(job func(context.Context) error) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		wp.log.Warn().Msg("Worker pool stopped, job dropped")
		return false
	}
	select {
	case wp.jobChan <- job:
		return true
	default:
		wp.log.Warn().Msg("Worker pool job queue full, job dropped")
		return false
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	log := wp.log.With().Int("worker_id", id).Logger()
	log.Debug().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("Worker stopping due to context cancellation")
			return
		case job, ok := <-wp.jobChan:
			if !ok {
				log.Debug().Msg("Worker stopping due to closed job channel")
				return
			}

			if err := job(ctx); err != nil {
				log.Error().Err(err).Msg("Job execution failed")
			}
		}
	}
}
