package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrQueueFull  = errors.New("job queue is full")
	ErrPoolClosed = errors.New("worker pool is shut down")
)

// Handler processes one job end to end.
type Handler interface {
	Process(ctx context.Context, id uuid.UUID) error
}

// Pool runs queued jobs on a fixed number of workers. Enqueue never blocks;
// a full queue is reported to the caller instead.
type Pool struct {
	jobs    chan uuid.UUID
	workers int
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewPool(workers, queueSize int, log *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pool{
		jobs:    make(chan uuid.UUID, queueSize),
		workers: workers,
		log:     log,
	}
}

// Enqueue implements service.JobQueue.
func (p *Pool) Enqueue(ctx context.Context, id uuid.UUID) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- id:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is done. Jobs still queued at
// that point are handed to h with the cancelled ctx so they reach a
// terminal state; Run returns once every worker has exited.
func (p *Pool) Run(ctx context.Context, h Handler) {
	p.log.Info("worker pool started", "workers", p.workers, "queue_size", cap(p.jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for id := range p.jobs {
				if err := h.Process(ctx, id); err != nil {
					p.log.Warn("process job", "worker", n, "job_id", id, "err", err)
				}
			}
		}(i + 1)
	}

	<-ctx.Done()

	p.mu.Lock()
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	wg.Wait()
	p.log.Info("worker pool stopped")
}
