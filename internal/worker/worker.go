package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"lockkv/internal/logger"
)

// Job is a unit of work. ctx is cancelled when the pool stops.
type Job func(ctx context.Context)

// PoolConfig configures a Pool
type PoolConfig struct {
	NumWorkers  int // goroutines (0 = CPU count)
	QueueFactor int // queue size = NumWorkers * QueueFactor
}

// DefaultPoolConfig returns the default configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers:  0,
		QueueFactor: 100,
	}
}

// Pool runs jobs on a fixed set of goroutines
type Pool struct {
	numWorkers int
	jobs       chan Job
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	started    bool
	stopping   atomic.Bool
	completed  atomic.Uint64
	mu         sync.Mutex
}

// NewPool creates a pool of numWorkers goroutines (0 or less = CPU count)
func NewPool(numWorkers int) *Pool {
	config := DefaultPoolConfig()
	config.NumWorkers = numWorkers
	return NewPoolWithConfig(config)
}

// NewPoolWithConfig creates a pool from config
func NewPoolWithConfig(config PoolConfig) *Pool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	queueFactor := config.QueueFactor
	if queueFactor <= 0 {
		queueFactor = 100
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numWorkers*queueFactor),
	}
}

// Start launches the workers. Calling it again is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for i := range p.numWorkers {
		p.wg.Add(1)
		go p.worker(i)
	}

	logger.Debug("worker", "pool started with %d workers", p.numWorkers)
}

func (p *Pool) worker(_ int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			job(p.ctx)
			p.completed.Add(1)
		}
	}
}

// SubmitWait queues job, blocking while the queue is full. It returns false
// once the pool is stopping.
func (p *Pool) SubmitWait(job Job) bool {
	if p.stopping.Load() {
		return false
	}

	select {
	case <-p.ctx.Done():
		return false
	default:
	}

	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Stop cancels the pool context and waits for running jobs to return.
// Queued jobs that have not started are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.stopping.Store(true)
	p.cancel()
	p.wg.Wait()

	p.mu.Lock()
	p.started = false
	p.mu.Unlock()

	logger.Debug("worker", "pool stopped after %d jobs", p.completed.Load())
}

// NumWorkers returns the number of worker goroutines
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Completed returns the number of jobs that have finished
func (p *Pool) Completed() uint64 {
	return p.completed.Load()
}
