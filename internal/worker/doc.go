// Package worker provides a goroutine pool for concurrent job execution.
//
// The Pool manages a fixed number of worker goroutines that process jobs
// from a shared queue. Each job receives the pool's context, which is
// cancelled by Stop.
//
// # Basic Usage
//
//	pool := worker.NewPool(4)
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	pool.SubmitWait(func(ctx context.Context) {
//	    // do work, return early once ctx is done
//	})
//
// # Configuration
//
//	pool := worker.NewPoolWithConfig(worker.PoolConfig{
//	    NumWorkers:  8,
//	    QueueFactor: 200, // queue size = 8 * 200
//	})
//
// # Shutdown
//
// Stop waits for running jobs to return. Jobs still queued are dropped and
// SubmitWait fails once Stop has begun.
package worker
