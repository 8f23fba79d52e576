package shutdown

import (
	"sync"
)

// Canceller broadcasts a cancellation request to every live worker
type Canceller interface {
	CancelAll() int
}

// Coordinator counts live workers and lets Drain wait for them to finish
type Coordinator struct {
	mu       sync.Mutex
	zero     *sync.Cond
	live     int
	draining bool
}

// New returns a coordinator with no live workers that admits new ones
func New() *Coordinator {
	c := &Coordinator{}
	c.zero = sync.NewCond(&c.mu)
	return c
}

// Enter counts a new worker. It returns false once draining has started, in
// which case the worker must not run.
func (c *Coordinator) Enter() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.draining {
		return false
	}
	c.live++
	return true
}

// Leave uncounts a worker that Enter admitted and wakes Drain when the count
// reaches zero.
func (c *Coordinator) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.live == 0 {
		panic("shutdown: Leave without matching Enter")
	}
	c.live--
	if c.live == 0 {
		c.zero.Broadcast()
	}
}

// Live returns the number of admitted workers that have not left
func (c *Coordinator) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live
}

// Draining reports whether Drain has been called
func (c *Coordinator) Draining() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draining
}

// Drain stops admitting workers, asks every live worker to cancel, and blocks
// until all of them have left. The coordinator's lock is not held while
// cancel runs.
func (c *Coordinator) Drain(cancel Canceller) {
	c.mu.Lock()
	c.draining = true
	c.mu.Unlock()

	if cancel != nil {
		cancel.CancelAll()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for c.live != 0 {
		c.zero.Wait()
	}
}
