package gate

import (
	"context"
	"sync"
)

// Gate is a process-wide pause switch. While it is stopped, Wait blocks.
type Gate struct {
	mu      sync.Mutex
	stopped bool
	// released is closed by Release to wake every waiter of the current
	// stopped period. Stop installs a fresh channel.
	released chan struct{}
}

// New returns an open gate
func New() *Gate {
	return &Gate{}
}

// Stop makes current and future Wait calls block until Release
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.stopped = true
	g.released = make(chan struct{})
}

// Release opens the gate and wakes all waiters
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.stopped {
		return
	}
	g.stopped = false
	close(g.released)
}

// Stopped reports whether the gate is currently closed
func (g *Gate) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// Wait returns once the gate is open, or with ctx's error if ctx is done
// first. The flag is re-checked after every wake-up, so a Stop that lands
// between a Release and the waiter running keeps it parked.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.stopped {
			g.mu.Unlock()
			return nil
		}
		released := g.released
		g.mu.Unlock()

		select {
		case <-released:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
