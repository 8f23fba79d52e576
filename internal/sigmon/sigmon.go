package sigmon

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"lockkv/internal/logger"
)

// Handlers are invoked from the monitor goroutine, one signal at a time.
// A nil handler ignores its signal.
type Handlers struct {
	// Interrupt runs on SIGINT
	Interrupt func()
	// Terminate runs on SIGTERM
	Terminate func()
}

// Monitor receives SIGINT and SIGTERM on a single goroutine and turns them
// into handler calls. Signal delivery never touches the tree or the worker
// lifecycle directly.
type Monitor struct {
	handlers Handlers
	sigs     chan os.Signal
	stop     chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates a monitor. Nothing is intercepted until Start.
func New(h Handlers) *Monitor {
	return &Monitor{
		handlers: h,
		sigs:     make(chan os.Signal, 4),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start subscribes to SIGINT and SIGTERM and begins dispatching. Calling it
// again is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started || m.stopped {
		return
	}
	m.started = true

	signal.Notify(m.sigs, syscall.SIGINT, syscall.SIGTERM)
	go m.run()

	logger.Debug("sigmon", "monitoring SIGINT and SIGTERM")
}

// Stop restores default signal handling and waits for the monitor goroutine
// to exit. A handler in progress finishes first.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	m.mu.Unlock()

	if !started {
		return
	}
	signal.Stop(m.sigs)
	close(m.stop)
	<-m.done
}

func (m *Monitor) run() {
	defer close(m.done)

	for {
		select {
		case <-m.stop:
			return
		case sig := <-m.sigs:
			m.dispatch(sig)
		}
	}
}

func (m *Monitor) dispatch(sig os.Signal) {
	switch sig {
	case syscall.SIGINT:
		logger.Info("sigmon", "SIGINT received, cancelling all clients")
		if m.handlers.Interrupt != nil {
			m.handlers.Interrupt()
		}
	case syscall.SIGTERM:
		logger.Info("sigmon", "SIGTERM received, shutting down")
		if m.handlers.Terminate != nil {
			m.handlers.Terminate()
		}
	default:
		logger.Warn("sigmon", "unexpected signal %v", sig)
	}
}
