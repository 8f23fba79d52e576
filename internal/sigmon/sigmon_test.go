package sigmon

import (
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesSignals(t *testing.T) {
	var interrupts, terminates atomic.Int32
	m := New(Handlers{
		Interrupt: func() { interrupts.Add(1) },
		Terminate: func() { terminates.Add(1) },
	})
	m.Start()
	defer m.Stop()

	m.sigs <- syscall.SIGINT
	m.sigs <- syscall.SIGINT
	m.sigs <- syscall.SIGTERM

	require.Eventually(t, func() bool {
		return interrupts.Load() == 2 && terminates.Load() == 1
	}, time.Second, time.Millisecond)
}

func TestRealInterrupt(t *testing.T) {
	got := make(chan struct{}, 1)
	m := New(Handlers{Interrupt: func() { got <- struct{}{} }})
	m.Start()
	defer m.Stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("SIGINT was not delivered to the monitor")
	}
}

func TestNilHandlersIgnored(t *testing.T) {
	m := New(Handlers{})
	m.Start()
	m.sigs <- syscall.SIGINT
	m.sigs <- syscall.SIGTERM
	m.Stop()
}

func TestStopIdempotent(t *testing.T) {
	m := New(Handlers{})
	m.Stop()
	m.Start()
	m.Stop()

	assert.False(t, m.started, "Start after Stop must not subscribe")
}

func TestStopWaitsForHandler(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	m := New(Handlers{Interrupt: func() {
		close(entered)
		<-release
		finished.Store(true)
	}})
	m.Start()

	m.sigs <- syscall.SIGINT
	<-entered

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a handler was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-stopped
	assert.True(t, finished.Load())
}
