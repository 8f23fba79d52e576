package shutdown

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWorkers stands in for the client registry: CancelAll releases every
// worker blocked on stop.
type fakeWorkers struct {
	stop      chan struct{}
	once      sync.Once
	cancelled atomic.Int32
}

func (f *fakeWorkers) CancelAll() int {
	f.cancelled.Add(1)
	f.once.Do(func() { close(f.stop) })
	return 0
}

func TestEnterLeave(t *testing.T) {
	c := New()
	require.True(t, c.Enter())
	require.True(t, c.Enter())
	assert.Equal(t, 2, c.Live())

	c.Leave()
	c.Leave()
	assert.Equal(t, 0, c.Live())
	assert.False(t, c.Draining())
}

func TestLeaveWithoutEnterPanics(t *testing.T) {
	c := New()
	assert.Panics(t, c.Leave)
}

func TestDrainEmpty(t *testing.T) {
	c := New()
	done := make(chan struct{})
	go func() {
		c.Drain(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain of an idle coordinator blocked")
	}
	assert.True(t, c.Draining())
	assert.False(t, c.Enter(), "Enter must fail after drain")
}

func TestDrainWaitsForWorkers(t *testing.T) {
	c := New()
	workers := &fakeWorkers{stop: make(chan struct{})}

	const n = 20
	var exited atomic.Int32
	for range n {
		require.True(t, c.Enter())
		go func() {
			defer c.Leave()
			<-workers.stop
			time.Sleep(5 * time.Millisecond)
			exited.Add(1)
		}()
	}

	c.Drain(workers)

	assert.Equal(t, int32(n), exited.Load())
	assert.Equal(t, 0, c.Live())
	assert.Equal(t, int32(1), workers.cancelled.Load())
}

func TestDrainBlocksUntilLastLeave(t *testing.T) {
	c := New()
	require.True(t, c.Enter())

	done := make(chan struct{})
	go func() {
		c.Drain(nil)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("drain returned with a live worker")
	case <-time.After(50 * time.Millisecond):
	}

	c.Leave()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return after last leave")
	}
}
