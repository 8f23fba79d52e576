package registry

import (
	"errors"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() {
		_ = server.Close()
		_ = client.Close()
	})
	return server, client
}

func TestRegisterUnregister(t *testing.T) {
	r := New()
	conn, _ := pipe(t)

	h := r.NewHandle(conn)
	require.NoError(t, r.Register(h))
	assert.Equal(t, 1, r.Len())

	assert.ErrorIs(t, r.Register(h), ErrDuplicate)
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Unregister(h))
	assert.False(t, r.Unregister(h))
	assert.Equal(t, 0, r.Len())
}

func TestHandleIDsAreUnique(t *testing.T) {
	r := New()
	seen := make(map[uint64]bool)
	for range 50 {
		conn, _ := pipe(t)
		h := r.NewHandle(conn)
		assert.False(t, seen[h.ID()], "duplicate id %d", h.ID())
		seen[h.ID()] = true
	}
}

func TestCancelAllKeepsHandlesRegistered(t *testing.T) {
	r := New()
	var handles []*Handle
	for range 5 {
		conn, _ := pipe(t)
		h := r.NewHandle(conn)
		require.NoError(t, r.Register(h))
		handles = append(handles, h)
	}

	assert.Equal(t, 5, r.CancelAll())
	assert.Equal(t, 5, r.Len())

	for _, h := range handles {
		assert.True(t, h.Cancelled())
		select {
		case <-h.Done():
		default:
			t.Errorf("handle %d not done", h.ID())
		}
	}
	for _, info := range r.Snapshot() {
		assert.True(t, info.Cancelled)
	}
}

func TestCancelUnblocksRead(t *testing.T) {
	r := New()
	conn, _ := pipe(t)
	h := r.NewHandle(conn)
	require.NoError(t, r.Register(h))

	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, 1)
		_, err := h.Conn().Read(buf)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	r.CancelAll()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrDeadlineExceeded))
	case <-time.After(time.Second):
		t.Fatal("read was not interrupted by cancel")
	}
}

func TestCancelKeepsWritesOpen(t *testing.T) {
	r := New()
	conn, peer := pipe(t)
	h := r.NewHandle(conn)
	require.NoError(t, r.Register(h))

	r.CancelAll()
	require.True(t, h.Cancelled())

	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 16)
		n, _ := peer.Read(buf)
		got <- string(buf[:n])
	}()

	_, err := h.Conn().Write([]byte("removed\n"))
	require.NoError(t, err)
	assert.Equal(t, "removed\n", <-got)

	_, err = h.Conn().Read(make([]byte, 1))
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded))
}

func TestCloseOnce(t *testing.T) {
	r := New()
	conn, peer := pipe(t)
	h := r.NewHandle(conn)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.True(t, h.Cancelled())

	_, err := peer.Write([]byte("x"))
	assert.Error(t, err, "peer should see the closed pipe")
}

func TestSnapshotOrdered(t *testing.T) {
	r := New()
	for id := uint64(10); id >= 1; id-- {
		conn, _ := pipe(t)
		require.NoError(t, r.Register(newHandle(id, conn)))
	}

	snap := r.Snapshot()
	require.Len(t, snap, 10)
	for i, info := range snap {
		assert.Equal(t, uint64(i+1), info.ID)
		assert.False(t, info.ConnectedAt.IsZero())
		assert.Equal(t, "pipe", info.RemoteAddr)
	}
}

func TestConcurrentRegisterCancel(t *testing.T) {
	r := New()
	const workers = 50

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			server, client := net.Pipe()
			defer client.Close()

			h := r.NewHandle(server)
			if err := r.Register(h); err != nil {
				t.Errorf("register: %v", err)
				return
			}
			r.CancelAll()
			if !r.Unregister(h) {
				t.Errorf("handle %d missing at unregister", h.ID())
			}
			_ = h.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
