package registry

import (
	"cmp"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
)

// ErrDuplicate is returned when a handle is registered twice
var ErrDuplicate = errors.New("handle already registered")

// Handle identifies one client worker and owns its connection
type Handle struct {
	id          uint64
	conn        net.Conn
	remoteAddr  string
	connectedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func newHandle(id uint64, conn net.Conn) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return &Handle{
		id:          id,
		conn:        conn,
		remoteAddr:  remote,
		connectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the handle's registry-unique id
func (h *Handle) ID() uint64 {
	return h.id
}

// Conn returns the client connection
func (h *Handle) Conn() net.Conn {
	return h.conn
}

// RemoteAddr returns the peer address captured at creation
func (h *Handle) RemoteAddr() string {
	return h.remoteAddr
}

// Context is cancelled once a cancellation has been requested
func (h *Handle) Context() context.Context {
	return h.ctx
}

// Done is closed once a cancellation has been requested
func (h *Handle) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Cancelled reports whether a cancellation has been requested
func (h *Handle) Cancelled() bool {
	return h.ctx.Err() != nil
}

// Cancel requests that the worker stop at its next suspension point. Pending
// and future reads on the connection fail immediately. Writes are left alone,
// so a worker in the middle of a command still applies it and sends the
// reply. Cancel never closes the connection or removes the handle; the worker
// does that itself.
func (h *Handle) Cancel() {
	h.cancel()
	_ = h.conn.SetReadDeadline(time.Now())
}

// Close releases the handle's connection. Only the first call has any effect.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.cancel()
		h.closeErr = h.conn.Close()
	})
	return h.closeErr
}

// Info is a point-in-time description of a registered handle
type Info struct {
	ID          uint64    `json:"id"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`
	Cancelled   bool      `json:"cancelled"`
}

// Registry is the set of live client handles, guarded by one mutex
type Registry struct {
	mu      sync.Mutex
	handles map[uint64]*Handle
	nextID  atomic.Uint64
}

// New returns an empty registry
func New() *Registry {
	return &Registry{
		handles: make(map[uint64]*Handle),
	}
}

// NewHandle wraps conn in a handle with a fresh id. The handle is not yet
// registered.
func (r *Registry) NewHandle(conn net.Conn) *Handle {
	return newHandle(r.nextID.Add(1), conn)
}

// Register adds h to the live set
func (r *Registry) Register(h *Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handles[h.id]; exists {
		return ErrDuplicate
	}
	r.handles[h.id] = h
	return nil
}

// Unregister removes h and reports whether it was present
func (r *Registry) Unregister(h *Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, exists := r.handles[h.id]
	if !exists || cur != h {
		return false
	}
	delete(r.handles, h.id)
	return true
}

// CancelAll posts a cancellation request to every live handle and returns
// how many were signalled. Handles stay registered; each worker removes its
// own handle on exit.
func (r *Registry) CancelAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range r.handles {
		h.Cancel()
	}
	return len(r.handles)
}

// Len returns the number of live handles
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// Snapshot describes every live handle, ordered by id
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	infos := make([]Info, 0, len(r.handles))
	for _, h := range r.handles {
		infos = append(infos, Info{
			ID:          h.id,
			RemoteAddr:  h.remoteAddr,
			ConnectedAt: h.connectedAt,
			Cancelled:   h.Cancelled(),
		})
	}
	r.mu.Unlock()

	slices.SortFunc(infos, func(a, b Info) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return infos
}
