package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"lockkv/internal/events"
	"lockkv/internal/gate"
	"lockkv/internal/logger"
	"lockkv/internal/metrics"
	"lockkv/internal/protocol"
	"lockkv/internal/registry"
	"lockkv/internal/shutdown"
	"lockkv/internal/tree"

	"golang.org/x/net/netutil"
)

// ErrServerClosed is returned by Serve and Accept once Shutdown has begun
var ErrServerClosed = errors.New("server closed")

// Config holds the server settings
type Config struct {
	Listen         string // TCP listen address
	MaxConnections int    // concurrent connection cap (0 = unlimited)
	MaxLineLength  int    // longest accepted command line in bytes
	MaxBatchDepth  int    // nesting limit for f commands

	// WriteTimeout bounds each reply write, so a client that stops reading
	// cannot hold a worker past a cancellation
	WriteTimeout time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Listen:         ":8888",
		MaxConnections: 0,
		MaxLineLength:  protocol.DefaultConfig().MaxLineLength,
		MaxBatchDepth:  protocol.DefaultConfig().MaxBatchDepth,
		WriteTimeout:   5 * time.Second,
	}
}

// Status is a point-in-time view of the server
type Status struct {
	Listen      string `json:"listen"`
	LiveWorkers int    `json:"live_workers"`
	Clients     int    `json:"clients"`
	Paused      bool   `json:"paused"`
	Draining    bool   `json:"draining"`
	Keys        int    `json:"keys"`
}

// Server owns the shared state every client worker uses: the tree, the
// pause gate, the client registry and the shutdown coordinator.
type Server struct {
	config   Config
	tree     *tree.Tree
	gate     *gate.Gate
	registry *registry.Registry
	coord    *shutdown.Coordinator
	interp   *protocol.Interpreter
	bus      *events.Bus

	mu       sync.Mutex
	listener net.Listener
	closed   bool

	shutdownOnce sync.Once
	released     int
}

// New creates a server with an empty tree
func New(config Config) *Server {
	defaults := DefaultConfig()
	if config.MaxLineLength <= 0 {
		config.MaxLineLength = defaults.MaxLineLength
	}
	if config.MaxBatchDepth <= 0 {
		config.MaxBatchDepth = defaults.MaxBatchDepth
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}

	t := tree.New()
	return &Server{
		config:   config,
		tree:     t,
		gate:     gate.New(),
		registry: registry.New(),
		coord:    shutdown.New(),
		interp: protocol.New(t, protocol.Config{
			MaxTokenLen:   tree.MaxLen,
			MaxLineLength: config.MaxLineLength,
			MaxBatchDepth: config.MaxBatchDepth,
		}),
		bus: events.NewBus(),
	}
}

// Tree returns the server's tree
func (s *Server) Tree() *tree.Tree {
	return s.tree
}

// Registry returns the client registry
func (s *Server) Registry() *registry.Registry {
	return s.registry
}

// Events returns the lifecycle event bus
func (s *Server) Events() *events.Bus {
	return s.bus
}

// ListenAndServe listens on the configured address and serves until Shutdown
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown closes it. It always
// returns a non-nil error; ErrServerClosed after a shutdown.
func (s *Server) Serve(ln net.Listener) error {
	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mu.Unlock()

	logger.Info("server", "listening on %s", ln.Addr())

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				logger.Warn("server", "accept error: %v; retrying in %v", err, backoff)
				time.Sleep(backoff)
				continue
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		backoff = 0

		if err := s.Accept(conn); err != nil {
			logger.Debug("server", "rejected %s: %v", conn.RemoteAddr(), err)
		}
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Accept hands conn to a new client worker. Once shutdown has begun the
// connection is closed and ErrServerClosed is returned.
func (s *Server) Accept(conn net.Conn) error {
	if !s.coord.Enter() {
		_ = conn.Close()
		return ErrServerClosed
	}

	h := s.registry.NewHandle(conn)
	if err := s.registry.Register(h); err != nil {
		_ = h.Close()
		s.coord.Leave()
		return err
	}
	// A drain that started between Enter and Register may have broadcast
	// before this handle was visible to it.
	if s.coord.Draining() {
		h.Cancel()
	}

	metrics.ClientConnected()
	s.bus.Publish(events.NewClientConnectedEvent(h.ID(), h.RemoteAddr()))
	logger.Debug(clientComponent(h), "connected from %s", h.RemoteAddr())

	go s.serveClient(h)
	return nil
}

func clientComponent(h *registry.Handle) string {
	return fmt.Sprintf("client-%d", h.ID())
}

// serveClient runs the read, wait, dispatch, reply loop for one client.
// Every exit path goes through release exactly once.
func (s *Server) serveClient(h *registry.Handle) {
	reason := "eof"
	defer func() { s.release(h, reason) }()

	component := clientComponent(h)
	reader := protocol.NewLineReader(h.Conn(), s.config.MaxLineLength)
	writer := bufio.NewWriter(h.Conn())

	for {
		if h.Cancelled() {
			reason = "cancelled"
			return
		}

		var res protocol.Result
		line, err := reader.ReadLine()
		switch {
		case err == nil:
		case errors.Is(err, protocol.ErrLineTooLong):
			res = protocol.Result{Command: protocol.CmdInvalid, Reply: protocol.ReplyIllFormed, Status: protocol.StatusInvalid}
		case h.Cancelled():
			reason = "cancelled"
			return
		case errors.Is(err, io.EOF):
			return
		default:
			reason = "read error"
			logger.Debug(component, "read failed: %v", err)
			return
		}

		if err := s.gate.Wait(h.Context()); err != nil {
			reason = "cancelled"
			return
		}

		if res.Reply == "" {
			start := time.Now()
			res = s.interp.Execute(line)
			metrics.ObserveCommand(res.Command, res.Status.String(), time.Since(start))
			if res.Status == protocol.StatusOK {
				metrics.SetTreeNodes(s.tree.Len())
			}
		}

		// a command that has run still gets its reply after a cancel
		_ = h.Conn().SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		// bufio errors are sticky, Flush reports a failed write too
		_, _ = writer.WriteString(res.Reply + "\n")
		if err := writer.Flush(); err != nil {
			reason = "write error"
			logger.Debug(component, "write failed: %v", err)
			return
		}
	}
}

func (s *Server) release(h *registry.Handle, reason string) {
	s.registry.Unregister(h)
	_ = h.Close()

	metrics.ClientDisconnected()
	s.bus.Publish(events.NewClientDisconnectedEvent(h.ID(), h.RemoteAddr(), reason))
	logger.Debug(clientComponent(h), "disconnected (%s)", reason)

	s.coord.Leave()
}

// Clients lists the registered clients ordered by id
func (s *Server) Clients() []registry.Info {
	return s.registry.Snapshot()
}

// Pause stops workers before their next command executes
func (s *Server) Pause() {
	s.gate.Stop()
	metrics.SetPaused(true)
	s.bus.Publish(events.NewPausedEvent())
	logger.Info("server", "clients paused")
}

// Resume lets paused workers continue
func (s *Server) Resume() {
	s.gate.Release()
	metrics.SetPaused(false)
	s.bus.Publish(events.NewResumedEvent())
	logger.Info("server", "clients released")
}

// Paused reports whether the gate is stopped
func (s *Server) Paused() bool {
	return s.gate.Stopped()
}

// Dump writes the tree to path, or to fallback when path is blank
func (s *Server) Dump(path string, fallback io.Writer) error {
	return s.tree.DumpFile(path, fallback)
}

// CancelAll asks every registered client to disconnect. The server keeps
// accepting new connections.
func (s *Server) CancelAll(reason string) int {
	n := s.registry.CancelAll()
	metrics.CancelBroadcast(reason)
	s.bus.Publish(events.NewCancelBroadcastEvent(n, reason))
	logger.Info("server", "cancelled %d clients (%s)", n, reason)
	return n
}

type cancelFunc func() int

func (f cancelFunc) CancelAll() int { return f() }

// Shutdown stops accepting, cancels every client, waits for all workers to
// finish and then empties the tree. It returns how many tree nodes were
// released. Later calls return the same count without doing anything.
func (s *Server) Shutdown() int {
	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		ln := s.listener
		s.mu.Unlock()

		if ln != nil {
			if err := ln.Close(); err != nil {
				logger.Warn("server", "failed to close listener: %v", err)
			}
		}

		live := s.coord.Live()
		s.bus.Publish(events.NewDrainStartEvent(live))
		logger.Info("server", "draining %d clients", live)

		s.coord.Drain(cancelFunc(func() int { return s.CancelAll("shutdown") }))

		s.released = s.tree.Cleanup()
		metrics.SetTreeNodes(0)
		s.bus.Publish(events.NewDrainCompleteEvent(s.released))
		logger.Info("server", "shutdown complete, released %d keys", s.released)

		s.bus.Close()
	})
	return s.released
}

// Status reports the current server state
func (s *Server) Status() Status {
	s.mu.Lock()
	listen := s.config.Listen
	if s.listener != nil {
		listen = s.listener.Addr().String()
	}
	s.mu.Unlock()

	return Status{
		Listen:      listen,
		LiveWorkers: s.coord.Live(),
		Clients:     s.registry.Len(),
		Paused:      s.gate.Stopped(),
		Draining:    s.coord.Draining(),
		Keys:        s.tree.Len(),
	}
}
