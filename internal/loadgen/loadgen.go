package loadgen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"lockkv/internal/logger"
	"lockkv/internal/metrics"
	"lockkv/internal/protocol"
	"lockkv/internal/worker"
)

// ErrUnexpectedReply marks a reply that no server state could have produced
var ErrUnexpectedReply = errors.New("unexpected reply")

// Config configures a Generator
type Config struct {
	Addr         string        // server address
	Sessions     int           // connections opened by Run
	Workers      int           // concurrent sessions (0 = CPU count)
	Commands     int           // commands sent per session
	Keys         int           // size of the key space
	WriteRatio   float64       // share of add/delete commands (0.0 to 1.0)
	DialTimeout  time.Duration // connect timeout
	ReplyTimeout time.Duration // per-command round trip timeout
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8888",
		Sessions:     100,
		Workers:      0,
		Commands:     100,
		Keys:         1000,
		WriteRatio:   0.5,
		DialTimeout:  2 * time.Second,
		ReplyTimeout: 5 * time.Second,
	}
}

// Result summarizes a run
type Result struct {
	metrics.Snapshot
	Sessions       uint64 `json:"sessions"`
	FailedSessions uint64 `json:"failed_sessions"`
	Unexpected     uint64 `json:"unexpected"`
}

// Generator drives client sessions against a server
type Generator struct {
	config  Config
	metrics *metrics.Metrics

	sessions       atomic.Uint64
	failedSessions atomic.Uint64
	unexpected     atomic.Uint64
	seed           atomic.Int64
}

// New creates a generator
func New(config Config) *Generator {
	defaults := DefaultConfig()
	if config.Commands <= 0 {
		config.Commands = defaults.Commands
	}
	if config.Keys <= 0 {
		config.Keys = defaults.Keys
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaults.DialTimeout
	}
	if config.ReplyTimeout <= 0 {
		config.ReplyTimeout = defaults.ReplyTimeout
	}

	g := &Generator{
		config:  config,
		metrics: metrics.New(),
	}
	g.seed.Store(time.Now().UnixNano())
	return g
}

// Metrics returns the per-command metrics
func (g *Generator) Metrics() *metrics.Metrics {
	return g.metrics
}

// Run opens the configured number of sessions
func (g *Generator) Run(ctx context.Context) Result {
	return g.RunSessions(ctx, g.config.Sessions)
}

// RunSessions opens n sessions, at most Workers at a time, and returns once
// all of them have finished or ctx is done.
func (g *Generator) RunSessions(ctx context.Context, n int) Result {
	pool := worker.NewPool(g.config.Workers)
	pool.Start(ctx)
	defer pool.Stop()

	logger.Info("loadgen", "running %d sessions against %s (workers: %d, write_ratio: %.1f%%)",
		n, g.config.Addr, pool.NumWorkers(), g.config.WriteRatio*100)

	done := make(chan struct{}, n)
	submitted := 0
	for i := range n {
		ok := pool.SubmitWait(func(ctx context.Context) {
			defer func() { done <- struct{}{} }()
			g.runSession(ctx, i)
		})
		if !ok {
			break
		}
		submitted++
	}

wait:
	for range submitted {
		select {
		case <-done:
		case <-ctx.Done():
			break wait
		}
	}

	result := g.Result()
	logger.Info("loadgen", "%d sessions (%d failed), %d commands, %d unexpected replies",
		result.Sessions, result.FailedSessions, result.TotalRequests, result.Unexpected)
	return result
}

// Result returns the totals so far
func (g *Generator) Result() Result {
	return Result{
		Snapshot:       g.metrics.Snapshot(),
		Sessions:       g.sessions.Load(),
		FailedSessions: g.failedSessions.Load(),
		Unexpected:     g.unexpected.Load(),
	}
}

func (g *Generator) runSession(ctx context.Context, id int) {
	g.sessions.Add(1)
	if err := g.session(ctx, id); err != nil {
		g.failedSessions.Add(1)
		logger.Debug("loadgen", "session %d: %v", id, err)
	}
}

// session sends Commands random commands on one connection
func (g *Generator) session(ctx context.Context, id int) error {
	dialer := net.Dialer{Timeout: g.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", g.config.Addr)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	rng := rand.New(rand.NewSource(g.seed.Add(1)))
	reader := bufio.NewReader(conn)

	for range g.config.Commands {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd := g.nextCommand(rng)
		start := time.Now()
		_ = conn.SetDeadline(start.Add(g.config.ReplyTimeout))

		reply, err := roundTrip(conn, reader, cmd.line())
		latency := time.Since(start)
		if err != nil {
			g.metrics.RecordFailure(latency)
			return err
		}
		outcome := cmd.outcome(reply)
		g.metrics.RecordCommand(cmd.op, outcome)
		if outcome == metrics.OutcomeUnexpected {
			g.metrics.RecordFailure(latency)
			g.unexpected.Add(1)
			logger.Warn("loadgen", "session %d: %v %q for %q", id, ErrUnexpectedReply, reply, cmd.line())
			continue
		}
		g.metrics.RecordSuccess(latency)
	}
	return nil
}

func roundTrip(conn net.Conn, reader *bufio.Reader, line string) (string, error) {
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		return "", fmt.Errorf("write failed: %w", err)
	}
	reply, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read failed: %w", err)
	}
	return strings.TrimSuffix(reply, "\n"), nil
}

type command struct {
	op  string
	key string
}

func (g *Generator) nextCommand(rng *rand.Rand) command {
	key := fmt.Sprintf("key-%d", rng.Intn(g.config.Keys))
	if rng.Float64() >= g.config.WriteRatio {
		return command{op: protocol.CmdQuery, key: key}
	}
	if rng.Intn(2) == 0 {
		return command{op: protocol.CmdAdd, key: key}
	}
	return command{op: protocol.CmdDelete, key: key}
}

// valueFor derives the stored value from the key so queries can be checked
func valueFor(key string) string {
	return "v-" + key
}

func (c command) line() string {
	if c.op == protocol.CmdAdd {
		return c.op + " " + c.key + " " + valueFor(c.key)
	}
	return c.op + " " + c.key
}

// outcome classifies reply as an answer to c
func (c command) outcome(reply string) string {
	var hit, miss string
	switch c.op {
	case protocol.CmdQuery:
		hit, miss = valueFor(c.key), protocol.ReplyNotFound
	case protocol.CmdAdd:
		hit, miss = protocol.ReplyAdded, protocol.ReplyExists
	case protocol.CmdDelete:
		hit, miss = protocol.ReplyRemoved, protocol.ReplyNotInDatabase
	default:
		return metrics.OutcomeUnexpected
	}

	switch reply {
	case hit:
		return metrics.OutcomeHit
	case miss:
		return metrics.OutcomeMiss
	default:
		return metrics.OutcomeUnexpected
	}
}
