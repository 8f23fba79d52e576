package scenario

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"lockkv/internal/chaos"
	"lockkv/internal/loadgen"
	"lockkv/internal/logger"
	"lockkv/internal/server"
)

// Config describes a stress scenario
type Config struct {
	Name        string        // scenario name
	Description string        // one-line summary
	Duration    time.Duration // upper bound on the load phase

	// load generator settings
	Sessions   int     // sessions to run (the phase ends early once all finish)
	Workers    int     // concurrent sessions
	Commands   int     // commands per session
	Keys       int     // key space size
	WriteRatio float64 // share of add/delete commands

	// chaos settings
	EnableChaos   bool
	ChaosInterval time.Duration
	PauseTime     time.Duration
	AttackTypes   []chaos.AttackType

	MaxConnections int // server connection cap (0 = unlimited)
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Name:          "default",
		Description:   "Default scenario",
		Duration:      10 * time.Second,
		Sessions:      1 << 20,
		Workers:       20,
		Commands:      1000,
		Keys:          256,
		WriteRatio:    0.5,
		EnableChaos:   true,
		ChaosInterval: 500 * time.Millisecond,
		PauseTime:     100 * time.Millisecond,
		AttackTypes:   []chaos.AttackType{chaos.AttackPause, chaos.AttackCancel},
	}
}

// Result is the outcome of a scenario run
type Result struct {
	ScenarioName string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration

	// traffic
	Sessions        uint64
	FailedSessions  uint64
	TotalRequests   uint64
	SuccessRequests uint64
	FailedRequests  uint64
	Unexpected      uint64
	ErrorRate       float64
	AvgLatency      time.Duration
	P99Latency      time.Duration

	// chaos
	TotalAttacks     uint64
	AttacksByType    map[string]uint64
	CancelledClients uint64

	// teardown
	KeysBeforeShutdown int
	ReleasedKeys       int
	LeakedWorkers      int
	LeakedClients      int
	LeakedKeys         int
}

// Passed reports whether every reply was legal and shutdown left nothing
// behind
func (r *Result) Passed() bool {
	return r.Unexpected == 0 &&
		r.LeakedWorkers == 0 &&
		r.LeakedClients == 0 &&
		r.LeakedKeys == 0 &&
		r.ReleasedKeys == r.KeysBeforeShutdown
}

// Engine runs a scenario against an in-process server
type Engine struct {
	config Config

	mu      sync.RWMutex
	running bool
	monkey  *chaos.Monkey
}

// New creates an engine for config
func New(config Config) *Engine {
	return &Engine{
		config: config,
	}
}

// Run starts a server on a loopback port, drives load (and chaos, when
// enabled) against it for up to Duration, then shuts it down and checks
// that nothing leaked.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, fmt.Errorf("scenario is already running")
	}
	e.running = true
	e.monkey = nil
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	logger.Info("scenario", "=== Scenario '%s' started ===", e.config.Name)
	logger.Info("scenario", "Description: %s", e.config.Description)

	result := &Result{
		ScenarioName: e.config.Name,
		StartTime:    time.Now(),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("setup failed: %w", err)
	}
	srv := server.New(server.Config{
		Listen:         ln.Addr().String(),
		MaxConnections: e.config.MaxConnections,
	})
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	runCtx, cancel := context.WithTimeout(ctx, e.config.Duration)
	defer cancel()

	gen := loadgen.New(loadgen.Config{
		Addr:       ln.Addr().String(),
		Sessions:   e.config.Sessions,
		Workers:    e.config.Workers,
		Commands:   e.config.Commands,
		Keys:       e.config.Keys,
		WriteRatio: e.config.WriteRatio,
	})
	loadDone := make(chan loadgen.Result, 1)
	go func() { loadDone <- gen.Run(runCtx) }()

	var monkey *chaos.Monkey
	if e.config.EnableChaos {
		monkey = chaos.New(srv, chaos.Config{
			Interval:    e.config.ChaosInterval,
			AttackTypes: e.config.AttackTypes,
			PauseTime:   e.config.PauseTime,
		})
		e.mu.Lock()
		e.monkey = monkey
		e.mu.Unlock()
		monkey.Start(runCtx)
	}

	var load loadgen.Result
	select {
	case load = <-loadDone:
	case <-runCtx.Done():
		logger.Info("scenario", "Scenario duration completed, stopping components...")
		if monkey != nil {
			monkey.Stop()
		}
		load = <-loadDone
	}
	if monkey != nil {
		monkey.Stop()
	}

	result.KeysBeforeShutdown = srv.Tree().Len()
	result.ReleasedKeys = srv.Shutdown()
	if err := <-serveErr; !errors.Is(err, server.ErrServerClosed) {
		return nil, fmt.Errorf("server failed: %w", err)
	}

	status := srv.Status()
	result.LeakedWorkers = status.LiveWorkers
	result.LeakedClients = status.Clients
	result.LeakedKeys = status.Keys

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	collectLoad(result, load)
	if monkey != nil {
		stats := monkey.Stats()
		result.TotalAttacks = stats.TotalAttacks
		result.AttacksByType = stats.ByType
		result.CancelledClients = stats.CancelledClients
	}

	logger.Info("scenario", "=== Scenario '%s' completed ===", e.config.Name)
	return result, nil
}

func collectLoad(result *Result, load loadgen.Result) {
	result.Sessions = load.Sessions
	result.FailedSessions = load.FailedSessions
	result.TotalRequests = load.TotalRequests
	result.SuccessRequests = load.SuccessRequests
	result.FailedRequests = load.FailedRequests
	result.Unexpected = load.Unexpected
	result.ErrorRate = load.ErrorRate
	result.AvgLatency = load.AverageLatency
	result.P99Latency = load.P99Latency
}

// Report formats the result for the terminal
func (r *Result) Report() string {
	verdict := "PASS"
	if !r.Passed() {
		verdict = "FAIL"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `
================================================================================
                         SCENARIO REPORT: %s
================================================================================

EXECUTION SUMMARY
-----------------
  Start Time:     %s
  End Time:       %s
  Duration:       %v

TRAFFIC METRICS
---------------
  Sessions:         %d (%d ended early)
  Total Commands:   %d
  Success:          %d
  Failed:           %d
  Unexpected:       %d
  Error Rate:       %.2f%%
  Avg Latency:      %v
  P99 Latency:      %v

CHAOS STATISTICS
----------------
  Total Attacks:      %d
  Cancelled Clients:  %d
`,
		r.ScenarioName,
		r.StartTime.Format("2006-01-02 15:04:05"),
		r.EndTime.Format("2006-01-02 15:04:05"),
		r.Duration.Round(time.Millisecond),
		r.Sessions, r.FailedSessions,
		r.TotalRequests,
		r.SuccessRequests,
		r.FailedRequests,
		r.Unexpected,
		r.ErrorRate*100,
		r.AvgLatency.Round(time.Microsecond),
		r.P99Latency.Round(time.Microsecond),
		r.TotalAttacks,
		r.CancelledClients,
	)
	for _, name := range []string{"pause", "cancel"} {
		if n := r.AttacksByType[name]; n > 0 {
			fmt.Fprintf(&b, "  %-19s %d\n", name+":", n)
		}
	}

	fmt.Fprintf(&b, `
SHUTDOWN
--------
  Keys at shutdown:   %d
  Keys released:      %d
  Leaked workers:     %d
  Leaked clients:     %d
  Leaked keys:        %d

RESULT: %s
================================================================================`,
		r.KeysBeforeShutdown,
		r.ReleasedKeys,
		r.LeakedWorkers,
		r.LeakedClients,
		r.LeakedKeys,
		verdict,
	)

	return b.String()
}

// IsRunning reports whether Run is in progress
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// ChaosStats returns the attack statistics of the current or last run, or
// nil when chaos is disabled
func (e *Engine) ChaosStats() *chaos.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.monkey == nil {
		return nil
	}
	stats := e.monkey.Stats()
	return &stats
}
