package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slices"
)

// Config tunes a Metrics collector
type Config struct {
	MaxLatencySamples int // latency samples kept for P99 (0 = 1000)
}

// Command outcomes recorded by RecordCommand
const (
	OutcomeHit        = "hit"        // the key was found, added or removed
	OutcomeMiss       = "miss"       // a legal "not found" style reply
	OutcomeUnexpected = "unexpected" // a reply the command can never produce
)

// CommandStats counts the outcomes of one command type
type CommandStats struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Unexpected uint64 `json:"unexpected"`
}

// Total returns the number of outcomes recorded
func (c CommandStats) Total() uint64 {
	return c.Hits + c.Misses + c.Unexpected
}

// Metrics collects request counts and latencies
type Metrics struct {
	totalRequests   atomic.Uint64
	successRequests atomic.Uint64
	failedRequests  atomic.Uint64
	totalLatencyNs  atomic.Uint64

	mu                sync.RWMutex
	startTime         time.Time
	lastResetTime     time.Time
	windowRequests    uint64
	latencies         []time.Duration
	maxLatencySamples int
	commands          map[string]CommandStats
}

// New creates a collector with the default configuration
func New() *Metrics {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a collector with config
func NewWithConfig(config Config) *Metrics {
	samples := config.MaxLatencySamples
	if samples <= 0 {
		samples = 1000
	}
	now := time.Now()
	return &Metrics{
		startTime:         now,
		lastResetTime:     now,
		latencies:         make([]time.Duration, 0, samples),
		maxLatencySamples: samples,
		commands:          make(map[string]CommandStats),
	}
}

// RecordSuccess records a successful request
func (m *Metrics) RecordSuccess(latency time.Duration) {
	m.totalRequests.Add(1)
	m.successRequests.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowRequests++
	if len(m.latencies) < m.maxLatencySamples {
		m.latencies = append(m.latencies, latency)
	}
	m.mu.Unlock()
}

// RecordFailure records a failed request
func (m *Metrics) RecordFailure(latency time.Duration) {
	m.totalRequests.Add(1)
	m.failedRequests.Add(1)
	m.totalLatencyNs.Add(uint64(latency.Nanoseconds()))

	m.mu.Lock()
	m.windowRequests++
	m.mu.Unlock()
}

// TotalRequests returns the number of recorded requests
func (m *Metrics) TotalRequests() uint64 {
	return m.totalRequests.Load()
}

// SuccessRequests returns the number of successful requests
func (m *Metrics) SuccessRequests() uint64 {
	return m.successRequests.Load()
}

// FailedRequests returns the number of failed requests
func (m *Metrics) FailedRequests() uint64 {
	return m.failedRequests.Load()
}

// RPS returns requests per second since the last Reset
func (m *Metrics) RPS() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	elapsed := time.Since(m.lastResetTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.windowRequests) / elapsed
}

// OverallRPS returns requests per second since creation
func (m *Metrics) OverallRPS() float64 {
	elapsed := time.Since(m.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(m.totalRequests.Load()) / elapsed
}

// AverageLatency returns the mean latency of all requests
func (m *Metrics) AverageLatency() time.Duration {
	total := m.totalRequests.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.totalLatencyNs.Load() / total)
}

// P99Latency returns the 99th percentile of the sampled latencies
func (m *Metrics) P99Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.latencies) == 0 {
		return 0
	}

	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	slices.Sort(sorted)

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// RecordCommand tallies one outcome for command. Unknown outcomes count as
// unexpected.
func (m *Metrics) RecordCommand(command, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := m.commands[command]
	switch outcome {
	case OutcomeHit:
		stats.Hits++
	case OutcomeMiss:
		stats.Misses++
	default:
		stats.Unexpected++
	}
	m.commands[command] = stats
}

// Commands returns a copy of the per-command outcome counts
func (m *Metrics) Commands() map[string]CommandStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]CommandStats, len(m.commands))
	for cmd, stats := range m.commands {
		out[cmd] = stats
	}
	return out
}

// ErrorRate returns failed/total in [0, 1]
func (m *Metrics) ErrorRate() float64 {
	total := m.totalRequests.Load()
	if total == 0 {
		return 0
	}
	return float64(m.failedRequests.Load()) / float64(total)
}

// Reset clears the RPS window and the latency samples
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.windowRequests = 0
	m.lastResetTime = time.Now()
	m.latencies = m.latencies[:0]
}

// Snapshot is a point-in-time copy of the metrics
type Snapshot struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	RPS             float64       `json:"rps"`
	OverallRPS      float64       `json:"overall_rps"`
	AverageLatency  time.Duration `json:"average_latency"`
	P99Latency      time.Duration `json:"p99_latency"`
	ErrorRate       float64       `json:"error_rate"`
	Elapsed         time.Duration `json:"elapsed"`

	Commands map[string]CommandStats `json:"commands"`
}

// Snapshot returns the current metrics
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests:   m.TotalRequests(),
		SuccessRequests: m.SuccessRequests(),
		FailedRequests:  m.FailedRequests(),
		RPS:             m.RPS(),
		OverallRPS:      m.OverallRPS(),
		AverageLatency:  m.AverageLatency(),
		P99Latency:      m.P99Latency(),
		ErrorRate:       m.ErrorRate(),
		Elapsed:         time.Since(m.startTime),
		Commands:        m.Commands(),
	}
}
