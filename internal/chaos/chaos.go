package chaos

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lockkv/internal/logger"
)

// AttackType is a kind of disruption
type AttackType int

const (
	// AttackPause stops every client at the pause gate for PauseTime
	AttackPause AttackType = iota
	// AttackCancel cancels every connected client
	AttackCancel
)

func (a AttackType) String() string {
	switch a {
	case AttackPause:
		return "pause"
	case AttackCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseAttackType maps a name to its AttackType
func ParseAttackType(s string) (AttackType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pause":
		return AttackPause, nil
	case "cancel":
		return AttackCancel, nil
	default:
		return 0, fmt.Errorf("unknown attack type: %s", s)
	}
}

// Target is the server the monkey disrupts
type Target interface {
	Pause()
	Resume()
	Paused() bool
	CancelAll(reason string) int
}

// Config configures a Monkey
type Config struct {
	Interval    time.Duration // time between attacks
	AttackTypes []AttackType  // attacks to choose from
	PauseTime   time.Duration // how long a pause attack lasts
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Interval:    500 * time.Millisecond,
		AttackTypes: []AttackType{AttackPause, AttackCancel},
		PauseTime:   100 * time.Millisecond,
	}
}

// Stats summarizes the attacks made so far
type Stats struct {
	TotalAttacks     uint64            `json:"total_attacks"`
	ByType           map[string]uint64 `json:"attacks_by_type"`
	CancelledClients uint64            `json:"cancelled_clients"`
}

// Monkey disrupts a running server at random intervals
type Monkey struct {
	config Config
	target Target

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu               sync.RWMutex
	attackCount      uint64
	attackByType     map[AttackType]uint64
	cancelledClients uint64
	pausedAt         time.Time // zero unless the monkey holds the gate
}

// New creates a monkey for target
func New(target Target, config Config) *Monkey {
	return &Monkey{
		config:       config,
		target:       target,
		attackByType: make(map[AttackType]uint64),
	}
}

// Start begins attacking. Calling it again is a no-op.
func (m *Monkey) Start(ctx context.Context) {
	if m.running.Swap(true) {
		return
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(2)
	go m.attackLoop()
	go m.resumeLoop()

	logger.Info("chaos", "monkey started (interval: %v, attacks: %v)",
		m.config.Interval, m.config.AttackTypes)
}

// Stop ends the attacks and releases a pause the monkey still holds
func (m *Monkey) Stop() {
	if !m.running.Swap(false) {
		return
	}

	m.cancel()
	m.wg.Wait()
	m.resumeHeld()

	logger.Info("chaos", "monkey stopped (total attacks: %d)", m.AttackCount())
}

func (m *Monkey) attackLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.attack()
		}
	}
}

func (m *Monkey) resumeLoop() {
	defer m.wg.Done()

	tick := m.config.PauseTime / 4
	if tick < 5*time.Millisecond {
		tick = 5 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.checkAndResume()
		}
	}
}

func (m *Monkey) attack() {
	attackType := m.selectAttackType()

	var ok bool
	switch attackType {
	case AttackPause:
		ok = m.attackPause()
	case AttackCancel:
		ok = m.attackCancel()
	}
	if !ok {
		return
	}

	m.mu.Lock()
	m.attackCount++
	m.attackByType[attackType]++
	m.mu.Unlock()
}

func (m *Monkey) selectAttackType() AttackType {
	if len(m.config.AttackTypes) == 0 {
		return AttackPause
	}
	return m.config.AttackTypes[rand.Intn(len(m.config.AttackTypes))]
}

// attackPause stops the gate unless it is already stopped
func (m *Monkey) attackPause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target.Paused() {
		return false
	}
	m.target.Pause()
	m.pausedAt = time.Now()

	logger.Warn("chaos", "paused clients for %v", m.config.PauseTime)
	return true
}

func (m *Monkey) attackCancel() bool {
	n := m.target.CancelAll("chaos")

	m.mu.Lock()
	m.cancelledClients += uint64(n)
	m.mu.Unlock()

	logger.Warn("chaos", "cancelled %d clients", n)
	return true
}

func (m *Monkey) checkAndResume() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pausedAt.IsZero() || time.Since(m.pausedAt) < m.config.PauseTime {
		return
	}
	m.pausedAt = time.Time{}
	m.target.Resume()
	logger.Info("chaos", "auto-resumed clients")
}

func (m *Monkey) resumeHeld() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pausedAt.IsZero() {
		return
	}
	m.pausedAt = time.Time{}
	m.target.Resume()
	logger.Info("chaos", "resumed clients on stop")
}

// IsRunning reports whether the monkey is attacking
func (m *Monkey) IsRunning() bool {
	return m.running.Load()
}

// AttackCount returns the number of attacks made
func (m *Monkey) AttackCount() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attackCount
}

// Stats returns the attack statistics
func (m *Monkey) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[string]uint64)
	for t, count := range m.attackByType {
		byType[t.String()] = count
	}

	return Stats{
		TotalAttacks:     m.attackCount,
		ByType:           byType,
		CancelledClients: m.cancelledClients,
	}
}
