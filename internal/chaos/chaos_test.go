package chaos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu      sync.Mutex
	paused  bool
	pauses  int
	resumes int
	cancels int
	clients int
	reasons []string
}

func (f *fakeTarget) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
	f.pauses++
}

func (f *fakeTarget) Resume() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = false
	f.resumes++
}

func (f *fakeTarget) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeTarget) CancelAll(reason string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	f.reasons = append(f.reasons, reason)
	return f.clients
}

func (f *fakeTarget) counts() (pauses, resumes, cancels int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses, f.resumes, f.cancels
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, 500*time.Millisecond, config.Interval)
	assert.Equal(t, []AttackType{AttackPause, AttackCancel}, config.AttackTypes)
	assert.Positive(t, config.PauseTime)
}

func TestAttackTypeString(t *testing.T) {
	assert.Equal(t, "pause", AttackPause.String())
	assert.Equal(t, "cancel", AttackCancel.String())
	assert.Equal(t, "unknown", AttackType(99).String())
}

func TestParseAttackType(t *testing.T) {
	got, err := ParseAttackType(" Pause ")
	require.NoError(t, err)
	assert.Equal(t, AttackPause, got)

	got, err = ParseAttackType("cancel")
	require.NoError(t, err)
	assert.Equal(t, AttackCancel, got)

	_, err = ParseAttackType("kill")
	assert.Error(t, err)
}

func TestMonkeyStartStop(t *testing.T) {
	monkey := New(&fakeTarget{}, DefaultConfig())
	assert.False(t, monkey.IsRunning())

	monkey.Start(context.Background())
	monkey.Start(context.Background())
	assert.True(t, monkey.IsRunning())

	monkey.Stop()
	monkey.Stop()
	assert.False(t, monkey.IsRunning())
}

func TestPauseAttackAutoResumes(t *testing.T) {
	target := &fakeTarget{}
	monkey := New(target, Config{
		Interval:    5 * time.Millisecond,
		AttackTypes: []AttackType{AttackPause},
		PauseTime:   20 * time.Millisecond,
	})
	monkey.Start(context.Background())

	require.Eventually(t, func() bool {
		_, resumes, _ := target.counts()
		return resumes >= 2
	}, 2*time.Second, time.Millisecond)

	monkey.Stop()
	assert.False(t, target.Paused(), "Stop must release a held pause")

	pauses, resumes, cancels := target.counts()
	assert.Equal(t, pauses, resumes)
	assert.Zero(t, cancels)
	assert.Equal(t, uint64(pauses), monkey.Stats().ByType["pause"])
}

func TestPauseAttackSkipsStoppedGate(t *testing.T) {
	target := &fakeTarget{paused: true}
	monkey := New(target, Config{AttackTypes: []AttackType{AttackPause}, PauseTime: time.Hour})

	monkey.attack()
	monkey.attack()

	pauses, _, _ := target.counts()
	assert.Zero(t, pauses, "a gate stopped by someone else is left alone")
	assert.Zero(t, monkey.AttackCount())

	monkey.resumeHeld()
	assert.True(t, target.Paused(), "the monkey only releases pauses it made")
}

func TestCancelAttack(t *testing.T) {
	target := &fakeTarget{clients: 3}
	monkey := New(target, Config{AttackTypes: []AttackType{AttackCancel}})

	monkey.attack()
	monkey.attack()

	stats := monkey.Stats()
	assert.Equal(t, uint64(2), stats.TotalAttacks)
	assert.Equal(t, uint64(2), stats.ByType["cancel"])
	assert.Equal(t, uint64(6), stats.CancelledClients)
	assert.Equal(t, []string{"chaos", "chaos"}, target.reasons)
}
