package scenario

import (
	"time"

	"lockkv/internal/chaos"
)

// BasicScenario is plain load with no chaos
func BasicScenario() Config {
	return Config{
		Name:        "basic",
		Description: "Load test without chaos injection",
		Duration:    10 * time.Second,
		Sessions:    1 << 20,
		Workers:     20,
		Commands:    1000,
		Keys:        256,
		WriteRatio:  0.5,
		EnableChaos: false,
	}
}

// PauseScenario repeatedly stops and releases every client
func PauseScenario() Config {
	return Config{
		Name:          "pause",
		Description:   "Pause gate stop/release under load",
		Duration:      10 * time.Second,
		Sessions:      1 << 20,
		Workers:       50,
		Commands:      1000,
		Keys:          64,
		WriteRatio:    0.5,
		EnableChaos:   true,
		ChaosInterval: 200 * time.Millisecond,
		PauseTime:     100 * time.Millisecond,
		AttackTypes:   []chaos.AttackType{chaos.AttackPause},
	}
}

// CancelScenario repeatedly cancels every client, as SIGINT does
func CancelScenario() Config {
	return Config{
		Name:          "cancel",
		Description:   "Cancellation broadcast under load",
		Duration:      10 * time.Second,
		Sessions:      1 << 20,
		Workers:       50,
		Commands:      1000,
		Keys:          64,
		WriteRatio:    0.5,
		EnableChaos:   true,
		ChaosInterval: 300 * time.Millisecond,
		AttackTypes:   []chaos.AttackType{chaos.AttackCancel},
	}
}

// StressScenario mixes both attacks with many clients on a small key space
func StressScenario() Config {
	return Config{
		Name:          "stress",
		Description:   "High contention with pause and cancel attacks",
		Duration:      20 * time.Second,
		Sessions:      1 << 20,
		Workers:       100,
		Commands:      2000,
		Keys:          32,
		WriteRatio:    0.7,
		EnableChaos:   true,
		ChaosInterval: 150 * time.Millisecond,
		PauseTime:     50 * time.Millisecond,
		AttackTypes:   []chaos.AttackType{chaos.AttackPause, chaos.AttackCancel},
	}
}

// QuickScenario is a short run for verification
func QuickScenario() Config {
	return Config{
		Name:          "quick",
		Description:   "Quick test for verification",
		Duration:      3 * time.Second,
		Sessions:      1 << 20,
		Workers:       10,
		Commands:      500,
		Keys:          64,
		WriteRatio:    0.5,
		EnableChaos:   true,
		ChaosInterval: 300 * time.Millisecond,
		PauseTime:     50 * time.Millisecond,
		AttackTypes:   []chaos.AttackType{chaos.AttackPause, chaos.AttackCancel},
	}
}

// GetPreset returns the named preset
func GetPreset(name string) (Config, bool) {
	presets := map[string]func() Config{
		"basic":  BasicScenario,
		"pause":  PauseScenario,
		"cancel": CancelScenario,
		"stress": StressScenario,
		"quick":  QuickScenario,
	}

	if fn, ok := presets[name]; ok {
		return fn(), true
	}
	return Config{}, false
}

// ListPresets returns the preset names
func ListPresets() []string {
	return []string{"basic", "pause", "cancel", "stress", "quick"}
}
