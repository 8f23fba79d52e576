package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lockkv/internal/chaos"
	"lockkv/internal/loadgen"
	"lockkv/internal/logger"
	"lockkv/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "lockkv.yaml", `
server:
  listen: "127.0.0.1:7000"
  max_connections: 64
  max_line_length: 512
  max_batch_depth: 4
admin:
  enabled: true
  listen: "127.0.0.1:7001"
log:
  level: debug
load:
  addr: "127.0.0.1:7000"
  sessions: 10
  workers: 2
  commands: 50
  keys: 20
  write_ratio: 0.25
  dial_timeout: 1s
  reply_timeout: 3s
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, server.Config{
		Listen:         "127.0.0.1:7000",
		MaxConnections: 64,
		MaxLineLength:  512,
		MaxBatchDepth:  4,
		WriteTimeout:   server.DefaultConfig().WriteTimeout,
	}, cfg.ToServerConfig())

	addr, enabled := cfg.AdminListen()
	assert.True(t, enabled)
	assert.Equal(t, "127.0.0.1:7001", addr)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logger.LevelDebug, level)

	load, err := cfg.ToLoadConfig()
	require.NoError(t, err)
	assert.Equal(t, loadgen.Config{
		Addr:         "127.0.0.1:7000",
		Sessions:     10,
		Workers:      2,
		Commands:     50,
		Keys:         20,
		WriteRatio:   0.25,
		DialTimeout:  time.Second,
		ReplyTimeout: 3 * time.Second,
	}, load)
}

func TestLoadFileJSON(t *testing.T) {
	path := writeConfig(t, "lockkv.json", `{
  "server": {"listen": ":9999"},
  "log": {"level": "warn"}
}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	sc := cfg.ToServerConfig()
	assert.Equal(t, ":9999", sc.Listen)
	assert.Equal(t, server.DefaultConfig().MaxLineLength, sc.MaxLineLength)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logger.LevelWarn, level)
}

func TestDefaults(t *testing.T) {
	var cfg FileConfig
	require.NoError(t, cfg.Validate())

	assert.Equal(t, server.DefaultConfig(), cfg.ToServerConfig())

	addr, enabled := cfg.AdminListen()
	assert.False(t, enabled)
	assert.Equal(t, DefaultAdminListen, addr)

	load, err := cfg.ToLoadConfig()
	require.NoError(t, err)
	assert.Equal(t, loadgen.DefaultConfig(), load)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeConfig(t, "lockkv.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = LoadFile(writeConfig(t, "bad.yaml", "server: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse YAML")

	_, err = LoadFile(writeConfig(t, "bad.json", "{"))
	assert.ErrorContains(t, err, "failed to parse JSON")
}

func ratio(v float64) *float64 { return &v }

func TestZeroWriteRatio(t *testing.T) {
	path := writeConfig(t, "readonly.yaml", `
load:
  write_ratio: 0
stress:
  write_ratio: 0
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	load, err := cfg.ToLoadConfig()
	require.NoError(t, err)
	assert.Zero(t, load.WriteRatio)

	sc, err := cfg.ToScenarioConfig()
	require.NoError(t, err)
	assert.Zero(t, sc.WriteRatio)

	var unset FileConfig
	load, err = unset.ToLoadConfig()
	require.NoError(t, err)
	assert.Equal(t, loadgen.DefaultConfig().WriteRatio, load.WriteRatio)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*FileConfig)
	}{
		{"negative max_connections", func(c *FileConfig) { c.Server.MaxConnections = -1 }},
		{"negative max_line_length", func(c *FileConfig) { c.Server.MaxLineLength = -1 }},
		{"negative max_batch_depth", func(c *FileConfig) { c.Server.MaxBatchDepth = -1 }},
		{"unknown log level", func(c *FileConfig) { c.Log.Level = "loud" }},
		{"negative sessions", func(c *FileConfig) { c.Load.Sessions = -1 }},
		{"negative workers", func(c *FileConfig) { c.Load.Workers = -1 }},
		{"negative commands", func(c *FileConfig) { c.Load.Commands = -1 }},
		{"negative keys", func(c *FileConfig) { c.Load.Keys = -1 }},
		{"write ratio above one", func(c *FileConfig) { c.Load.WriteRatio = ratio(1.5) }},
		{"negative stress workers", func(c *FileConfig) { c.Stress.Workers = -1 }},
		{"negative stress write ratio", func(c *FileConfig) { c.Stress.WriteRatio = ratio(-0.1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg FileConfig
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestInvalidDurations(t *testing.T) {
	cfg := FileConfig{Load: LoadConfig{DialTimeout: "soon"}}
	_, err := cfg.ToLoadConfig()
	assert.ErrorContains(t, err, "invalid dial timeout")

	cfg = FileConfig{Load: LoadConfig{ReplyTimeout: "later"}}
	_, err = cfg.ToLoadConfig()
	assert.ErrorContains(t, err, "invalid reply timeout")
}

func TestToScenarioConfig(t *testing.T) {
	path := writeConfig(t, "stress.yaml", `
stress:
  name: nightly
  description: long mixed run
  duration: 30s
  workers: 40
  commands: 300
  keys: 8
  write_ratio: 0.9
  chaos:
    enabled: true
    interval: 200ms
    pause_time: 50ms
    attack_types:
      - cancel
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	sc, err := cfg.ToScenarioConfig()
	require.NoError(t, err)
	assert.Equal(t, "nightly", sc.Name)
	assert.Equal(t, "long mixed run", sc.Description)
	assert.Equal(t, 30*time.Second, sc.Duration)
	assert.Equal(t, 40, sc.Workers)
	assert.Equal(t, 300, sc.Commands)
	assert.Equal(t, 8, sc.Keys)
	assert.Equal(t, 0.9, sc.WriteRatio)
	assert.True(t, sc.EnableChaos)
	assert.Equal(t, 200*time.Millisecond, sc.ChaosInterval)
	assert.Equal(t, 50*time.Millisecond, sc.PauseTime)
	assert.Equal(t, []chaos.AttackType{chaos.AttackCancel}, sc.AttackTypes)
}

func TestToScenarioConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		stress StressConfig
		want   string
	}{
		{"duration", StressConfig{Duration: "long"}, "invalid duration"},
		{"interval", StressConfig{Chaos: ChaosConfig{Interval: "often"}}, "invalid chaos interval"},
		{"pause time", StressConfig{Chaos: ChaosConfig{PauseTime: "brief"}}, "invalid chaos pause time"},
		{"attack type", StressConfig{Chaos: ChaosConfig{AttackTypes: []string{"kill"}}}, "unknown attack type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FileConfig{Stress: tt.stress}
			_, err := cfg.ToScenarioConfig()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
