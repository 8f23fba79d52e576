package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lockkv/internal/chaos"
	"lockkv/internal/loadgen"
	"lockkv/internal/logger"
	"lockkv/internal/scenario"
	"lockkv/internal/server"

	"gopkg.in/yaml.v3"
)

// FileConfig is the layout of a configuration file
type FileConfig struct {
	Server ServerConfig `yaml:"server" json:"server"`
	Admin  AdminConfig  `yaml:"admin" json:"admin"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Load   LoadConfig   `yaml:"load" json:"load"`
	Stress StressConfig `yaml:"stress" json:"stress"`
}

// ServerConfig configures the client listener
type ServerConfig struct {
	Listen         string `yaml:"listen" json:"listen"`
	MaxConnections int    `yaml:"max_connections" json:"max_connections"`
	MaxLineLength  int    `yaml:"max_line_length" json:"max_line_length"`
	MaxBatchDepth  int    `yaml:"max_batch_depth" json:"max_batch_depth"`
}

// AdminConfig configures the read-only HTTP admin listener
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Listen  string `yaml:"listen" json:"listen"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// LoadConfig configures the load generator. A nil WriteRatio keeps the
// default; 0 makes a read-only load.
type LoadConfig struct {
	Addr         string   `yaml:"addr" json:"addr"`
	Sessions     int      `yaml:"sessions" json:"sessions"`
	Workers      int      `yaml:"workers" json:"workers"`
	Commands     int      `yaml:"commands" json:"commands"`
	Keys         int      `yaml:"keys" json:"keys"`
	WriteRatio   *float64 `yaml:"write_ratio" json:"write_ratio"`
	DialTimeout  string   `yaml:"dial_timeout" json:"dial_timeout"`
	ReplyTimeout string   `yaml:"reply_timeout" json:"reply_timeout"`
}

// StressConfig configures an in-process stress scenario
type StressConfig struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Duration    string   `yaml:"duration" json:"duration"`
	Workers     int      `yaml:"workers" json:"workers"`
	Commands    int      `yaml:"commands" json:"commands"`
	Keys        int      `yaml:"keys" json:"keys"`
	WriteRatio  *float64 `yaml:"write_ratio" json:"write_ratio"`

	Chaos ChaosConfig `yaml:"chaos" json:"chaos"`
}

// ChaosConfig configures the chaos monkey of a stress scenario
type ChaosConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	Interval    string   `yaml:"interval" json:"interval"`
	PauseTime   string   `yaml:"pause_time" json:"pause_time"`
	AttackTypes []string `yaml:"attack_types" json:"attack_types"`
}

// DefaultAdminListen is the admin address used when none is configured
const DefaultAdminListen = "127.0.0.1:9190"

// LoadFile reads a YAML or JSON configuration file, chosen by extension
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// ToServerConfig converts the server section, filling unset fields with
// defaults
func (f *FileConfig) ToServerConfig() server.Config {
	sc := f.Server
	config := server.DefaultConfig()

	if sc.Listen != "" {
		config.Listen = sc.Listen
	}
	if sc.MaxConnections > 0 {
		config.MaxConnections = sc.MaxConnections
	}
	if sc.MaxLineLength > 0 {
		config.MaxLineLength = sc.MaxLineLength
	}
	if sc.MaxBatchDepth > 0 {
		config.MaxBatchDepth = sc.MaxBatchDepth
	}

	return config
}

// AdminListen returns the admin address and whether the admin API is enabled
func (f *FileConfig) AdminListen() (string, bool) {
	if f.Admin.Listen == "" {
		return DefaultAdminListen, f.Admin.Enabled
	}
	return f.Admin.Listen, f.Admin.Enabled
}

// LogLevel parses the configured level. Unset means info.
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

// ToLoadConfig converts the load section, filling unset fields with defaults
func (f *FileConfig) ToLoadConfig() (loadgen.Config, error) {
	lc := f.Load
	config := loadgen.DefaultConfig()

	if lc.Addr != "" {
		config.Addr = lc.Addr
	}
	if lc.Sessions > 0 {
		config.Sessions = lc.Sessions
	}
	if lc.Workers > 0 {
		config.Workers = lc.Workers
	}
	if lc.Commands > 0 {
		config.Commands = lc.Commands
	}
	if lc.Keys > 0 {
		config.Keys = lc.Keys
	}
	if lc.WriteRatio != nil {
		config.WriteRatio = *lc.WriteRatio
	}
	if lc.DialTimeout != "" {
		d, err := time.ParseDuration(lc.DialTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid dial timeout: %w", err)
		}
		config.DialTimeout = d
	}
	if lc.ReplyTimeout != "" {
		d, err := time.ParseDuration(lc.ReplyTimeout)
		if err != nil {
			return config, fmt.Errorf("invalid reply timeout: %w", err)
		}
		config.ReplyTimeout = d
	}

	return config, nil
}

// ToScenarioConfig converts the stress section, filling unset fields with
// defaults
func (f *FileConfig) ToScenarioConfig() (scenario.Config, error) {
	sc := f.Stress
	config := scenario.DefaultConfig()

	if sc.Name != "" {
		config.Name = sc.Name
	}
	if sc.Description != "" {
		config.Description = sc.Description
	}
	if sc.Duration != "" {
		d, err := time.ParseDuration(sc.Duration)
		if err != nil {
			return config, fmt.Errorf("invalid duration: %w", err)
		}
		config.Duration = d
	}
	if sc.Workers > 0 {
		config.Workers = sc.Workers
	}
	if sc.Commands > 0 {
		config.Commands = sc.Commands
	}
	if sc.Keys > 0 {
		config.Keys = sc.Keys
	}
	if sc.WriteRatio != nil {
		config.WriteRatio = *sc.WriteRatio
	}

	config.EnableChaos = sc.Chaos.Enabled
	if sc.Chaos.Interval != "" {
		d, err := time.ParseDuration(sc.Chaos.Interval)
		if err != nil {
			return config, fmt.Errorf("invalid chaos interval: %w", err)
		}
		config.ChaosInterval = d
	}
	if sc.Chaos.PauseTime != "" {
		d, err := time.ParseDuration(sc.Chaos.PauseTime)
		if err != nil {
			return config, fmt.Errorf("invalid chaos pause time: %w", err)
		}
		config.PauseTime = d
	}
	if len(sc.Chaos.AttackTypes) > 0 {
		attacks, err := parseAttackTypes(sc.Chaos.AttackTypes)
		if err != nil {
			return config, err
		}
		config.AttackTypes = attacks
	}

	return config, nil
}

func parseAttackTypes(types []string) ([]chaos.AttackType, error) {
	attacks := make([]chaos.AttackType, 0, len(types))
	for _, t := range types {
		a, err := chaos.ParseAttackType(t)
		if err != nil {
			return nil, err
		}
		attacks = append(attacks, a)
	}
	return attacks, nil
}

// Validate checks the configuration for values no component accepts
func (f *FileConfig) Validate() error {
	if f.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must be non-negative")
	}
	if f.Server.MaxLineLength < 0 {
		return fmt.Errorf("server.max_line_length must be non-negative")
	}
	if f.Server.MaxBatchDepth < 0 {
		return fmt.Errorf("server.max_batch_depth must be non-negative")
	}

	if _, err := f.LogLevel(); err != nil {
		return err
	}

	if f.Load.Sessions < 0 {
		return fmt.Errorf("load.sessions must be non-negative")
	}
	if f.Load.Workers < 0 {
		return fmt.Errorf("load.workers must be non-negative")
	}
	if f.Load.Commands < 0 {
		return fmt.Errorf("load.commands must be non-negative")
	}
	if f.Load.Keys < 0 {
		return fmt.Errorf("load.keys must be non-negative")
	}
	if !validRatio(f.Load.WriteRatio) {
		return fmt.Errorf("load.write_ratio must be between 0 and 1")
	}

	if f.Stress.Workers < 0 {
		return fmt.Errorf("stress.workers must be non-negative")
	}
	if !validRatio(f.Stress.WriteRatio) {
		return fmt.Errorf("stress.write_ratio must be between 0 and 1")
	}

	return nil
}

func validRatio(r *float64) bool {
	return r == nil || (*r >= 0 && *r <= 1)
}
