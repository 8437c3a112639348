package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fathomdds/rtps/rtps"
)

// runtimeConfig is the host process's own concerns layered on top of
// rtps.ParticipantConfig, one nested struct per concern.
type runtimeConfig struct {
	Participant rtps.ParticipantConfig `yaml:"participant"`
	Log         logConfig              `yaml:"log"`
	Metrics     metricsConfig          `yaml:"metrics"`
}

type logConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

type metricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// defaultRuntimeConfig mirrors rtps.DefaultParticipantConfig plus
// sane host-process defaults.
func defaultRuntimeConfig() *runtimeConfig {
	return &runtimeConfig{
		Participant: rtps.DefaultParticipantConfig(),
		Log: logConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: metricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9808",
		},
	}
}

// loadRuntimeConfig loads YAML from filename, or returns defaults if
// filename is empty or the file does not exist.
func loadRuntimeConfig(filename string) (*runtimeConfig, error) {
	if filename == "" {
		return defaultRuntimeConfig(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultRuntimeConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := defaultRuntimeConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *runtimeConfig) validate() error {
	if c.Participant.SPDPResendPeriod <= 0 {
		return fmt.Errorf("participant.spdp_resend_period must be positive")
	}
	if c.Participant.HeartbeatPeriod <= 0 {
		return fmt.Errorf("participant.heartbeat_period must be positive")
	}
	if c.Participant.WriterHistoryDepth <= 0 {
		return fmt.Errorf("participant.writer_history_depth must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}
