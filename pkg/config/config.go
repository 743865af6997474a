// Package config loads harmony configuration from YAML files and HARMONY_*
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	herrors "github.com/apache/harmony-sub021/pkg/errors"
	"github.com/apache/harmony-sub021/pkg/logging"
)

// Config is the complete toolkit configuration.
type Config struct {
	Focus     FocusConfig     `yaml:"focus"`
	Events    EventsConfig    `yaml:"events"`
	Native    NativeConfig    `yaml:"native"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Inspector InspectorConfig `yaml:"inspector"`
}

// FocusConfig selects the default traversal policy and key bindings.
type FocusConfig struct {
	// Policy is "container" or "layout".
	Policy string `yaml:"policy"`
	// Keys maps a traversal action (forward, backward, up_cycle,
	// down_cycle) to key names such as "Tab" or "Ctrl+Up".
	Keys map[string][]string `yaml:"keys"`
}

// EventsConfig sizes the event channel.
type EventsConfig struct {
	Capacity int `yaml:"capacity"`
}

// Bridge kinds.
const (
	BridgeMemory = "memory"
	BridgeNATS   = "nats"
)

// NativeConfig selects the windowing bridge.
type NativeConfig struct {
	Bridge        string        `yaml:"bridge"`
	NATSURL       string        `yaml:"nats_url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Dir holds session logs; empty logs to stderr.
	Dir string `yaml:"dir"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	Tracing     bool   `yaml:"tracing"`
	ServiceName string `yaml:"service_name"`
}

// InspectorConfig controls the HTTP inspector.
type InspectorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Focus: FocusConfig{
			Policy: "container",
			Keys: map[string][]string{
				"forward":  {"Tab"},
				"backward": {"Backtab"},
			},
		},
		Events: EventsConfig{Capacity: 64},
		Native: NativeConfig{
			Bridge:        BridgeMemory,
			NATSURL:       "nats://localhost:4222",
			SubjectPrefix: "harmony.native",
			Timeout:       5 * time.Second,
		},
		Logging: LoggingConfig{Level: string(logging.LevelInfo)},
		Telemetry: TelemetryConfig{
			ServiceName: "harmony",
		},
		Inspector: InspectorConfig{Bind: "127.0.0.1:7421"},
	}
}

// Load applies defaults, ~/.harmony/config.yaml, ./.harmony/config.yaml and
// HARMONY_* environment variables in that order, then validates.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	if home != "" {
		userConfigPath := filepath.Join(home, ".harmony", "config.yaml")
		if err := loadAndMerge(cfg, userConfigPath); err != nil && !os.IsNotExist(err) {
			return nil, herrors.Wrap(err, herrors.ErrCodeConfigLoad, "loading user config").
				WithContext("path", userConfigPath)
		}
	}

	projectConfigPath := filepath.Join(".", ".harmony", "config.yaml")
	if err := loadAndMerge(cfg, projectConfigPath); err != nil && !os.IsNotExist(err) {
		return nil, herrors.Wrap(err, herrors.ErrCodeConfigLoad, "loading project config").
			WithContext("path", projectConfigPath)
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads defaults, one file and the environment.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := loadAndMerge(cfg, path); err != nil {
		return nil, herrors.Wrap(err, herrors.ErrCodeConfigLoad, "loading config").WithContext("path", path)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HARMONY_FOCUS_POLICY"); v != "" {
		cfg.Focus.Policy = v
	}
	if v := os.Getenv("HARMONY_EVENTS_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Events.Capacity = n
		}
	}
	if v := os.Getenv("HARMONY_NATIVE_BRIDGE"); v != "" {
		cfg.Native.Bridge = v
	}
	if v := os.Getenv("HARMONY_NATS_URL"); v != "" {
		cfg.Native.NATSURL = v
	}
	if v := os.Getenv("HARMONY_NATIVE_SUBJECT_PREFIX"); v != "" {
		cfg.Native.SubjectPrefix = v
	}
	if v := os.Getenv("HARMONY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("HARMONY_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if val, ok := envBool("HARMONY_TRACING"); ok {
		cfg.Telemetry.Tracing = val
	}
	if val, ok := envBool("HARMONY_INSPECTOR_ENABLED"); ok {
		cfg.Inspector.Enabled = val
	}
	if v := os.Getenv("HARMONY_INSPECTOR_BIND"); v != "" {
		cfg.Inspector.Bind = v
	}
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

var traversalActions = map[string]bool{
	"forward":    true,
	"backward":   true,
	"up_cycle":   true,
	"down_cycle": true,
}

// Validate checks values that can be checked without building anything.
// Key names are resolved when the toolkit is built.
func (c *Config) Validate() error {
	invalid := func(msg, field string, value any) error {
		return herrors.New(herrors.ErrCodeConfigInvalid, msg).WithContext("field", field).WithContext("value", value)
	}

	switch c.Focus.Policy {
	case "container", "layout":
	default:
		return invalid("unknown traversal policy", "focus.policy", c.Focus.Policy)
	}
	for action := range c.Focus.Keys {
		if !traversalActions[action] {
			return invalid("unknown traversal action", "focus.keys", action)
		}
	}
	if c.Events.Capacity < 0 {
		return invalid("capacity must not be negative", "events.capacity", c.Events.Capacity)
	}
	switch c.Native.Bridge {
	case BridgeMemory:
	case BridgeNATS:
		if strings.TrimSpace(c.Native.NATSURL) == "" {
			return invalid("nats bridge requires a URL", "native.nats_url", c.Native.NATSURL)
		}
	default:
		return invalid("unknown native bridge", "native.bridge", c.Native.Bridge)
	}
	if c.Native.Timeout < 0 {
		return invalid("timeout must not be negative", "native.timeout", c.Native.Timeout)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return invalid("unknown log level", "logging.level", c.Logging.Level)
	}
	if c.Inspector.Enabled && strings.TrimSpace(c.Inspector.Bind) == "" {
		return invalid("inspector requires a bind address", "inspector.bind", c.Inspector.Bind)
	}
	return nil
}
