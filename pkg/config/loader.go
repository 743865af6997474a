package config

import (
	"os"

	"gopkg.in/yaml.v3"

	herrors "github.com/apache/harmony-sub021/pkg/errors"
)

// loadAndMerge loads a YAML file and merges the fields it sets into cfg.
func loadAndMerge(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return herrors.Wrap(err, herrors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return herrors.Wrap(err, herrors.ErrCodeConfigParse, "parsing YAML").WithContext("path", path)
	}

	mergeConfigs(cfg, &override, raw)
	return nil
}

// mergeConfigs merges override into base. Zero strings and numbers mean
// "unset"; booleans are merged only when present in raw.
func mergeConfigs(base, override *Config, raw map[string]any) {
	if override.Focus.Policy != "" {
		base.Focus.Policy = override.Focus.Policy
	}
	if fieldSet(raw, "focus", "keys") {
		if base.Focus.Keys == nil {
			base.Focus.Keys = make(map[string][]string)
		}
		for action, keys := range override.Focus.Keys {
			base.Focus.Keys[action] = keys
		}
	}

	if fieldSet(raw, "events", "capacity") {
		base.Events.Capacity = override.Events.Capacity
	}

	if override.Native.Bridge != "" {
		base.Native.Bridge = override.Native.Bridge
	}
	if override.Native.NATSURL != "" {
		base.Native.NATSURL = override.Native.NATSURL
	}
	if override.Native.SubjectPrefix != "" {
		base.Native.SubjectPrefix = override.Native.SubjectPrefix
	}
	if override.Native.Timeout != 0 {
		base.Native.Timeout = override.Native.Timeout
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Dir != "" {
		base.Logging.Dir = override.Logging.Dir
	}

	if fieldSet(raw, "telemetry", "tracing") {
		base.Telemetry.Tracing = override.Telemetry.Tracing
	}
	if override.Telemetry.ServiceName != "" {
		base.Telemetry.ServiceName = override.Telemetry.ServiceName
	}

	if fieldSet(raw, "inspector", "enabled") {
		base.Inspector.Enabled = override.Inspector.Enabled
	}
	if override.Inspector.Bind != "" {
		base.Inspector.Bind = override.Inspector.Bind
	}
}

func fieldSet(raw map[string]any, path ...string) bool {
	if len(path) == 0 || raw == nil {
		return false
	}
	current := any(raw)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return false
		}
		val, ok := m[key]
		if !ok {
			return false
		}
		current = val
	}
	return true
}
