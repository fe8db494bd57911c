// Package config loads the environment-driven configuration for the agent
// lifecycle core: context window thresholds, handoff limits, deadlines, and
// observability toggles.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the immutable, process-wide configuration for the lifecycle
// core. It is loaded once at startup via Load and never mutated afterward.
type Config struct {
	ContextWindowLimit    int     `mapstructure:"context_window_limit"`
	WarningThreshold      float64 `mapstructure:"warning_threshold"`
	CriticalThreshold     float64 `mapstructure:"critical_threshold"`
	MaxHandoffsPerTask    int     `mapstructure:"max_handoffs_per_task"`
	HandoffRepairAttempts int     `mapstructure:"handoff_repair_attempts"`

	HandoffExtractionDeadline time.Duration `mapstructure:"-"`
	ModelCallDeadline         time.Duration `mapstructure:"-"`
	HandoffRetention          time.Duration `mapstructure:"-"`

	HandoffExtractionDeadlineSec int `mapstructure:"handoff_extraction_deadline_sec"`
	ModelCallDeadlineSec         int `mapstructure:"model_call_deadline_sec"`
	HandoffRetentionDays         int `mapstructure:"handoff_retention_days"`

	ObservabilityEnabled bool   `mapstructure:"observability_enabled"`
	HandoffStoreDSN      string `mapstructure:"handoff_store_dsn"`
	HandoffFallbackDir   string `mapstructure:"handoff_fallback_dir"`
}

// setDefaults registers the default value for every spec-enumerated
// environment variable, mirroring the teacher's InitConfig pattern of one
// viper.SetDefault call per setting.
func setDefaults(v *viper.Viper) {
	v.SetDefault("context_window_limit", 200000)
	v.SetDefault("warning_threshold", 0.75)
	v.SetDefault("critical_threshold", 0.90)
	v.SetDefault("max_handoffs_per_task", 5)
	v.SetDefault("handoff_repair_attempts", 1)
	v.SetDefault("handoff_extraction_deadline_sec", 30)
	v.SetDefault("model_call_deadline_sec", 120)
	v.SetDefault("handoff_retention_days", 30)
	v.SetDefault("observability_enabled", false)
	v.SetDefault("handoff_store_dsn", "")
	v.SetDefault("handoff_fallback_dir", "")
}

// Load reads configuration from the process environment, applying defaults
// for anything unset. Environment variables are matched case-insensitively
// against the mapstructure keys above (e.g. CONTEXT_WINDOW_LIMIT).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	for _, key := range []string{
		"context_window_limit",
		"warning_threshold",
		"critical_threshold",
		"max_handoffs_per_task",
		"handoff_repair_attempts",
		"handoff_extraction_deadline_sec",
		"model_call_deadline_sec",
		"handoff_retention_days",
		"observability_enabled",
		"handoff_store_dsn",
		"handoff_fallback_dir",
	} {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.HandoffExtractionDeadline = time.Duration(cfg.HandoffExtractionDeadlineSec) * time.Second
	cfg.ModelCallDeadline = time.Duration(cfg.ModelCallDeadlineSec) * time.Second
	cfg.HandoffRetention = time.Duration(cfg.HandoffRetentionDays) * 24 * time.Hour

	return cfg, nil
}

// Default returns a Config populated purely with defaults, useful for tests
// and the demo CLI when no environment overrides are present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	cfg.HandoffExtractionDeadline = time.Duration(cfg.HandoffExtractionDeadlineSec) * time.Second
	cfg.ModelCallDeadline = time.Duration(cfg.ModelCallDeadlineSec) * time.Second
	cfg.HandoffRetention = time.Duration(cfg.HandoffRetentionDays) * 24 * time.Hour
	return cfg
}
