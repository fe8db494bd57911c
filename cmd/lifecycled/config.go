package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kodelet-systems/agentlifecycle/pkg/config"
)

// addConfigFlags registers the flags shared by commands that construct a
// lifecycle config.Config, so serve and gc present identical knobs.
func addConfigFlags(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.Flags().Int("context-window-limit", defaults.ContextWindowLimit, "total token budget per agent instance")
	cmd.Flags().Float64("warning-threshold", defaults.WarningThreshold, "usage fraction that enters the WARNING zone")
	cmd.Flags().Float64("critical-threshold", defaults.CriticalThreshold, "usage fraction that enters the CRITICAL zone")
	cmd.Flags().Int("max-handoffs", defaults.MaxHandoffsPerTask, "maximum handoffs allowed per task before it fails")
	cmd.Flags().Int("repair-attempts", defaults.HandoffRepairAttempts, "extraction repair attempts before degrading a handoff")
	cmd.Flags().Int("retention-days", defaults.HandoffRetentionDays, "days a handoff is kept before GC removes it")
}

// buildConfig constructs a config.Config from defaults overridden by
// whichever of addConfigFlags' flags the command defines and the caller
// set.
func buildConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Default()

	if cmd.Flags().Lookup("context-window-limit") != nil {
		cfg.ContextWindowLimit, _ = cmd.Flags().GetInt("context-window-limit")
	}
	if cmd.Flags().Lookup("warning-threshold") != nil {
		cfg.WarningThreshold, _ = cmd.Flags().GetFloat64("warning-threshold")
	}
	if cmd.Flags().Lookup("critical-threshold") != nil {
		cfg.CriticalThreshold, _ = cmd.Flags().GetFloat64("critical-threshold")
	}
	if cmd.Flags().Lookup("max-handoffs") != nil {
		cfg.MaxHandoffsPerTask, _ = cmd.Flags().GetInt("max-handoffs")
	}
	if cmd.Flags().Lookup("repair-attempts") != nil {
		cfg.HandoffRepairAttempts, _ = cmd.Flags().GetInt("repair-attempts")
	}
	if cmd.Flags().Lookup("retention-days") != nil {
		days, _ := cmd.Flags().GetInt("retention-days")
		cfg.HandoffRetentionDays = days
		cfg.HandoffRetention = time.Duration(days) * 24 * time.Hour
	}

	return cfg
}
