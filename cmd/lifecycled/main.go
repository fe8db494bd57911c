// Command lifecycled is a demo binary wiring the agent lifecycle core end
// to end: configuration, the handoff store, the lifecycle manager, the
// orchestrator, and observability, driven against the in-process
// modelclient.DemoClient stand-in for a real vendor backend.
package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kodelet-systems/agentlifecycle/pkg/db"
	"github.com/kodelet-systems/agentlifecycle/pkg/logger"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
	"github.com/kodelet-systems/agentlifecycle/pkg/version"
)

func init() {
	viper.SetDefault("context_window_limit", 200000)
	viper.SetDefault("warning_threshold", 0.75)
	viper.SetDefault("critical_threshold", 0.90)
	viper.SetDefault("max_handoffs_per_task", 5)
	viper.SetDefault("handoff_repair_attempts", 1)
	viper.SetDefault("handoff_retention_days", 30)
	viper.SetDefault("tokens_per_step", 5000)
	viper.SetDefault("observability_enabled", false)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "fmt")

	viper.SetEnvPrefix("AGENTLIFECYCLE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.agentlifecycle")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err == nil {
		logger.G(context.TODO()).WithField("config_file", viper.ConfigFileUsed()).Debug("using config file")
	}
}

var rootCmd = &cobra.Command{
	Use:   "lifecycled",
	Short: "Demo driver for the agent lifecycle and context-window management core",
	Long: `lifecycled wires together the agent lifecycle core's components —
token tracking, handoff documents, the SQLite-backed handoff store, the
lifecycle manager, and the per-user orchestrator — against a deterministic
in-process model stand-in, so the full spawn/handoff/terminate/respawn
cycle can be driven and inspected without a live vendor integration.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(1)
	},
}

func defaultDBPath() string {
	path, err := db.DefaultDBPath()
	if err != nil {
		return "lifecycled.db"
	}
	return path
}

func main() {
	ctx := context.Background()

	cobra.OnInitialize(func() {
		if level := viper.GetString("log_level"); level != "" {
			if err := logger.SetLogLevel(level); err != nil {
				logger.G(context.TODO()).WithField("error", err).WithField("log_level", level).Warn("invalid log level, using default")
			}
		}
		if format := viper.GetString("log_format"); format != "" {
			logger.SetLogFormat(format)
		}
	})

	rootCmd.PersistentFlags().String("db-path", defaultDBPath(), "path to the handoff store SQLite database")
	rootCmd.PersistentFlags().String("fallback-dir", "", "directory for on-disk handoff export when the store is unreachable")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "fmt", "log format (json, text, fmt)")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(withTracing(gcCmd))
	rootCmd.AddCommand(withTracing(statsCmd))
	rootCmd.AddCommand(withTracing(versionCmd))

	shutdown, err := observability.InitTracer(ctx, observability.Config{
		Enabled:        viper.GetBool("observability_enabled"),
		ServiceName:    "lifecycled",
		ServiceVersion: version.Get().Version,
		SamplerType:    "always",
		SamplerRatio:   1,
	})
	if err != nil {
		logger.G(context.TODO()).WithField("error", err).Warn("failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.G(context.TODO()).WithField("error", err).Warn("failed to shut down tracing")
			}
		}()
	}

	rootCmd.SetContext(ctx)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.G(context.TODO()).WithField("error", err).Error("command failed")
		os.Exit(1)
	}
}
