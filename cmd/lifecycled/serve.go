package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffstore"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycle"
	"github.com/kodelet-systems/agentlifecycle/pkg/modelclient"
	"github.com/kodelet-systems/agentlifecycle/pkg/notifier"
	"github.com/kodelet-systems/agentlifecycle/pkg/observability"
	"github.com/kodelet-systems/agentlifecycle/pkg/orchestrator"
	"github.com/kodelet-systems/agentlifecycle/pkg/presenter"
	"github.com/kodelet-systems/agentlifecycle/pkg/sessionstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an interactive REPL against the orchestrator",
	Long: `serve opens the handoff store, wires a lifecycle manager and
orchestrator against the in-process demo model client, and reads lines
from stdin as inbound messages from a single demo user. Each line is
routed through classification, workflow selection, and execution exactly
as a platform adapter's webhook handler would.

Type /cancel to cancel the active task, /quit to exit.`,
	RunE: runServe,
}

func init() {
	addConfigFlags(serveCmd)
	serveCmd.Flags().String("user", "demo-user", "user id the REPL sends messages as")
	serveCmd.Flags().Int("tokens-per-step", 5000, "synthetic tokens the demo model client reports per step")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dbPath, _ := cmd.Flags().GetString("db-path")
	fallbackDir, _ := cmd.Flags().GetString("fallback-dir")

	bus := observability.NewBus("lifecycled")

	var opts []handoffstore.Option
	if fallbackDir != "" {
		opts = append(opts, handoffstore.WithFallbackDir(fallbackDir))
	}
	opts = append(opts, handoffstore.WithBus(bus))

	store, err := handoffstore.Open(ctx, dbPath, opts...)
	if err != nil {
		presenter.Error(err, "failed to open handoff store")
		return err
	}
	defer store.Close()

	if fallbackDir != "" {
		watcher, err := store.WatchFallbackDir()
		if err != nil {
			presenter.Error(err, "failed to start fallback watcher")
			return err
		}
		defer watcher.Close()
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				presenter.Error(err, "fallback watcher stopped")
			}
		}()
	}

	cfg := buildConfig(cmd)
	tokensPerStep, _ := cmd.Flags().GetInt("tokens-per-step")
	userID, _ := cmd.Flags().GetString("user")

	model := &modelclient.DemoClient{TokensPerStep: tokensPerStep}
	notify := &notifier.ConsoleNotifier{}

	manager := lifecycle.NewManager(cfg, store, model, notify, bus)
	o := orchestrator.New(manager, sessionstore.NewInMemoryStore(), model, notify, bus)

	presenter.Section(fmt.Sprintf("lifecycled serve — user=%s db=%s", userID, dbPath))
	presenter.Info("Type a message and press enter. /cancel cancels the active task, /quit exits.")
	presenter.Separator()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			break
		}

		msg := orchestrator.IncomingMessage{
			UserID:    userID,
			MessageID: uuid.NewString(),
			Text:      line,
		}
		if line == "/cancel" {
			msg.CancelRequested = true
			msg.Text = ""
		}

		result, err := o.HandleMessage(ctx, msg)
		if err != nil {
			presenter.Error(err, "task failed")
			continue
		}
		printResult(result)
	}

	return scanner.Err()
}

func printResult(result *orchestrator.Result) {
	if result.Deduplicated {
		presenter.Warning("duplicate message, ignored")
		return
	}
	presenter.Success(fmt.Sprintf(
		"classification=%s workflow=%s task=%s final_agent=%s handoffs=%d",
		result.Classification, result.Workflow, result.TaskID, result.FinalAgentID, result.HandoffCount,
	))
}
