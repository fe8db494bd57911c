package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffstore"
	"github.com/kodelet-systems/agentlifecycle/pkg/lifecycleerrors"
	"github.com/kodelet-systems/agentlifecycle/pkg/presenter"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the current head handoff and its chain for a task",
	Long:  `stats loads the most recent unreferenced handoff for --task-id and prints its chain, from root to head.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().String("task-id", "", "task id to report on (required)")
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dbPath, _ := cmd.Flags().GetString("db-path")
	taskID, _ := cmd.Flags().GetString("task-id")

	if taskID == "" {
		return cmd.Usage()
	}

	store, err := handoffstore.Open(ctx, dbPath)
	if err != nil {
		presenter.Error(err, "failed to open handoff store")
		return err
	}
	defer store.Close()

	head, err := store.Head(ctx, taskID)
	if err != nil {
		if kind, ok := lifecycleerrors.KindOf(err); ok && kind == lifecycleerrors.KindNotFound {
			presenter.Warning(fmt.Sprintf("no handoffs found for task %s", taskID))
			return nil
		}
		presenter.Error(err, "failed to load head handoff")
		return err
	}

	chain, err := store.Chain(ctx, head.HandoffID)
	if err != nil {
		presenter.Error(err, "failed to walk handoff chain")
		return err
	}

	presenter.Section(fmt.Sprintf("task %s — %d handoff(s)", taskID, len(chain)))
	for i, doc := range chain {
		presenter.Info(fmt.Sprintf(
			"%d. handoff=%s agent=%s phase=%s status=%s completion=%d%% degraded=%t",
			i+1, doc.HandoffID, doc.SourceAgent.AgentID, doc.CurrentPhase, doc.TaskStatus, doc.CompletionPercentage, doc.Degraded,
		))
	}

	return nil
}
