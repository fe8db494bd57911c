package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kodelet-systems/agentlifecycle/pkg/handoffstore"
	"github.com/kodelet-systems/agentlifecycle/pkg/presenter"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove handoffs older than the retention window",
	Long:  `gc deletes every handoff stored more than --retention-days ago, except one that is still the predecessor of a handoff stored within that window, and reports how many rows were removed.`,
	RunE:  runGC,
}

func init() {
	addConfigFlags(gcCmd)
}

func runGC(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	dbPath, _ := cmd.Flags().GetString("db-path")

	store, err := handoffstore.Open(ctx, dbPath)
	if err != nil {
		presenter.Error(err, "failed to open handoff store")
		return err
	}
	defer store.Close()

	cfg := buildConfig(cmd)

	removed, err := store.GC(ctx, cfg.HandoffRetention)
	if err != nil {
		presenter.Error(err, "gc failed")
		return err
	}

	presenter.Success(fmt.Sprintf("removed %d handoff(s) older than %d day(s)", removed, cfg.HandoffRetentionDays))
	return nil
}
