package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskfleet/taskfleet/internal/config"
	"github.com/taskfleet/taskfleet/internal/usage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show usage and quota state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath := cfg.UsageDBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No usage recorded yet. Run 'taskfleet run <task>' to start.")
		return nil
	}

	store, err := usage.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("open usage store: %w", err)
	}
	defer store.Close()

	tracker, err := usage.NewTracker(store, cfg.Quota.DailyLimit, cfg.Quota.WarnFraction)
	if err != nil {
		return err
	}

	fmt.Println(tracker.Summary())

	status := tracker.CheckQuota()
	switch {
	case status.Exceeded:
		color.Red("Daily quota exceeded (%d/%d).", status.Used, status.Limit)
	case status.Approaching:
		color.Yellow("Approaching daily quota: %.0f%% used.", status.Percentage*100)
	default:
		color.Green("Quota healthy: %d of %d requests remaining.", status.Remaining, status.Limit)
	}
	return nil
}
