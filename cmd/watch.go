package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/menoncello/coding-standard-sub000/internal/registry"
	"github.com/menoncello/coding-standard-sub000/internal/reload"
	"github.com/menoncello/coding-standard-sub000/internal/types"
	"github.com/menoncello/coding-standard-sub000/internal/validation"
	"github.com/menoncello/coding-standard-sub000/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch standards roots and hot reload the registry",
	Long: `Watch the configured directory trees for standards file changes and
apply them to the registry through the reload pipeline. Malformed or
conflicting files never crash the process; they surface as itemized errors
in the log.

Examples:
  standards watch
  standards watch --config team-standards.yml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store := registry.NewRuleRegistry()
	orchestrator, err := reload.New(cfg.ReloadConfig(), store, validation.New(), logger)
	if err != nil {
		return err
	}

	fw, err := watcher.New(cfg.WatcherConfig(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fw.OnChange(func(changes []types.FileChange) error {
		result := orchestrator.ProcessChanges(ctx, changes)
		if !result.Success {
			for _, issue := range result.Errors {
				logger.Warn(ctx, nil, "reload error", "file", issue.File, "message", issue.Message)
			}
			return nil
		}
		logger.Info(ctx, "reload applied",
			"operation", result.OperationID,
			"added", len(result.AddedRules),
			"updated", len(result.UpdatedRules),
			"removed", len(result.RemovedRules),
			"duration", result.Duration)
		return nil
	})

	if err := fw.Start(ctx); err != nil {
		return err
	}
	defer fw.Stop()

	fmt.Printf("Watching %v for standards changes. Press Ctrl+C to stop.\n", cfg.Watch.Roots)
	<-ctx.Done()

	stats := fw.Stats()
	logger.Info(context.Background(), "watcher stopped",
		"events", stats.EventsSeen,
		"deliveries", stats.Deliveries,
		"handler_errors", stats.HandlerErrors)
	return nil
}
