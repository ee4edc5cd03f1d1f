package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/menoncello/coding-standard-sub000/internal/registry"
	"github.com/menoncello/coding-standard-sub000/internal/reload"
	"github.com/menoncello/coding-standard-sub000/internal/types"
	"github.com/menoncello/coding-standard-sub000/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Dry-run validation of standards files",
	Long: `Parse and validate the given standards files without applying anything.
Each file is decoded by its extension (.json, .yaml, .yml, .md), normalized,
and checked for syntactic and semantic problems.

Examples:
  standards validate standards/naming.yaml
  standards validate standards/*.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	orchestrator, err := reload.New(cfg.ReloadConfig(), registry.NewRuleRegistry(), validation.New(), logger)
	if err != nil {
		return err
	}

	changes := make([]types.FileChange, 0, len(args))
	for _, path := range args {
		changes = append(changes, types.FileChange{
			Path:      path,
			Type:      types.ChangeUpdate,
			Timestamp: time.Now(),
		})
	}

	result := orchestrator.ValidateChanges(context.Background(), changes)

	for _, warning := range result.Warnings {
		fmt.Printf("WARN  %s: %s\n", warning.File, warning.Message)
	}
	for _, issue := range result.Errors {
		fmt.Printf("ERROR %s: %s\n", issue.File, issue.Message)
	}
	for _, file := range result.ValidFiles {
		fmt.Printf("OK    %s\n", file)
	}

	if !result.Valid {
		return fmt.Errorf("%d of %d files failed validation", len(result.Errors), len(args))
	}
	fmt.Printf("%d files valid\n", len(result.ValidFiles))
	return nil
}
