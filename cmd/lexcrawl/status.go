package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/config"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint state for every crawled domain",
		Long: `Status lists the checkpoint record of each domain: its crawl
phase, how many URLs it has visited, the deepest level reached, and
how many section seeds are waiting for phase two.

Examples:
  # Show all checkpoint records
  lexcrawl status`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().String("checkpoint-dir", "",
		"Directory for checkpoint files (default: XDG state directory)")
	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("checkpoint-dir")
	if err != nil {
		return err
	}
	if dir == "" {
		dir = config.XDGStateDir()
	}

	store, err := checkpoint.NewStore(dir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	records, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No checkpoints found.")
		return nil
	}

	fmt.Printf("%-30s %-18s %8s %6s %6s  %s\n",
		"DOMAIN", "PHASE", "VISITED", "DEPTH", "SEEDS", "SAVED AT")
	for _, rec := range records {
		savedAt := "-"
		if !rec.SavedAt.IsZero() {
			savedAt = rec.SavedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-30s %-18s %8d %6d %6d  %s\n",
			rec.Domain, rec.Phase, len(rec.VisitedKeys),
			rec.CurrentDepth, len(rec.PendingSeeds), savedAt)
	}
	return nil
}
