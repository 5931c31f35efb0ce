package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/config"
	"github.com/mindlex/lexcrawl/internal/database"
)

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear [domain...]",
		Short: "Remove checkpoint records",
		Long: `Clear deletes the checkpoint record for each named domain so the
next crawl starts from scratch. Recorded pages are kept unless --db
is given, which also deletes the domain's pages from the database.

Examples:
  # Clear one domain's checkpoint
  lexcrawl clear eur-lex.europa.eu

  # Clear every checkpoint
  lexcrawl clear --all

  # Clear checkpoint and recorded pages
  lexcrawl clear eur-lex.europa.eu --db`,
		Args: cobra.ArbitraryArgs,
		RunE: runClearCmd,
	}

	cmd.Flags().Bool("all", false, "Clear every checkpoint record")
	cmd.Flags().Bool("db", false, "Also delete the domain's pages from the database")
	cmd.Flags().String("db-dir", "",
		"Directory for the page database (default: XDG data directory)")
	cmd.Flags().String("checkpoint-dir", "",
		"Directory for checkpoint files (default: XDG state directory)")
	return cmd
}

// runClearCmd executes the clear command.
func runClearCmd(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	alsoDB, err := cmd.Flags().GetBool("db")
	if err != nil {
		return err
	}
	if !all && len(args) == 0 {
		return fmt.Errorf("specify at least one domain or use --all")
	}
	if all && len(args) > 0 {
		return fmt.Errorf("--all cannot be combined with domain arguments")
	}

	cpDir, err := cmd.Flags().GetString("checkpoint-dir")
	if err != nil {
		return err
	}
	if cpDir == "" {
		cpDir = config.XDGStateDir()
	}

	store, err := checkpoint.NewStore(cpDir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	domains := args
	if all {
		records, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list checkpoints: %w", err)
		}
		for _, rec := range records {
			domains = append(domains, rec.Domain)
		}
		if err := store.ClearAll(); err != nil {
			return err
		}
	} else {
		for _, domain := range domains {
			if err := store.Clear(domain); err != nil {
				return err
			}
		}
	}
	fmt.Printf("Cleared %d checkpoint record(s).\n", len(domains))

	if !alsoDB {
		return nil
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	for _, domain := range domains {
		deleted, err := db.DeleteDomain(cmd.Context(), domain)
		if err != nil {
			return fmt.Errorf("failed to delete pages for %s: %w", domain, err)
		}
		fmt.Printf("  %-30s %d page(s) deleted\n", domain, deleted)
	}
	return nil
}
