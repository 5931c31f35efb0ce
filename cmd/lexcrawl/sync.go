package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/config"
	"github.com/mindlex/lexcrawl/internal/database"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [domain...]",
		Short: "Rebuild checkpoint visited sets from the page database",
		Long: `Sync merges every URL recorded in the page database into the
matching checkpoint's visited set. A checkpoint lost or truncated
between saves can lag behind the database; after sync, resuming a
crawl will not re-fetch pages that are already recorded.

With no arguments every domain present in the database is synced.

Examples:
  # Sync all domains
  lexcrawl sync

  # Sync one domain
  lexcrawl sync eur-lex.europa.eu`,
		Args: cobra.ArbitraryArgs,
		RunE: runSyncCmd,
	}

	cmd.Flags().String("db-dir", "",
		"Directory for the page database (default: XDG data directory)")
	cmd.Flags().String("checkpoint-dir", "",
		"Directory for checkpoint files (default: XDG state directory)")
	return cmd
}

// runSyncCmd executes the sync command.
func runSyncCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}
	cpDir, err := cmd.Flags().GetString("checkpoint-dir")
	if err != nil {
		return err
	}
	if cpDir == "" {
		cpDir = config.XDGStateDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, err := checkpoint.NewStore(cpDir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	domains := args
	if len(domains) == 0 {
		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read page statistics: %w", err)
		}
		for _, s := range stats {
			domains = append(domains, s.Domain)
		}
	}
	if len(domains) == 0 {
		fmt.Println("No domains to sync.")
		return nil
	}

	for _, domain := range domains {
		added, total, err := syncDomain(cmd, db, store, domain)
		if err != nil {
			return err
		}
		fmt.Printf("  %-30s %d key(s) added, %d total\n", domain, added, total)
	}
	return nil
}

// syncDomain merges the database keys for one domain into its
// checkpoint record and saves it. Returns how many keys were new and
// the resulting visited-set size.
func syncDomain(cmd *cobra.Command, db *database.PageDB, store *checkpoint.Store, domain string) (added, total int, err error) {
	keys, err := db.FetchKeys(cmd.Context(), domain)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch keys for %s: %w", domain, err)
	}

	rec, err := store.Load(domain)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load checkpoint for %s: %w", domain, err)
	}

	known := make(map[string]struct{}, len(rec.VisitedKeys))
	for _, k := range rec.VisitedKeys {
		known[k] = struct{}{}
	}
	for _, k := range keys {
		if _, ok := known[k]; ok {
			continue
		}
		known[k] = struct{}{}
		rec.VisitedKeys = append(rec.VisitedKeys, k)
		added++
	}

	if added > 0 {
		if err := store.Save(rec); err != nil {
			return 0, 0, fmt.Errorf("failed to save checkpoint for %s: %w", domain, err)
		}
	}
	return added, len(rec.VisitedKeys), nil
}
