package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/crawler"
	"github.com/mindlex/lexcrawl/internal/database"
	"github.com/mindlex/lexcrawl/internal/log"
	"github.com/mindlex/lexcrawl/internal/monitor"
)

// NewTriggerCmd creates the trigger command.
func NewTriggerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger [site...]",
		Short: "Release parked domains into phase two",
		Long: `Trigger resumes domains that a manual-mode crawl parked after
phase one. Each named site (or every parked site when no arguments
are given) is released into the depth-first phase, seeded with the
section URLs its breadth-first phase discovered.

Only domains whose checkpoint records them as awaiting a trigger are
resumed; others are reported and skipped.

Examples:
  # Release every parked domain
  lexcrawl trigger

  # Release specific sites only
  lexcrawl trigger eur-lex`,
		Args: cobra.ArbitraryArgs,
		RunE: runTriggerCmd,
	}

	addCrawlFlags(cmd)
	return cmd
}

// runTriggerCmd executes the trigger command.
func runTriggerCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	sites, err := selectSites(cfg, args)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, err := checkpoint.NewStore(cfg.CheckpointDir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	speed := monitor.NewSpeed()
	startTime := time.Now()
	triggered := 0

	for _, site := range sites {
		rec, err := store.Load(site.Domain)
		if err != nil {
			return fmt.Errorf("failed to load checkpoint for %s: %w", site.Domain, err)
		}
		if crawler.ParseState(rec.Phase) != crawler.StateAwaitingTrigger {
			fmt.Printf("  %-30s not awaiting trigger (phase: %s), skipping\n",
				site.Domain, rec.Phase)
			continue
		}

		d, err := buildDispatcher(cfg, site, db, store, logger, speed)
		if err != nil {
			return err
		}

		input := crawler.TransitionInput{
			DiscoveredURLs: rec.PendingSeeds,
			DepthReached:   rec.CurrentDepth,
		}
		if err := d.TriggerPhase2(ctx, input); err != nil {
			if errors.Is(err, crawler.ErrNotAwaitingTrigger) {
				fmt.Printf("  %-30s not awaiting trigger, skipping\n", site.Domain)
				continue
			}
			return fmt.Errorf("phase two failed for %s: %w", site.Domain, err)
		}

		fmt.Printf("  %-30s %-18s %d pages dispatched\n",
			site.Domain, d.State().String(), d.Dispatched())
		triggered++
	}

	stats := speed.Snapshot(time.Hour)
	fmt.Printf("\nTriggered %d domain(s) in %s: %d fetched, %d failed\n",
		triggered, time.Since(startTime).Round(time.Millisecond),
		stats.Succeeded, stats.Failed)
	return nil
}
