package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for lexcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexcrawl",
		Short: "Phase-aware crawler for legal information portals",
		Long: `Lexcrawl crawls legal information portals in two phases: a shallow
breadth-first pass that maps each portal's section structure, followed
by a depth-first pass that walks the discovered sections down to the
document level.

Progress is checkpointed per domain, so interrupted crawls resume
without re-fetching recorded pages.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewTriggerCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewCoverageCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewClearCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
