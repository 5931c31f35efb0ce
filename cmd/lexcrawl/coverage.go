package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/config"
	"github.com/mindlex/lexcrawl/internal/database"
	"github.com/mindlex/lexcrawl/internal/report"
)

// NewCoverageCmd creates the coverage command.
func NewCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Report crawl coverage per domain",
		Long: `Coverage combines the page database and checkpoint records into a
per-domain report: pages recorded, URLs visited, deepest level
reached, crawl phase, and pending phase-two seeds.

Examples:
  # Plain text report to stdout
  lexcrawl coverage

  # Machine-readable report
  lexcrawl coverage --json

  # Markdown report to a file
  lexcrawl coverage --markdown -o coverage.md`,
		Args: cobra.NoArgs,
		RunE: runCoverageCmd,
	}

	cmd.Flags().Bool("json", false, "Write the report as JSON")
	cmd.Flags().Bool("markdown", false, "Write the report as Markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().String("db-dir", "",
		"Directory for the page database (default: XDG data directory)")
	cmd.Flags().String("checkpoint-dir", "",
		"Directory for checkpoint files (default: XDG state directory)")
	cmd.MarkFlagsMutuallyExclusive("json", "markdown")
	return cmd
}

// runCoverageCmd executes the coverage command.
func runCoverageCmd(cmd *cobra.Command, _ []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	asMarkdown, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

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

	stats, err := db.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read page statistics: %w", err)
	}

	store, err := checkpoint.NewStore(cpDir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	records, err := store.List()
	if err != nil {
		return fmt.Errorf("failed to list checkpoints: %w", err)
	}

	coverage := report.BuildCoverage(stats, records)

	var output io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case asJSON:
		writer = report.NewJSONWriter(output, report.WithPrettyPrint())
	case asMarkdown:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output)
	}

	if _, err := writer.Write(coverage); err != nil {
		return fmt.Errorf("failed to write coverage report: %w", err)
	}
	if outputPath != "" {
		fmt.Printf("Coverage report written to %s\n", outputPath)
	}
	return nil
}
