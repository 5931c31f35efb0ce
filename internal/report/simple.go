package report

import (
	"fmt"
	"io"
	"strings"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether domains with nothing stored are shown.
	showEmpty bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show domains without pages.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the coverage report in human-readable format.
func (w *SimpleWriter) Write(cov *Coverage) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       LEXCRAWL COVERAGE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Generated:    %s\n", cov.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Domains:      %d\n", len(cov.Domains)))
	sb.WriteString(fmt.Sprintf("Total Pages:  %d\n\n", cov.TotalPages()))

	for _, d := range cov.Domains {
		if d.PageCount == 0 && d.VisitedCount == 0 && !w.showEmpty {
			continue
		}

		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Domain:         %s\n", d.Domain))
		sb.WriteString(fmt.Sprintf("Phase:          %s\n", d.Phase))
		sb.WriteString(fmt.Sprintf("Pages Stored:   %d\n", d.PageCount))
		sb.WriteString(fmt.Sprintf("URLs Visited:   %d\n", d.VisitedCount))
		sb.WriteString(fmt.Sprintf("Max Depth:      %d\n", d.MaxDepth))
		if d.PendingSeeds > 0 {
			sb.WriteString(fmt.Sprintf("Pending Seeds:  %d\n", d.PendingSeeds))
		}
		if !d.LastCrawledAt.IsZero() {
			sb.WriteString(fmt.Sprintf("Last Crawled:   %s\n", d.LastCrawledAt.Format("2006-01-02 15:04:05")))
		}
		sb.WriteString("\n")
	}

	return w.output.Write([]byte(sb.String()))
}
