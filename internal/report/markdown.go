package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/mindlex/lexcrawl/internal/crawler"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the coverage report in Markdown format.
func (w *MarkdownWriter) Write(cov *Coverage) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, cov)
	w.writeDomains(md, cov)
	if cov.TotalPages() > 0 {
		w.writePieChart(md, cov)
	}
	w.writeStatusAlert(md, cov)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with overall totals.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, cov *Coverage) {
	md.H1("Lexcrawl Coverage Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Generated", cov.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Domains", strconv.Itoa(len(cov.Domains))},
			{"Total Pages", strconv.Itoa(cov.TotalPages())},
		},
	})
	md.PlainText("")
}

// writeDomains writes one table row per domain.
func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, cov *Coverage) {
	md.H2("Domains")
	md.PlainText("")

	if len(cov.Domains) == 0 {
		md.PlainText("No crawl data recorded yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(cov.Domains))
	for _, d := range cov.Domains {
		lastCrawled := "-"
		if !d.LastCrawledAt.IsZero() {
			lastCrawled = d.LastCrawledAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			"`" + d.Domain + "`",
			d.Phase,
			strconv.Itoa(d.PageCount),
			strconv.Itoa(d.VisitedCount),
			strconv.Itoa(d.MaxDepth),
			strconv.Itoa(d.PendingSeeds),
			lastCrawled,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Phase", "Pages", "Visited", "Max Depth", "Pending Seeds", "Last Crawled"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of pages per domain.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, cov *Coverage) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Domain"),
		piechart.WithShowData(true),
	)

	for _, d := range cov.Domains {
		if d.PageCount > 0 {
			chart.LabelAndIntValue(d.Domain, uint64(d.PageCount))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeStatusAlert writes an alert summarizing the crawl status.
func (w *MarkdownWriter) writeStatusAlert(md *markdown.Markdown, cov *Coverage) {
	awaiting := 0
	for _, d := range cov.Domains {
		if crawler.ParseState(d.Phase) == crawler.StateAwaitingTrigger {
			awaiting++
		}
	}

	switch {
	case len(cov.Domains) == 0:
		md.Note("Run `lexcrawl crawl` to start collecting pages.")
	case awaiting > 0:
		md.Importantf(
			"%d domain(s) are parked awaiting a phase-two trigger. Run `lexcrawl trigger` to continue.",
			awaiting,
		)
	case cov.Done():
		md.Tip("All domains crawled to completion.")
	default:
		md.Note("Some domains have unfinished crawls; re-run `lexcrawl crawl` to resume.")
	}
	md.PlainText("")
}
