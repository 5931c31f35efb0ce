// Package report generates crawl coverage reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: GitHub-flavored Markdown for documentation
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
