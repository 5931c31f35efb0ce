// Package main provides the entry point for the lexcrawl CLI.
//
// Lexcrawl is a phase-aware crawler for legal information portals.
// It maps each configured portal breadth-first to a shallow depth,
// then walks the discovered sections depth-first, recording page
// metadata for coverage analysis.
//
// Usage:
//
//	lexcrawl crawl
//	lexcrawl crawl eur-lex curia
//	lexcrawl status
//
// See --help for all available options.
package main

// main is the entry point for lexcrawl.
func main() {
	Execute()
}
