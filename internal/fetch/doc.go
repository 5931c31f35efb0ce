// Package fetch retrieves pages over HTTP and extracts the metadata
// the crawl records: the page title, the navigation breadcrumb, and
// the outgoing links that feed the frontier.
package fetch
