// Package urlutil canonicalizes URLs into the comparison keys that all
// deduplication in lexcrawl is based on. Two URL strings that refer to
// the same resource must normalize to the same key; everything else in
// the crawler (visited sets, checkpoints, the page store) stores keys,
// never raw URLs.
package urlutil
