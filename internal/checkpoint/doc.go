// Package checkpoint persists per-domain crawl progress so an
// interrupted crawl resumes without re-fetching URLs. Each domain has
// one JSON record on disk holding the visited-key set, the depth
// reached, the crawl phase, and any pending phase-two seed URLs.
//
// Saves are atomic with respect to concurrent loads: records are
// written to a temporary file and renamed into place, so a crash
// mid-write leaves the previous valid record intact. A missing or
// unreadable record is a normal condition (no prior crawl), never an
// error.
package checkpoint
