// Package crawler implements the crawl scheduling core: the frontier,
// the visited set, the phase state machine, and the dispatcher that
// drives a bounded worker pool per domain.
//
// A crawl of one domain runs in two phases. Phase one walks the site
// breadth-first up to a configured depth, discovering the shallow
// structure quickly. Phase two explores the remainder depth-first down
// to the overall depth limit. The frontier is a single ordered
// collection whose pop end follows the phase: oldest-first in the
// breadth-first phase, newest-first in the depth-first phase.
//
// Deduplication is absolute: a normalized URL key is added to the
// visited set before the fetch is attempted, and the set is seeded at
// startup from the union of the checkpoint record and the external
// page store, so no URL is fetched twice within a run or across
// restarts.
//
// Fetching, parsing, and persistence are collaborators behind the
// Fetcher, Recorder, RecordSource and CheckpointStore interfaces; the
// package contains no HTTP or SQL code of its own.
package crawler
