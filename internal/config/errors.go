package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate()
// and provide specific information about what is wrong with the
// configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrInvalidDepth is returned when a depth limit is negative.
	// Depth 0 is valid and means "the start URL only".
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidWorkers is returned when a worker pool size is not positive.
	// A pool of zero workers would mean no crawling at all.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidDomainConcurrency is returned when the domain
	// concurrency limit is not positive.
	ErrInvalidDomainConcurrency = errors.New("invalid domain concurrency: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidFetchTimeout is returned when the fetch timeout is not
	// positive. A zero timeout would fail every request immediately.
	ErrInvalidFetchTimeout = errors.New("invalid fetch timeout: must be positive")

	// ErrInvalidCheckpointInterval is returned when the checkpoint
	// interval is negative. Use 0 to disable interval saves.
	ErrInvalidCheckpointInterval = errors.New("invalid checkpoint interval: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrNoSites is returned when a crawl is requested but the
	// configuration file defines no sites.
	ErrNoSites = errors.New("no sites configured: add sites to the configuration file or pass a URL")

	// ErrSiteMissingDomain is returned when a configured site has no domain.
	ErrSiteMissingDomain = errors.New("site configuration missing domain")

	// ErrSiteMissingStartURL is returned when a configured site has no start URL.
	ErrSiteMissingStartURL = errors.New("site configuration missing start URL")

	// ErrUnknownSite is returned when a named site is not in the
	// configuration file.
	ErrUnknownSite = errors.New("unknown site: not present in the configuration file")
)
