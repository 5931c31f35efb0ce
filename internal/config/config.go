package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. These match the behavior the target
// portals tolerate well; individual sites can override most of them in
// the configuration file.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "lexcrawl"

	// DefaultMaxDepth is the deepest link level the crawl follows.
	// Depth 0 is the start URL itself.
	DefaultMaxDepth = 5

	// DefaultBFSDepthLimit is the deepest level of the breadth-first
	// phase. Levels beyond it belong to the depth-first phase.
	DefaultBFSDepthLimit = 1

	// DefaultWorkers is the phase-one worker pool size.
	DefaultWorkers = 5

	// DefaultPhase2Workers is the phase-two worker pool size.
	DefaultPhase2Workers = 5

	// DefaultDomainConcurrency is how many domains crawl at once.
	DefaultDomainConcurrency = 2

	// DefaultCrawlDelay is the per-worker pause between requests.
	// This is a politeness setting; public legal portals are usually
	// well-provisioned, so the default is small.
	DefaultCrawlDelay = 10 * time.Millisecond

	// DefaultFetchTimeout bounds each page fetch.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultCheckpointInterval saves progress every N processed pages.
	DefaultCheckpointInterval = 25

	// DefaultMaxBodySize limits the maximum response body size to read.
	// 5MB is sufficient for most HTML pages while preventing memory
	// exhaustion from unexpectedly large responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultUserAgent identifies lexcrawl in HTTP requests. A
	// descriptive User-Agent lets portal operators identify crawler
	// traffic in their logs.
	DefaultUserAgent = "lexcrawl/1.0 (+https://github.com/mindlex/lexcrawl)"
)

// DefaultExcludeExtensions are URL path suffixes never enqueued. The
// portals link heavily to document downloads that the metadata crawl
// has no use for.
var DefaultExcludeExtensions = []string{
	".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
	".zip", ".rar", ".tar", ".gz",
}

// Config holds all configuration options for lexcrawl.
// This struct is designed to be populated from CLI flags and the
// configuration file and passed through the application via dependency
// injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// MaxDepth is the maximum link depth to crawl. Depth 0 means only
	// fetch the start URL.
	MaxDepth int

	// BFSDepthLimit is the deepest level dispatched breadth-first.
	// When it reaches or exceeds MaxDepth, the whole crawl runs in a
	// single breadth-first phase.
	BFSDepthLimit int

	// Workers is the phase-one worker pool size per domain.
	Workers int

	// Phase2Workers is the phase-two worker pool size per domain.
	Phase2Workers int

	// DomainConcurrency is how many domains crawl concurrently.
	DomainConcurrency int

	// Manual parks each domain between phases until an explicit
	// trigger instead of transitioning automatically.
	Manual bool

	// CrawlDelay is the per-worker pause between HTTP requests.
	// Lower values may cause rate limiting or service disruption.
	CrawlDelay time.Duration

	// FetchTimeout is the deadline for each page fetch.
	FetchTimeout time.Duration

	// CheckpointInterval saves crawl progress every N processed pages.
	// Zero disables interval saves; phase boundaries still save.
	CheckpointInterval int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Responses larger than this are truncated to prevent memory
	// exhaustion. Set to 0 to use the default.
	MaxBodySize int64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only info and above are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// the tool searches the current directory and the XDG config
	// directory.
	ConfigFilePath string

	// Sites holds per-site configurations loaded from the config file.
	Sites *File

	// DBDir is the directory for the SQLite page database.
	// Defaults to the XDG data directory.
	DBDir string

	// CheckpointDir is the directory for per-domain checkpoint files.
	// Defaults to the XDG state directory.
	CheckpointDir string

	// ExcludeExtensions are URL path suffixes never enqueued.
	ExcludeExtensions []string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., depths, worker
// counts). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxDepth:           DefaultMaxDepth,
		BFSDepthLimit:      DefaultBFSDepthLimit,
		Workers:            DefaultWorkers,
		Phase2Workers:      DefaultPhase2Workers,
		DomainConcurrency:  DefaultDomainConcurrency,
		CrawlDelay:         DefaultCrawlDelay,
		FetchTimeout:       DefaultFetchTimeout,
		CheckpointInterval: DefaultCheckpointInterval,
		MaxBodySize:        DefaultMaxBodySize,
		UserAgent:          DefaultUserAgent,
		DBDir:              XDGDataDir(),
		CheckpointDir:      XDGStateDir(),
		ExcludeExtensions:  DefaultExcludeExtensions,
	}
}

// XDGDataDir returns the XDG data directory for lexcrawl.
// On Linux: ~/.local/share/lexcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for lexcrawl.
// On Linux: ~/.config/lexcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGStateDir returns the XDG state directory for lexcrawl. Checkpoint
// files live here: they are mutable run state, not user data.
// On Linux: ~/.local/state/lexcrawl
func XDGStateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.MaxDepth < 0 || c.BFSDepthLimit < 0 {
		return ErrInvalidDepth
	}
	if c.Workers <= 0 || c.Phase2Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.DomainConcurrency <= 0 {
		return ErrInvalidDomainConcurrency
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}
	if c.CheckpointInterval < 0 {
		return ErrInvalidCheckpointInterval
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
