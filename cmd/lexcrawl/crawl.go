package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/config"
	"github.com/mindlex/lexcrawl/internal/crawler"
	"github.com/mindlex/lexcrawl/internal/database"
	"github.com/mindlex/lexcrawl/internal/fetch"
	"github.com/mindlex/lexcrawl/internal/log"
	"github.com/mindlex/lexcrawl/internal/monitor"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [site...]",
		Short: "Crawl configured legal information portals",
		Long: `Crawl runs the two-phase crawl for every configured site, or only
for the sites named as arguments.

Phase one explores each portal breadth-first down to the configured
BFS depth limit, mapping its section structure. Phase two walks the
discovered sections depth-first down to the maximum depth. With
--manual, each domain parks after phase one until "lexcrawl trigger"
releases it.

Progress is checkpointed per domain; re-running crawl resumes where
the previous run stopped without re-fetching recorded pages.

Examples:
  # Crawl all configured sites
  lexcrawl crawl

  # Crawl specific sites only
  lexcrawl crawl eur-lex curia

  # Map section structures now, descend later
  lexcrawl crawl --manual

Configuration file (lexcrawl.yml) example:
  sites:
    eur-lex:
      domain: eur-lex.europa.eu
      startUrl: https://eur-lex.europa.eu/homepage.html
      cookie: "consent=yes"
    curia:
      domain: curia.europa.eu
      startUrl: https://curia.europa.eu/juris
      maxDepth: 6`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)
	return cmd
}

// addCrawlFlags registers the flags shared by crawl and trigger.
func addCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: lexcrawl.yml in current or XDG config directory)")
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum crawl depth")
	cmd.Flags().Int("bfs-depth", config.DefaultBFSDepthLimit,
		"Deepest level of the breadth-first phase")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Phase-one worker pool size per domain")
	cmd.Flags().Int("phase2-workers", config.DefaultPhase2Workers,
		"Phase-two worker pool size per domain")
	cmd.Flags().Int("domains", config.DefaultDomainConcurrency,
		"How many domains crawl concurrently")
	cmd.Flags().BoolP("manual", "m", false,
		"Park each domain after phase one until an explicit trigger")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Per-worker pause between requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Timeout for each page fetch")
	cmd.Flags().Int("checkpoint-interval", config.DefaultCheckpointInterval,
		"Save progress every N processed pages (0 disables interval saves)")
	cmd.Flags().String("db-dir", "",
		"Directory for the page database (default: XDG data directory)")
	cmd.Flags().String("checkpoint-dir", "",
		"Directory for checkpoint files (default: XDG state directory)")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(os.Stderr, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	sites, err := selectSites(cfg, args)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	store, err := checkpoint.NewStore(cfg.CheckpointDir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	speed := monitor.NewSpeed()
	var dispatchers []*crawler.Dispatcher
	for _, site := range sites {
		d, err := buildDispatcher(cfg, site, db, store, logger, speed)
		if err != nil {
			return err
		}
		dispatchers = append(dispatchers, d)
	}

	fmt.Printf("Crawling %d site(s)...\n", len(dispatchers))
	startTime := time.Now()

	fleet := crawler.NewFleet(dispatchers, cfg.DomainConcurrency, logger)
	if err := fleet.Run(ctx); err != nil {
		return err
	}

	printCrawlSummary(dispatchers, fleet, speed, time.Since(startTime))
	return nil
}

// printCrawlSummary reports per-domain outcomes and overall throughput.
func printCrawlSummary(dispatchers []*crawler.Dispatcher, fleet *crawler.Fleet, speed *monitor.Speed, elapsed time.Duration) {
	awaiting := 0
	for _, d := range dispatchers {
		fmt.Printf("  %-30s %-18s %d pages dispatched\n",
			d.Domain(), d.State().String(), d.Dispatched())
		if d.State() == crawler.StateAwaitingTrigger {
			awaiting++
		}
	}

	stats := speed.Snapshot(time.Hour)
	fmt.Printf("\nFinished in %s: %d fetched, %d failed (%.0f%% success)\n",
		elapsed.Round(time.Millisecond),
		stats.Succeeded, stats.Failed, stats.SuccessRate)

	if failed := fleet.FailedDomains(); len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "Domains with errors: %v\n", failed)
	}
	if awaiting > 0 {
		fmt.Printf("\n%d domain(s) are parked awaiting phase two. Run \"lexcrawl trigger\" to continue.\n", awaiting)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.MaxDepth, err = cmd.Flags().GetInt("depth")
	if err != nil {
		return nil, err
	}
	cfg.BFSDepthLimit, err = cmd.Flags().GetInt("bfs-depth")
	if err != nil {
		return nil, err
	}
	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}
	cfg.Phase2Workers, err = cmd.Flags().GetInt("phase2-workers")
	if err != nil {
		return nil, err
	}
	cfg.DomainConcurrency, err = cmd.Flags().GetInt("domains")
	if err != nil {
		return nil, err
	}
	cfg.Manual, err = cmd.Flags().GetBool("manual")
	if err != nil {
		return nil, err
	}
	cfg.CrawlDelay, err = cmd.Flags().GetDuration("delay")
	if err != nil {
		return nil, err
	}
	cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}
	cfg.CheckpointInterval, err = cmd.Flags().GetInt("checkpoint-interval")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	if dbDir, err := cmd.Flags().GetString("db-dir"); err == nil && dbDir != "" {
		cfg.DBDir = dbDir
	}
	if cpDir, err := cmd.Flags().GetString("checkpoint-dir"); err == nil && cpDir != "" {
		cfg.CheckpointDir = cpDir
	}

	// Load site configurations. If the user explicitly specified a
	// config file path, error if not found; otherwise a missing file
	// just means no sites.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.Sites, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := cfg.Sites.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	} else {
		cfg.Sites = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	return cfg, nil
}

// selectSites resolves the positional arguments to site configurations.
// No arguments means every configured site, sorted by name for
// deterministic output.
func selectSites(cfg *config.Config, args []string) ([]config.SiteConfig, error) {
	names := args
	if len(names) == 0 {
		names = cfg.Sites.SiteNames()
		sort.Strings(names)
	}
	if len(names) == 0 {
		return nil, config.ErrNoSites
	}

	sites := make([]config.SiteConfig, 0, len(names))
	for _, name := range names {
		site, ok := cfg.Sites.GetSiteConfig(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", config.ErrUnknownSite, name)
		}
		sites = append(sites, site)
	}
	return sites, nil
}

// buildDispatcher assembles the per-domain crawl stack: an HTTP client
// with the site's cookie and headers, the shared page database and
// checkpoint store, and the dispatcher configuration merged from the
// global config and the site's overrides.
func buildDispatcher(cfg *config.Config, site config.SiteConfig, db *database.PageDB, store *checkpoint.Store, logger *slog.Logger, speed *monitor.Speed) (*crawler.Dispatcher, error) {
	clientOpts := []fetch.Option{
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
	}
	if site.Cookie != "" {
		clientOpts = append(clientOpts, fetch.WithCookie(site.Cookie))
	}
	if len(site.Headers) > 0 {
		clientOpts = append(clientOpts, fetch.WithHeaders(site.Headers))
	}
	client := fetch.NewClient(clientOpts...)

	maxDepth := cfg.MaxDepth
	if site.MaxDepth != 0 {
		maxDepth = site.MaxDepth
	}
	bfsDepthLimit := cfg.BFSDepthLimit
	if site.BFSDepthLimit != 0 {
		bfsDepthLimit = site.BFSDepthLimit
	}
	excludeExtensions := cfg.ExcludeExtensions
	if len(site.ExcludeExtensions) > 0 {
		excludeExtensions = site.ExcludeExtensions
	}
	mode := crawler.ModeAutomatic
	if cfg.Manual {
		mode = crawler.ModeManual
	}

	dcfg := crawler.DispatcherConfig{
		Domain:             site.Domain,
		StartURL:           site.StartURL,
		BFSDepthLimit:      bfsDepthLimit,
		MaxDepth:           maxDepth,
		BFSWorkers:         cfg.Workers,
		DFSWorkers:         cfg.Phase2Workers,
		Mode:               mode,
		Delay:              cfg.CrawlDelay,
		FetchTimeout:       cfg.FetchTimeout,
		CheckpointInterval: cfg.CheckpointInterval,
		ExcludeExtensions:  excludeExtensions,
	}

	return crawler.NewDispatcher(dcfg, client, store,
		crawler.WithRecorder(db),
		crawler.WithRecordSource(db),
		crawler.WithLogger(logger),
		crawler.WithSpeedMonitor(speed),
	)
}
