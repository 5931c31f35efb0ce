package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
	"github.com/mindlex/lexcrawl/internal/monitor"
	"github.com/mindlex/lexcrawl/internal/urlutil"
)

// popWait is how long an idle worker sleeps before re-checking the
// frontier. The wait is bounded so the quiescence condition (frontier
// empty and nothing in flight) is re-evaluated promptly.
const popWait = 25 * time.Millisecond

// DispatcherConfig holds the per-domain crawl parameters. All fields
// are plain values so a config can be built from CLI flags and the
// site file without touching the dispatcher.
type DispatcherConfig struct {
	// Domain is the crawl boundary; child URLs outside it are dropped.
	Domain string

	// StartURL is where phase one begins.
	StartURL string

	// BFSDepthLimit is the deepest level phase one dispatches.
	BFSDepthLimit int

	// MaxDepth is the deepest level the whole crawl dispatches.
	MaxDepth int

	// BFSWorkers and DFSWorkers size the worker pool per phase.
	BFSWorkers int
	DFSWorkers int

	// Mode selects automatic or manual phase transition.
	Mode Mode

	// Delay is the per-worker politeness pause before each fetch.
	Delay time.Duration

	// FetchTimeout bounds each fetch-and-expand call.
	FetchTimeout time.Duration

	// CheckpointInterval saves progress every N processed tasks.
	// Zero disables interval saves; phase boundaries still save.
	CheckpointInterval int

	// ExcludeExtensions are URL path suffixes rejected at enqueue.
	ExcludeExtensions []string
}

// bfsCeiling returns the effective phase-one depth limit.
func (c DispatcherConfig) bfsCeiling() int {
	if c.BFSDepthLimit > c.MaxDepth {
		return c.MaxDepth
	}
	return c.BFSDepthLimit
}

// Dispatcher crawls one domain: it pulls tasks from the frontier with
// a bounded worker pool, marks each URL visited before fetching it,
// feeds discovered children back into the frontier, and checkpoints
// progress. Domains share nothing, so one Dispatcher per domain runs
// with no cross-domain synchronization.
type Dispatcher struct {
	cfg      DispatcherConfig
	frontier *Frontier
	visited  *VisitedSet
	phases   *PhaseController
	fetcher  Fetcher

	checkpoints CheckpointStore
	records     RecordSource
	recorder    Recorder
	speed       *monitor.Speed
	logger      *slog.Logger

	// mu guards the fields below together with frontier mutation, so
	// "frontier empty AND nothing in flight" is observed atomically.
	mu           sync.Mutex
	inflight     int
	seeds        map[string]string // phase-two seed URL -> parent URL
	sinceSave    int
	dispatched   int
	maxDepthSeen int

	// saveMu serializes checkpoint writes; workers may hit the save
	// interval simultaneously.
	saveMu     sync.Mutex
	reconciled bool
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRecorder sets the page store fetched metadata is persisted to.
func WithRecorder(r Recorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.recorder = r
	}
}

// WithRecordSource sets the external ledger consulted at startup to
// seed the visited set.
func WithRecordSource(src RecordSource) DispatcherOption {
	return func(d *Dispatcher) {
		d.records = src
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithSpeedMonitor attaches a throughput monitor fed by the workers.
func WithSpeedMonitor(s *monitor.Speed) DispatcherOption {
	return func(d *Dispatcher) {
		d.speed = s
	}
}

// NewDispatcher creates a Dispatcher for one domain. The fetcher and
// the checkpoint store are required; the recorder, record source,
// logger, and speed monitor are optional.
func NewDispatcher(cfg DispatcherConfig, fetcher Fetcher, checkpoints CheckpointStore, opts ...DispatcherOption) (*Dispatcher, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("dispatcher config: domain is required")
	}
	if cfg.BFSDepthLimit < 0 || cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("dispatcher config: depth limits must be non-negative")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("dispatcher config: fetcher is required")
	}
	if checkpoints == nil {
		return nil, fmt.Errorf("dispatcher config: checkpoint store is required")
	}
	if cfg.BFSWorkers < 1 {
		cfg.BFSWorkers = 1
	}
	if cfg.DFSWorkers < 1 {
		cfg.DFSWorkers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}

	d := &Dispatcher{
		cfg:         cfg,
		frontier:    NewFrontier(cfg.ExcludeExtensions),
		visited:     NewVisitedSet(),
		phases:      NewPhaseController(cfg.Mode, cfg.BFSDepthLimit, cfg.MaxDepth),
		fetcher:     fetcher,
		checkpoints: checkpoints,
		seeds:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// Domain returns the crawl boundary this dispatcher serves.
func (d *Dispatcher) Domain() string {
	return d.cfg.Domain
}

// State returns the current phase state.
func (d *Dispatcher) State() State {
	return d.phases.State()
}

// VisitedCount returns the size of the effective visited set.
func (d *Dispatcher) VisitedCount() int {
	return d.visited.Len()
}

// Dispatched returns how many tasks this run handed to the fetcher.
func (d *Dispatcher) Dispatched() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatched
}

// Run crawls the domain to completion or until the context is
// cancelled. It reconciles the visited set, runs phase one, and then
// either runs phase two (automatic mode), parks awaiting a manual
// trigger, or finishes outright in the degenerate configuration.
// A final checkpoint save is attempted on every exit path; that save
// is the sole guarantee of resumability.
func (d *Dispatcher) Run(ctx context.Context) error {
	state, err := d.reconcile(ctx)
	if err != nil {
		return err
	}

	switch state {
	case StateDone:
		d.logger.Info("crawl already complete", "domain", d.cfg.Domain)
		return nil
	case StateAwaitingTrigger:
		d.logger.Info("phase two awaiting manual trigger", "domain", d.cfg.Domain,
			"pending_seeds", len(d.seeds))
		return nil
	case StateDFS:
		// Resumed mid phase two: re-seed from the checkpointed seed
		// set; visited filtering drops everything already fetched.
		return d.runDFS(ctx, d.seedsSnapshot(), d.cfg.bfsCeiling()+1)
	}

	d.phases.Start()
	d.logger.Info("phase one starting", "domain", d.cfg.Domain,
		"mode", d.cfg.Mode.String(), "bfs_depth", d.cfg.bfsCeiling(), "max_depth", d.cfg.MaxDepth)

	d.frontier.SetPhase(PhaseBFS, d.cfg.bfsCeiling())
	startKey, err := urlutil.Normalize(d.cfg.StartURL)
	if err != nil {
		return fmt.Errorf("invalid start URL %q: %w", d.cfg.StartURL, err)
	}
	if !d.visited.Contains(startKey) {
		d.frontier.Push(Task{URL: startKey, Depth: 0, Phase: PhaseBFS})
	}

	if err := d.runPool(ctx, PhaseBFS, d.cfg.BFSWorkers); err != nil {
		d.saveCheckpoint()
		return err
	}

	next := d.phases.OnQuiescent()
	d.saveCheckpoint()

	switch next {
	case StateDone:
		d.logger.Info("crawl complete after phase one", "domain", d.cfg.Domain,
			"dispatched", d.Dispatched())
		return nil
	case StateAwaitingTrigger:
		d.logger.Info("phase one complete, awaiting manual trigger", "domain", d.cfg.Domain,
			"pending_seeds", len(d.seeds))
		return nil
	}

	return d.runDFS(ctx, d.seedsSnapshot(), d.cfg.bfsCeiling()+1)
}

// TriggerPhase2 is the manual-mode entry point for phase two. The
// input supplies the URL set phase one discovered and the depth it
// reached; seed tasks are created one level deeper. It fails with
// ErrNotAwaitingTrigger unless the domain is parked between phases.
func (d *Dispatcher) TriggerPhase2(ctx context.Context, input TransitionInput) error {
	if _, err := d.reconcile(ctx); err != nil {
		return err
	}
	if err := d.phases.Trigger(); err != nil {
		return err
	}

	// Supplied URLs join the seed set so interval saves keep them
	// durable until each one is dispatched.
	d.mu.Lock()
	for _, raw := range input.DiscoveredURLs {
		key, err := urlutil.Normalize(raw)
		if err != nil {
			continue
		}
		if _, dup := d.seeds[key]; !dup {
			d.seeds[key] = ""
		}
	}
	d.mu.Unlock()
	seeds := d.seedsSnapshot()

	d.logger.Info("phase two triggered", "domain", d.cfg.Domain,
		"seeds", len(seeds), "depth_reached", input.DepthReached)
	return d.runDFS(ctx, seeds, input.DepthReached+1)
}

// runDFS seeds the frontier for the depth-first phase and drains it.
func (d *Dispatcher) runDFS(ctx context.Context, seeds map[string]string, seedDepth int) error {
	d.phases.Restore(StateDFS)
	d.frontier.SetPhase(PhaseDFS, d.cfg.MaxDepth)

	urls := make([]string, 0, len(seeds))
	for url := range seeds {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	for _, url := range urls {
		if d.visited.Contains(url) {
			continue
		}
		if !urlutil.SameDomain(url, d.cfg.Domain) {
			continue
		}
		d.frontier.Push(Task{URL: url, ParentURL: seeds[url], Depth: seedDepth, Phase: PhaseDFS})
	}

	d.logger.Info("phase two starting", "domain", d.cfg.Domain,
		"seeds", d.frontier.Len(), "max_depth", d.cfg.MaxDepth)

	if err := d.runPool(ctx, PhaseDFS, d.cfg.DFSWorkers); err != nil {
		d.saveCheckpoint()
		return err
	}

	d.phases.OnQuiescent()
	d.clearSeeds()
	d.saveCheckpoint()
	d.logger.Info("crawl complete", "domain", d.cfg.Domain, "dispatched", d.Dispatched())
	return nil
}

// reconcile builds the effective visited set from the union of the
// checkpoint record and the external record source, and restores the
// checkpointed phase, depth and pending seeds. The checkpoint file and
// the external store can each be incomplete independently; only their
// union is a safe lower bound on "already processed". Reconciling
// twice is a no-op.
func (d *Dispatcher) reconcile(ctx context.Context) (State, error) {
	d.saveMu.Lock()
	already := d.reconciled
	d.reconciled = true
	d.saveMu.Unlock()
	if already {
		return d.phases.State(), nil
	}

	rec, err := d.checkpoints.Load(d.cfg.Domain)
	if err != nil {
		// Unreadable checkpoint is treated like a missing one: the
		// external source still seeds the visited set below.
		d.logger.Warn("failed to load checkpoint, starting from external records only",
			"domain", d.cfg.Domain, "error", err)
		rec = checkpoint.EmptyRecord(d.cfg.Domain)
	}
	fromCheckpoint := d.visited.Merge(rec.VisitedKeys)

	fromStore := 0
	if d.records != nil {
		keys, err := d.records.FetchKeys(ctx, d.cfg.Domain)
		if err != nil {
			d.logger.Warn("failed to fetch keys from record store",
				"domain", d.cfg.Domain, "error", err)
		} else {
			fromStore = d.visited.Merge(keys)
		}
	}

	d.mu.Lock()
	d.maxDepthSeen = rec.CurrentDepth
	for _, seed := range rec.PendingSeeds {
		d.seeds[seed] = ""
	}
	d.mu.Unlock()

	state := ParseState(rec.Phase)
	d.phases.Restore(state)

	d.logger.Info("visited set reconciled", "domain", d.cfg.Domain,
		"from_checkpoint", fromCheckpoint, "from_record_store", fromStore,
		"effective", d.visited.Len(), "phase", state.String())
	return state, nil
}

// runPool drains the frontier with a bounded pool of workers, one
// errgroup per phase.
func (d *Dispatcher) runPool(ctx context.Context, phase Phase, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return d.worker(ctx, phase)
		})
	}
	return g.Wait()
}

// worker is the dispatch loop of one pool member: pop, dedup, throttle,
// fetch, expand, repeat until the phase is quiescent or the context is
// cancelled.
func (d *Dispatcher) worker(ctx context.Context, phase Phase) error {
	var limiter *rate.Limiter
	if d.cfg.Delay > 0 {
		// Each worker throttles itself; the delay never blocks the
		// rest of the pool. The initial token is drained so the delay
		// applies to the first fetch too.
		limiter = rate.NewLimiter(rate.Every(d.cfg.Delay), 1)
		limiter.Allow()
	}

	for {
		task, ok := d.next(ctx)
		if !ok {
			return ctx.Err()
		}
		d.process(ctx, limiter, task, phase)
	}
}

// next claims the next task, incrementing the in-flight count under
// the same lock that observes the frontier, so quiescence (empty
// frontier, zero in flight) is decided atomically. When the frontier
// is empty but work is in flight, the wait is bounded and re-checked:
// an in-flight task may be about to push children.
func (d *Dispatcher) next(ctx context.Context) (Task, bool) {
	for {
		// A stop request wins over queued work: once the context is
		// cancelled no further task may be claimed, or a shutdown
		// would burn through the pending frontier.
		select {
		case <-ctx.Done():
			return Task{}, false
		default:
		}

		d.mu.Lock()
		if task, ok := d.frontier.Pop(); ok {
			d.inflight++
			d.mu.Unlock()
			return task, true
		}
		if d.inflight == 0 {
			d.mu.Unlock()
			return Task{}, false
		}
		d.mu.Unlock()

		select {
		case <-ctx.Done():
			return Task{}, false
		case <-time.After(popWait):
		}
	}
}

// process handles one claimed task: the visited check-and-mark, the
// politeness delay, the fetch, recording, and child expansion. Nothing
// in here may end the worker loop; every failure is logged and the
// task completed.
func (d *Dispatcher) process(ctx context.Context, limiter *rate.Limiter, task Task, phase Phase) {
	// Cancellation observed before the key is claimed: release the
	// task unmarked so a later run can still fetch it.
	if ctx.Err() != nil {
		d.completeTask(task, nil, false)
		return
	}

	// Mark before fetch: once a key is claimed here, no other worker
	// and no future run will fetch it, even if this fetch fails.
	if !d.visited.MarkIfNew(task.URL) {
		d.completeTask(task, nil, false)
		return
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			// The fetch was never attempted; the key must not stay
			// claimed across the restart.
			d.visited.Unmark(task.URL)
			d.completeTask(task, nil, false)
			return
		}
	}

	d.logger.Debug("crawling", "domain", d.cfg.Domain, "phase", phase.String(),
		"depth", task.Depth, "url", task.URL)

	fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.FetchTimeout)
	started := time.Now()
	result, err := d.fetcher.Fetch(fetchCtx, task.URL)
	cancel()
	elapsed := time.Since(started)

	if d.speed != nil {
		d.speed.Record(err == nil, elapsed)
	}

	if err != nil {
		// A fetch that died because the run is shutting down was
		// never really attempted; give the key back.
		if ctx.Err() != nil {
			d.visited.Unmark(task.URL)
			d.completeTask(task, nil, false)
			return
		}

		kind := ErrKindOther
		var fe *FetchError
		if errors.As(err, &fe) {
			kind = fe.Kind
		}
		// Transient failures are not retried within this run; the key
		// stays visited, trading a small miss rate for the
		// at-most-once dispatch guarantee.
		d.logger.Warn("fetch failed", "domain", d.cfg.Domain, "url", task.URL,
			"depth", task.Depth, "kind", kind.String(), "error", err)
		d.completeTask(task, nil, true)
		return
	}

	if d.recorder != nil {
		page := Page{
			URL:        task.URL,
			ParentURL:  task.ParentURL,
			Domain:     d.cfg.Domain,
			Title:      result.Title,
			Breadcrumb: result.Breadcrumb,
			StatusCode: result.StatusCode,
			Depth:      task.Depth,
		}
		if err := d.recorder.RecordPage(ctx, page); err != nil {
			d.logger.Warn("failed to record page", "domain", d.cfg.Domain,
				"url", task.URL, "error", err)
		}
	}

	d.completeTask(task, d.childTasks(task, phase, result.ChildURLs), true)
}

// childTasks normalizes and filters discovered URLs into enqueueable
// tasks at the parent's depth plus one. Invalid URLs, other domains,
// excluded extensions, URLs beyond the overall depth limit, and URLs
// already visited at this point are dropped.
func (d *Dispatcher) childTasks(parent Task, phase Phase, rawURLs []string) []Task {
	if parent.Depth+1 > d.cfg.MaxDepth {
		return nil
	}

	children := make([]Task, 0, len(rawURLs))
	seen := make(map[string]struct{}, len(rawURLs))
	for _, raw := range rawURLs {
		key, err := urlutil.Normalize(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if !urlutil.SameDomain(key, d.cfg.Domain) {
			continue
		}
		if urlutil.HasExcludedExtension(key, d.cfg.ExcludeExtensions) {
			continue
		}
		if d.visited.Contains(key) {
			continue
		}
		children = append(children, Task{
			URL:       key,
			ParentURL: parent.URL,
			Depth:     parent.Depth + 1,
			Phase:     phase,
		})
	}
	return children
}

// completeTask publishes a finished task's children and releases its
// in-flight slot in one critical section. Children beyond the phase-one
// ceiling are not enqueued; they become the phase-two seed set.
func (d *Dispatcher) completeTask(task Task, children []Task, processed bool) {
	shouldSave := false

	d.mu.Lock()
	for _, child := range children {
		if child.Phase == PhaseBFS && child.Depth > d.cfg.bfsCeiling() {
			if child.Depth <= d.cfg.MaxDepth {
				if _, dup := d.seeds[child.URL]; !dup {
					d.seeds[child.URL] = child.ParentURL
				}
			}
			continue
		}
		d.frontier.Push(child)
	}
	if processed {
		d.dispatched++
		d.sinceSave++
		if task.Depth > d.maxDepthSeen {
			d.maxDepthSeen = task.Depth
		}
		if d.cfg.CheckpointInterval > 0 && d.sinceSave >= d.cfg.CheckpointInterval {
			d.sinceSave = 0
			shouldSave = true
		}
	}
	d.inflight--
	d.mu.Unlock()

	if shouldSave {
		d.saveCheckpoint()
	}
}

// seedsSnapshot returns a copy of the collected phase-two seed set.
// The set itself stays in place so interval saves during phase two
// keep persisting the seeds that have not been dispatched yet.
func (d *Dispatcher) seedsSnapshot() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	seeds := make(map[string]string, len(d.seeds))
	for url, parent := range d.seeds {
		seeds[url] = parent
	}
	return seeds
}

// clearSeeds empties the seed set, once every seed has been dispatched.
func (d *Dispatcher) clearSeeds() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seeds = make(map[string]string)
}

// saveCheckpoint snapshots the domain's progress. Writes are
// serialized; a failed save is logged and the crawl continues on
// in-memory state until a later save succeeds.
func (d *Dispatcher) saveCheckpoint() {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	// Seeds already fetched are filtered out: the persisted set is
	// exactly the phase-two work still outstanding.
	d.mu.Lock()
	depth := d.maxDepthSeen
	seeds := make([]string, 0, len(d.seeds))
	for seed := range d.seeds {
		if !d.visited.Contains(seed) {
			seeds = append(seeds, seed)
		}
	}
	d.mu.Unlock()
	sort.Strings(seeds)

	rec := checkpoint.Record{
		Domain:       d.cfg.Domain,
		VisitedKeys:  d.visited.Keys(),
		CurrentDepth: depth,
		Phase:        d.phases.State().String(),
		PendingSeeds: seeds,
		SavedAt:      time.Now().UTC(),
	}
	if err := d.checkpoints.Save(rec); err != nil {
		d.logger.Error("failed to save checkpoint", "domain", d.cfg.Domain, "error", err)
	}
}
