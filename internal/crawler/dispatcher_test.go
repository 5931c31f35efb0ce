package crawler

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mindlex/lexcrawl/internal/checkpoint"
)

// stubFetcher serves a canned link graph and records every call.
type stubFetcher struct {
	mu    sync.Mutex
	links map[string][]string
	fail  map[string]bool
	calls map[string]int
	order []string
}

func newStubFetcher(links map[string][]string) *stubFetcher {
	return &stubFetcher{
		links: links,
		fail:  make(map[string]bool),
		calls: make(map[string]int),
	}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (*FetchResult, error) {
	f.mu.Lock()
	f.calls[url]++
	f.order = append(f.order, url)
	failed := f.fail[url]
	children := f.links[url]
	f.mu.Unlock()

	if failed {
		return nil, &FetchError{Kind: ErrKindNetwork, URL: url, Err: context.DeadlineExceeded}
	}
	return &FetchResult{
		URL:        url,
		StatusCode: 200,
		Title:      "page " + url,
		ChildURLs:  children,
	}, nil
}

func (f *stubFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *stubFetcher) fetchOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.order)
}

// memCheckpoints is an in-memory CheckpointStore.
type memCheckpoints struct {
	mu    sync.Mutex
	recs  map[string]checkpoint.Record
	saves int
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{recs: make(map[string]checkpoint.Record)}
}

func (m *memCheckpoints) Load(domain string) (checkpoint.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.recs[domain]; ok {
		return rec, nil
	}
	return checkpoint.EmptyRecord(domain), nil
}

func (m *memCheckpoints) Save(rec checkpoint.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Domain] = rec
	m.saves++
	return nil
}

func (m *memCheckpoints) record(domain string) checkpoint.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recs[domain]
}

func (m *memCheckpoints) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// stubRecords is an in-memory RecordSource.
type stubRecords struct {
	keys []string
}

func (s *stubRecords) FetchKeys(_ context.Context, _ string) ([]string, error) {
	return s.keys, nil
}

// stubRecorder collects recorded pages.
type stubRecorder struct {
	mu    sync.Mutex
	pages []Page
}

func (r *stubRecorder) RecordPage(_ context.Context, page Page) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, page)
	return nil
}

func (r *stubRecorder) recorded() []Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.pages)
}

// testGraph is a small site: the root links to /a and /b at depth 1,
// which link to /c and /d at depth 2.
func testGraph() map[string][]string {
	return map[string][]string{
		"https://example.com/":  {"https://example.com/a", "https://example.com/b"},
		"https://example.com/a": {"https://example.com/c"},
		"https://example.com/b": {"https://example.com/d"},
	}
}

func testConfig(mode Mode) DispatcherConfig {
	return DispatcherConfig{
		Domain:        "example.com",
		StartURL:      "https://example.com/",
		BFSDepthLimit: 1,
		MaxDepth:      2,
		BFSWorkers:    2,
		DFSWorkers:    2,
		Mode:          mode,
		FetchTimeout:  5 * time.Second,
	}
}

func TestDispatcherAutomaticTwoPhase(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())
	store := newMemCheckpoints()
	recorder := &stubRecorder{}

	d, err := NewDispatcher(testConfig(ModeAutomatic), fetcher, store, WithRecorder(recorder))
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := d.State(); got != StateDone {
		t.Errorf("final state = %v, want %v", got, StateDone)
	}
	if got := d.Dispatched(); got != 5 {
		t.Errorf("Dispatched() = %d, want 5 (3 breadth-first + 2 depth-first)", got)
	}
	if got := d.VisitedCount(); got != 5 {
		t.Errorf("VisitedCount() = %d, want 5", got)
	}
	if got := len(recorder.recorded()); got != 5 {
		t.Errorf("recorded %d pages, want 5", got)
	}

	// Phase one fully drains before phase two starts: every depth-1
	// fetch precedes every depth-2 fetch.
	order := fetcher.fetchOrder()
	lastBFS, firstDFS := -1, len(order)
	for i, url := range order {
		switch url {
		case "https://example.com/c", "https://example.com/d":
			if i < firstDFS {
				firstDFS = i
			}
		default:
			if i > lastBFS {
				lastBFS = i
			}
		}
	}
	if lastBFS > firstDFS {
		t.Errorf("phase ordering violated: fetch order %v", order)
	}

	if got := store.record("example.com").Phase; got != StateDone.String() {
		t.Errorf("checkpointed phase = %q, want %q", got, StateDone.String())
	}
}

func TestDispatcherAtMostOnceDispatch(t *testing.T) {
	t.Parallel()

	// Every page cross-links every other; dedup must hold under a
	// concurrent pool.
	links := map[string][]string{
		"https://example.com/":  {"https://example.com/a", "https://example.com/b", "https://example.com/a"},
		"https://example.com/a": {"https://example.com/b", "https://example.com/", "https://example.com/a#section"},
		"https://example.com/b": {"https://example.com/a", "https://example.com/"},
	}
	fetcher := newStubFetcher(links)

	cfg := testConfig(ModeAutomatic)
	cfg.BFSDepthLimit = 2
	cfg.BFSWorkers = 4

	d, err := NewDispatcher(cfg, fetcher, newMemCheckpoints())
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	for url := range links {
		if got := fetcher.callCount(url); got != 1 {
			t.Errorf("fetch count for %q = %d, want 1", url, got)
		}
	}
}

func TestDispatcherManualModeParks(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())
	store := newMemCheckpoints()

	d, err := NewDispatcher(testConfig(ModeManual), fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := d.State(); got != StateAwaitingTrigger {
		t.Fatalf("state after phase one = %v, want %v", got, StateAwaitingTrigger)
	}
	if got := d.Dispatched(); got != 3 {
		t.Errorf("Dispatched() = %d, want 3", got)
	}
	if got := fetcher.callCount("https://example.com/c"); got != 0 {
		t.Errorf("depth-2 URL fetched %d times while parked, want 0", got)
	}

	rec := store.record("example.com")
	if rec.Phase != StateAwaitingTrigger.String() {
		t.Errorf("checkpointed phase = %q, want %q", rec.Phase, StateAwaitingTrigger.String())
	}
	wantSeeds := []string{"https://example.com/c", "https://example.com/d"}
	if !slices.Equal(rec.PendingSeeds, wantSeeds) {
		t.Errorf("checkpointed seeds = %v, want %v", rec.PendingSeeds, wantSeeds)
	}
}

func TestDispatcherManualTriggerAfterRestart(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())
	store := newMemCheckpoints()

	first, err := NewDispatcher(testConfig(ModeManual), fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := first.Run(context.Background()); err != nil {
		t.Fatalf("phase one Run() returned error: %v", err)
	}

	// A new process picks up the parked domain from its checkpoint.
	second, err := NewDispatcher(testConfig(ModeManual), fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	input := TransitionInput{
		DiscoveredURLs: store.record("example.com").PendingSeeds,
		DepthReached:   1,
	}
	if err := second.TriggerPhase2(context.Background(), input); err != nil {
		t.Fatalf("TriggerPhase2() returned error: %v", err)
	}

	if got := second.State(); got != StateDone {
		t.Errorf("final state = %v, want %v", got, StateDone)
	}
	for _, url := range []string{"https://example.com/", "https://example.com/a", "https://example.com/b"} {
		if got := fetcher.callCount(url); got != 1 {
			t.Errorf("phase-one URL %q fetched %d times in total, want 1", url, got)
		}
	}
	for _, url := range []string{"https://example.com/c", "https://example.com/d"} {
		if got := fetcher.callCount(url); got != 1 {
			t.Errorf("seed URL %q fetched %d times, want 1", url, got)
		}
	}
}

func TestDispatcherTriggerWithoutParkFails(t *testing.T) {
	t.Parallel()

	d, err := NewDispatcher(testConfig(ModeAutomatic), newStubFetcher(testGraph()), newMemCheckpoints())
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}

	err = d.TriggerPhase2(context.Background(), TransitionInput{DepthReached: 1})
	if err == nil {
		t.Fatal("TriggerPhase2() on a fresh domain succeeded, want error")
	}
}

func TestDispatcherDegenerateSinglePhase(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())

	// Phase-one limit covers the whole depth range; phase two has no
	// territory even in manual mode.
	cfg := testConfig(ModeManual)
	cfg.BFSDepthLimit = 2

	d, err := NewDispatcher(cfg, fetcher, newMemCheckpoints())
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := d.State(); got != StateDone {
		t.Errorf("final state = %v, want %v", got, StateDone)
	}
	if got := d.Dispatched(); got != 5 {
		t.Errorf("Dispatched() = %d, want 5 (all pages in one phase)", got)
	}
}

func TestDispatcherFailedFetchNotRetried(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())
	fetcher.fail["https://example.com/a"] = true
	recorder := &stubRecorder{}

	cfg := testConfig(ModeAutomatic)
	d, err := NewDispatcher(cfg, fetcher, newMemCheckpoints(), WithRecorder(recorder))
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := fetcher.callCount("https://example.com/a"); got != 1 {
		t.Errorf("failed URL fetched %d times, want exactly 1", got)
	}
	// The failed page's subtree is not discovered this run.
	if got := fetcher.callCount("https://example.com/c"); got != 0 {
		t.Errorf("child of failed URL fetched %d times, want 0", got)
	}
	for _, page := range recorder.recorded() {
		if page.URL == "https://example.com/a" {
			t.Error("failed fetch was recorded as a page")
		}
	}
	if got := d.State(); got != StateDone {
		t.Errorf("final state = %v, want %v", got, StateDone)
	}
}

func TestDispatcherReconciliationSkipsKnownKeys(t *testing.T) {
	t.Parallel()

	t.Run("known child not refetched", func(t *testing.T) {
		t.Parallel()

		fetcher := newStubFetcher(testGraph())
		records := &stubRecords{keys: []string{"https://example.com/a"}}

		d, err := NewDispatcher(testConfig(ModeAutomatic), fetcher, newMemCheckpoints(),
			WithRecordSource(records))
		if err != nil {
			t.Fatalf("NewDispatcher() returned error: %v", err)
		}
		if err := d.Run(context.Background()); err != nil {
			t.Fatalf("Run() returned error: %v", err)
		}

		if got := fetcher.callCount("https://example.com/a"); got != 0 {
			t.Errorf("already-recorded URL fetched %d times, want 0", got)
		}
		if got := fetcher.callCount("https://example.com/b"); got != 1 {
			t.Errorf("unrecorded URL fetched %d times, want 1", got)
		}
	})

	t.Run("known start URL ends run immediately", func(t *testing.T) {
		t.Parallel()

		fetcher := newStubFetcher(testGraph())
		records := &stubRecords{keys: []string{"https://example.com/"}}

		d, err := NewDispatcher(testConfig(ModeAutomatic), fetcher, newMemCheckpoints(),
			WithRecordSource(records))
		if err != nil {
			t.Fatalf("NewDispatcher() returned error: %v", err)
		}
		if err := d.Run(context.Background()); err != nil {
			t.Fatalf("Run() returned error: %v", err)
		}

		if got := d.Dispatched(); got != 0 {
			t.Errorf("Dispatched() = %d, want 0", got)
		}
		if got := d.State(); got != StateDone {
			t.Errorf("final state = %v, want %v", got, StateDone)
		}
	})
}

func TestDispatcherResumeMidDFS(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())
	store := newMemCheckpoints()
	if err := store.Save(checkpoint.Record{
		Domain: "example.com",
		VisitedKeys: []string{
			"https://example.com/",
			"https://example.com/a",
			"https://example.com/b",
			"https://example.com/c",
		},
		CurrentDepth: 2,
		Phase:        StateDFS.String(),
		PendingSeeds: []string{"https://example.com/c", "https://example.com/d"},
	}); err != nil {
		t.Fatalf("seeding checkpoint store: %v", err)
	}

	d, err := NewDispatcher(testConfig(ModeAutomatic), fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	// Only the one seed missing from the visited set is fetched.
	if got := d.Dispatched(); got != 1 {
		t.Errorf("Dispatched() = %d, want 1", got)
	}
	if got := fetcher.callCount("https://example.com/d"); got != 1 {
		t.Errorf("pending seed fetched %d times, want 1", got)
	}
	if got := fetcher.callCount("https://example.com/c"); got != 0 {
		t.Errorf("visited seed fetched %d times, want 0", got)
	}
	if got := d.State(); got != StateDone {
		t.Errorf("final state = %v, want %v", got, StateDone)
	}
}

func TestDispatcherResumeDoneIsNoop(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())
	store := newMemCheckpoints()
	if err := store.Save(checkpoint.Record{
		Domain: "example.com",
		Phase:  StateDone.String(),
	}); err != nil {
		t.Fatalf("seeding checkpoint store: %v", err)
	}

	d, err := NewDispatcher(testConfig(ModeAutomatic), fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if got := d.Dispatched(); got != 0 {
		t.Errorf("Dispatched() = %d, want 0 for a completed domain", got)
	}
}

func TestDispatcherCheckpointInterval(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(testGraph())
	store := newMemCheckpoints()

	cfg := testConfig(ModeAutomatic)
	cfg.CheckpointInterval = 1

	d, err := NewDispatcher(cfg, fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	// Five processed tasks plus the phase-boundary saves.
	if got := store.saveCount(); got < 5 {
		t.Errorf("saveCount() = %d, want at least 5", got)
	}
	rec := store.record("example.com")
	if got := len(rec.VisitedKeys); got != 5 {
		t.Errorf("final checkpoint has %d visited keys, want 5", got)
	}
	if rec.CurrentDepth != 2 {
		t.Errorf("final checkpoint depth = %d, want 2", rec.CurrentDepth)
	}
}

func TestDispatcherDepthLimit(t *testing.T) {
	t.Parallel()

	links := map[string][]string{
		"https://example.com/":  {"https://example.com/a"},
		"https://example.com/a": {"https://example.com/b"},
		"https://example.com/b": {"https://example.com/c"},
		"https://example.com/c": {"https://example.com/d"},
	}
	fetcher := newStubFetcher(links)

	cfg := testConfig(ModeAutomatic)
	cfg.BFSDepthLimit = 1
	cfg.MaxDepth = 2

	d, err := NewDispatcher(cfg, fetcher, newMemCheckpoints())
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := fetcher.callCount("https://example.com/b"); got != 1 {
		t.Errorf("depth-2 URL fetched %d times, want 1", got)
	}
	if got := fetcher.callCount("https://example.com/c"); got != 0 {
		t.Errorf("depth-3 URL fetched %d times, want 0 (beyond max depth)", got)
	}
}

func TestDispatcherIgnoresForeignAndExcludedURLs(t *testing.T) {
	t.Parallel()

	links := map[string][]string{
		"https://example.com/": {
			"https://example.com/a",
			"https://other.org/page",
			"https://example.com/file.pdf",
			"mailto:someone@example.com",
			"not a url",
		},
	}
	fetcher := newStubFetcher(links)

	cfg := testConfig(ModeAutomatic)
	cfg.BFSDepthLimit = 2
	cfg.ExcludeExtensions = []string{".pdf"}

	d, err := NewDispatcher(cfg, fetcher, newMemCheckpoints())
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := d.Dispatched(); got != 2 {
		t.Errorf("Dispatched() = %d, want 2 (root and /a only)", got)
	}
	if got := fetcher.callCount("https://other.org/page"); got != 0 {
		t.Errorf("foreign URL fetched %d times, want 0", got)
	}
	if got := fetcher.callCount("https://example.com/file.pdf"); got != 0 {
		t.Errorf("excluded URL fetched %d times, want 0", got)
	}
}

func TestNewDispatcherValidation(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(nil)
	store := newMemCheckpoints()

	tests := []struct {
		name    string
		modify  func(cfg *DispatcherConfig)
		noFetch bool
		noStore bool
	}{
		{name: "missing domain", modify: func(cfg *DispatcherConfig) { cfg.Domain = "" }},
		{name: "negative depth", modify: func(cfg *DispatcherConfig) { cfg.MaxDepth = -1 }},
		{name: "nil fetcher", modify: func(cfg *DispatcherConfig) {}, noFetch: true},
		{name: "nil checkpoint store", modify: func(cfg *DispatcherConfig) {}, noStore: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := testConfig(ModeAutomatic)
			tt.modify(&cfg)

			var f Fetcher = fetcher
			if tt.noFetch {
				f = nil
			}
			var s CheckpointStore = store
			if tt.noStore {
				s = nil
			}

			if _, err := NewDispatcher(cfg, f, s); err == nil {
				t.Error("NewDispatcher() succeeded, want error")
			}
		})
	}
}

func TestFleetRunsAllDomains(t *testing.T) {
	t.Parallel()

	store := newMemCheckpoints()
	var dispatchers []*Dispatcher
	var fetchers []*stubFetcher
	for _, domain := range []string{"alpha.example.com", "beta.example.com"} {
		links := map[string][]string{
			"https://" + domain + "/": {"https://" + domain + "/a"},
		}
		fetcher := newStubFetcher(links)
		fetchers = append(fetchers, fetcher)

		cfg := testConfig(ModeAutomatic)
		cfg.Domain = domain
		cfg.StartURL = "https://" + domain + "/"
		cfg.BFSDepthLimit = 2

		d, err := NewDispatcher(cfg, fetcher, store)
		if err != nil {
			t.Fatalf("NewDispatcher(%s) returned error: %v", domain, err)
		}
		dispatchers = append(dispatchers, d)
	}

	fleet := NewFleet(dispatchers, 1, nil)
	if err := fleet.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	for i, d := range dispatchers {
		if got := d.State(); got != StateDone {
			t.Errorf("domain %s final state = %v, want %v", d.Domain(), got, StateDone)
		}
		if got := d.Dispatched(); got != 2 {
			t.Errorf("domain %s dispatched %d, want 2", d.Domain(), got)
		}
		if got := fetchers[i].callCount("https://" + d.Domain() + "/a"); got != 1 {
			t.Errorf("domain %s child fetched %d times, want 1", d.Domain(), got)
		}
	}
	if failed := fleet.FailedDomains(); len(failed) != 0 {
		t.Errorf("FailedDomains() = %v, want none", failed)
	}
}

// cancelFetcher cancels the crawl after serving a fixed number of
// fetches, simulating a shutdown signal arriving mid-run.
type cancelFetcher struct {
	stub   *stubFetcher
	cancel context.CancelFunc

	mu    sync.Mutex
	after int
	n     int
}

func (f *cancelFetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	result, err := f.stub.Fetch(ctx, url)

	f.mu.Lock()
	f.n++
	if f.n == f.after {
		f.cancel()
	}
	f.mu.Unlock()

	return result, err
}

func TestDispatcherCancellationKeepsPendingURLsUnvisited(t *testing.T) {
	t.Parallel()

	graph := map[string][]string{
		"https://example.com/": {
			"https://example.com/a", "https://example.com/b",
			"https://example.com/c", "https://example.com/d",
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &cancelFetcher{stub: newStubFetcher(graph), cancel: cancel, after: 1}
	store := newMemCheckpoints()

	cfg := testConfig(ModeAutomatic)
	cfg.BFSDepthLimit = 2
	cfg.BFSWorkers = 1

	d, err := NewDispatcher(cfg, fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() returned %v, want context.Canceled", err)
	}

	// Only the root was fetched; the four queued children must not
	// have been dispatched after the stop request.
	if got := fetcher.stub.callCount("https://example.com/"); got != 1 {
		t.Errorf("root fetched %d times, want 1", got)
	}
	for _, child := range graph["https://example.com/"] {
		if got := fetcher.stub.callCount(child); got != 0 {
			t.Errorf("%s fetched %d times after cancellation, want 0", child, got)
		}
	}

	// The final checkpoint must not claim the unfetched children as
	// visited, or a restart would skip them forever.
	rec := store.record("example.com")
	if len(rec.VisitedKeys) != 1 || rec.VisitedKeys[0] != "https://example.com/" {
		t.Errorf("checkpointed visited keys = %v, want only the root", rec.VisitedKeys)
	}
}

func TestDispatcherMidDFSCancelPersistsRemainingSeeds(t *testing.T) {
	t.Parallel()

	graph := map[string][]string{
		"https://example.com/": {"https://example.com/a", "https://example.com/b"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Cancelled after the root and the first phase-two seed.
	fetcher := &cancelFetcher{stub: newStubFetcher(graph), cancel: cancel, after: 2}
	store := newMemCheckpoints()

	cfg := testConfig(ModeAutomatic)
	cfg.BFSDepthLimit = 0
	cfg.MaxDepth = 1
	cfg.BFSWorkers = 1
	cfg.DFSWorkers = 1
	cfg.CheckpointInterval = 1

	d, err := NewDispatcher(cfg, fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() returned %v, want context.Canceled", err)
	}

	// The interrupted phase-two record must still carry the seed that
	// was never dispatched.
	rec := store.record("example.com")
	if rec.Phase != "phase2_dfs" {
		t.Fatalf("checkpointed phase = %q, want %q", rec.Phase, "phase2_dfs")
	}
	if len(rec.PendingSeeds) != 1 || rec.PendingSeeds[0] != "https://example.com/a" {
		t.Fatalf("checkpointed pending seeds = %v, want the undispatched seed", rec.PendingSeeds)
	}

	// A fresh process resumes from the record and finishes exactly the
	// remaining seed.
	resumed := newStubFetcher(graph)
	d2, err := NewDispatcher(cfg, resumed, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}
	if err := d2.Run(context.Background()); err != nil {
		t.Fatalf("resumed Run() returned error: %v", err)
	}

	if got := resumed.callCount("https://example.com/a"); got != 1 {
		t.Errorf("remaining seed fetched %d times on resume, want 1", got)
	}
	if got := resumed.callCount("https://example.com/"); got != 0 {
		t.Errorf("root refetched %d times on resume, want 0", got)
	}
	if got := resumed.callCount("https://example.com/b"); got != 0 {
		t.Errorf("completed seed refetched %d times on resume, want 0", got)
	}
	if got := d2.State(); got != StateDone {
		t.Errorf("resumed final state = %v, want %v", got, StateDone)
	}
	if rec := store.record("example.com"); len(rec.PendingSeeds) != 0 {
		t.Errorf("final pending seeds = %v, want none", rec.PendingSeeds)
	}
}

func TestDispatcherDelayAppliesToFirstFetch(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string][]string{"https://example.com/": nil})
	store := newMemCheckpoints()

	cfg := testConfig(ModeAutomatic)
	cfg.MaxDepth = 0
	cfg.BFSDepthLimit = 0
	cfg.BFSWorkers = 1
	cfg.Delay = 50 * time.Millisecond

	d, err := NewDispatcher(cfg, fetcher, store)
	if err != nil {
		t.Fatalf("NewDispatcher() returned error: %v", err)
	}

	start := time.Now()
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}

	if got := fetcher.callCount("https://example.com/"); got != 1 {
		t.Fatalf("root fetched %d times, want 1", got)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("first fetch after %v, want the politeness delay applied", elapsed)
	}
}
