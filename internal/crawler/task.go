package crawler

// Phase identifies the traversal discipline a task was created under.
// A task's phase is fixed at creation and never changed after enqueue;
// a phase transition affects only tasks created afterwards.
type Phase int

const (
	// PhaseBFS is the breadth-first discovery phase: the frontier pops
	// oldest-first, producing level-order visitation.
	PhaseBFS Phase = iota

	// PhaseDFS is the depth-first exploration phase: the frontier pops
	// newest-first, exploring the most recent branch before siblings.
	PhaseDFS
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseBFS:
		return "bfs"
	case PhaseDFS:
		return "dfs"
	default:
		return "unknown"
	}
}

// Task is one unit of crawl work: a normalized URL key to fetch and
// expand. Tasks are immutable once created. The frontier owns a task
// from push until pop; a worker owns it for the duration of the fetch,
// after which only its children live on.
type Task struct {
	// URL is the normalized key to fetch. Always the output of
	// urlutil.Normalize, never a raw URL string.
	URL string

	// ParentURL is the key of the page this URL was discovered on,
	// empty for the start URL.
	ParentURL string

	// Depth is the distance from the start URL. A child's depth is
	// always its parent's depth plus one.
	Depth int

	// Phase is the traversal phase the task was created under.
	Phase Phase
}
