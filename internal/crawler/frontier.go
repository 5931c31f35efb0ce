package crawler

import (
	"sync"

	"github.com/mindlex/lexcrawl/internal/urlutil"
)

// Frontier holds a domain's pending tasks in one ordered collection.
// The pop end is selected by the crawl phase: the breadth-first phase
// pops from the head (FIFO, level order) and the depth-first phase pops
// from the tail (LIFO, newest branch first). Push and Pop are safe for
// concurrent use by the whole worker pool.
type Frontier struct {
	mu         sync.Mutex
	tasks      []Task
	phase      Phase
	depthLimit int
	exclude    []string
}

// NewFrontier creates an empty frontier with the given excluded
// extensions. It starts in the breadth-first discipline with a zero
// depth ceiling; SetPhase must be called before pushing.
func NewFrontier(excludeExtensions []string) *Frontier {
	return &Frontier{
		phase:   PhaseBFS,
		exclude: excludeExtensions,
	}
}

// SetPhase switches the pop discipline and the depth ceiling applied
// at push time. Tasks already queued are not reordered or re-filtered;
// the phase of a queued task never changes.
func (f *Frontier) SetPhase(phase Phase, depthLimit int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = phase
	f.depthLimit = depthLimit
}

// Push enqueues a task. It reports false when the task is dropped by
// policy: its depth exceeds the active ceiling or its URL matches an
// excluded extension.
func (f *Frontier) Push(task Task) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if task.Depth > f.depthLimit {
		return false
	}
	if urlutil.HasExcludedExtension(task.URL, f.exclude) {
		return false
	}
	f.tasks = append(f.tasks, task)
	return true
}

// Pop removes and returns the next task per the current discipline.
// It reports false when the frontier is empty.
func (f *Frontier) Pop() (Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.tasks) == 0 {
		return Task{}, false
	}

	var task Task
	if f.phase == PhaseDFS {
		last := len(f.tasks) - 1
		task = f.tasks[last]
		f.tasks = f.tasks[:last]
	} else {
		task = f.tasks[0]
		f.tasks = f.tasks[1:]
	}
	return task, true
}

// Len returns the number of pending tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}
