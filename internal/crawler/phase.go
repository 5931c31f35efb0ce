package crawler

import (
	"errors"
	"sync"
)

// Mode selects how the controller leaves the breadth-first phase.
type Mode int

const (
	// ModeAutomatic starts the depth-first phase the instant the
	// breadth-first phase goes quiescent, with no pause.
	ModeAutomatic Mode = iota

	// ModeManual parks the crawl in StateAwaitingTrigger after the
	// breadth-first phase; the depth-first phase starts only when an
	// explicit trigger supplies the seed set.
	ModeManual
)

// String returns the mode name for logging.
func (m Mode) String() string {
	if m == ModeManual {
		return "manual"
	}
	return "automatic"
}

// State is a position in the per-domain crawl state machine.
type State int

const (
	// StateInit is the state before the crawl starts.
	StateInit State = iota

	// StateBFS is the breadth-first discovery phase.
	StateBFS

	// StateAwaitingTrigger is the manual-mode pause between phases:
	// phase one is complete and no tasks are created until the
	// trigger arrives.
	StateAwaitingTrigger

	// StateDFS is the depth-first exploration phase.
	StateDFS

	// StateDone is the terminal state.
	StateDone
)

// stateTags maps states to the tags stored in checkpoint records.
var stateTags = map[State]string{
	StateInit:            "init",
	StateBFS:             "phase1_bfs",
	StateAwaitingTrigger: "awaiting_trigger",
	StateDFS:             "phase2_dfs",
	StateDone:            "done",
}

// String returns the state's checkpoint tag.
func (s State) String() string {
	if tag, ok := stateTags[s]; ok {
		return tag
	}
	return "unknown"
}

// ParseState converts a checkpoint tag back to a State. Unknown tags
// map to StateInit so a record from a newer version degrades to a
// fresh crawl instead of failing.
func ParseState(tag string) State {
	for state, t := range stateTags {
		if t == tag {
			return state
		}
	}
	return StateInit
}

// ErrNotAwaitingTrigger is returned by Trigger when the domain is not
// parked between phases, e.g. the crawl is still running, already
// finished, or was started in automatic mode.
var ErrNotAwaitingTrigger = errors.New("domain is not awaiting a phase-two trigger")

// TransitionInput is the typed payload of a manual phase-two trigger:
// the URL set discovered by phase one and the depth it reached. Seed
// tasks are created at DepthReached+1, as children of the deepest
// phase-one level.
type TransitionInput struct {
	// DiscoveredURLs are the normalized keys to seed phase two with.
	DiscoveredURLs []string

	// DepthReached is the deepest depth phase one dispatched.
	DepthReached int
}

// PhaseController is the per-domain state machine governing the
// transition between the breadth-first and depth-first sub-crawls.
// Automatic and manual operation are the same automaton parameterized
// by Mode, not separate code paths.
type PhaseController struct {
	mu            sync.Mutex
	state         State
	mode          Mode
	bfsDepthLimit int
	maxDepth      int
}

// NewPhaseController creates a controller in StateInit.
func NewPhaseController(mode Mode, bfsDepthLimit, maxDepth int) *PhaseController {
	return &PhaseController{
		state:         StateInit,
		mode:          mode,
		bfsDepthLimit: bfsDepthLimit,
		maxDepth:      maxDepth,
	}
}

// State returns the current state.
func (c *PhaseController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the configured transition mode.
func (c *PhaseController) Mode() Mode {
	return c.mode
}

// SkipsDFS reports the degenerate configuration where the breadth-first
// depth limit already covers the whole crawl, so no depth-first phase
// must ever start.
func (c *PhaseController) SkipsDFS() bool {
	return c.bfsDepthLimit >= c.maxDepth
}

// Restore sets the state from a checkpoint record. Only valid before
// Start.
func (c *PhaseController) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// Start moves StateInit to StateBFS. Restored states are left as-is so
// a resumed crawl continues from its checkpointed phase.
func (c *PhaseController) Start() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateInit {
		c.state = StateBFS
	}
	return c.state
}

// OnQuiescent advances the machine when the current phase has drained:
// the frontier is empty and no worker holds an in-flight task.
//
// From StateBFS the successor depends on configuration: the degenerate
// bfsDepthLimit >= maxDepth case finishes the crawl outright, manual
// mode parks in StateAwaitingTrigger, automatic mode enters StateDFS
// immediately. From StateDFS the crawl is done.
func (c *PhaseController) OnQuiescent() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateBFS:
		switch {
		case c.bfsDepthLimit >= c.maxDepth:
			c.state = StateDone
		case c.mode == ModeManual:
			c.state = StateAwaitingTrigger
		default:
			c.state = StateDFS
		}
	case StateDFS:
		c.state = StateDone
	}
	return c.state
}

// Trigger moves StateAwaitingTrigger to StateDFS. It is the only way
// out of the manual-mode pause.
func (c *PhaseController) Trigger() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingTrigger {
		return ErrNotAwaitingTrigger
	}
	c.state = StateDFS
	return nil
}
