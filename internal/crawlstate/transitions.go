// Package crawlstate defines the per-company crawl state machine.
//
// Valid state graph:
//
//	PENDING ──► FETCHING ──► EXTRACTING ──► CLASSIFYING ──► PERSISTING ──► DONE
//	   │            │             │               │               │
//	   └────────────┴─────────────┴───────────────┴───────────────┴──► SKIPPED
//
// DONE and SKIPPED are terminal states. A run moves IDLE ──► RUNNING ──► COMPLETE.
package crawlstate

import "fmt"

// State is the progress of one company within a run.
type State string

const (
	StatePending     State = "PENDING"
	StateFetching    State = "FETCHING"
	StateExtracting  State = "EXTRACTING"
	StateClassifying State = "CLASSIFYING"
	StatePersisting  State = "PERSISTING"
	StateDone        State = "DONE"
	StateSkipped     State = "SKIPPED"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StatePending:     {StateFetching, StateSkipped},
	StateFetching:    {StateExtracting, StateSkipped},
	StateExtracting:  {StateClassifying, StateSkipped},
	StateClassifying: {StatePersisting, StateSkipped},
	StatePersisting:  {StateDone, StateSkipped},
	// DONE and SKIPPED are terminal
}

// ParseState converts a raw string to a State.
func ParseState(s string) (State, error) {
	st := State(s)
	switch st {
	case StatePending, StateFetching, StateExtracting, StateClassifying, StatePersisting, StateDone, StateSkipped:
		return st, nil
	}
	return "", fmt.Errorf("unknown crawl state %q", s)
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for DONE and SKIPPED.
func IsTerminal(s State) bool { return s == StateDone || s == StateSkipped }

// Tracker follows one company through the state machine.
type Tracker struct {
	company string
	state   State
}

// NewTracker starts company in PENDING.
func NewTracker(company string) *Tracker {
	return &Tracker{company: company, state: StatePending}
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// Advance moves to next, rejecting transitions the graph does not allow.
func (t *Tracker) Advance(next State) error {
	if !IsTransitionAllowed(t.state, next) {
		return fmt.Errorf("company %q: transition %s → %s is not allowed", t.company, t.state, next)
	}
	t.state = next
	return nil
}

// Skip moves any non-terminal state to SKIPPED; terminal states are left alone.
func (t *Tracker) Skip() {
	if !IsTerminal(t.state) {
		t.state = StateSkipped
	}
}

// RunState is the lifecycle of one orchestration run.
type RunState string

const (
	RunIdle     RunState = "IDLE"
	RunRunning  RunState = "RUNNING"
	RunComplete RunState = "COMPLETE"
)

// NextRunState returns the successor of s, or an error when s is COMPLETE.
func NextRunState(s RunState) (RunState, error) {
	switch s {
	case RunIdle:
		return RunRunning, nil
	case RunRunning:
		return RunComplete, nil
	}
	return "", fmt.Errorf("run state %s has no successor", s)
}
