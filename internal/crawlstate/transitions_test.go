package crawlstate_test

import (
	"testing"

	"jobmate/internship-crawler/internal/crawlstate"
)

var allStates = []crawlstate.State{
	crawlstate.StatePending,
	crawlstate.StateFetching,
	crawlstate.StateExtracting,
	crawlstate.StateClassifying,
	crawlstate.StatePersisting,
	crawlstate.StateDone,
	crawlstate.StateSkipped,
}

// ── ParseState ─────────────────────────────────────────────────────────────

func TestParseState_ValidValues(t *testing.T) {
	for _, s := range allStates {
		got, err := crawlstate.ParseState(string(s))
		if err != nil {
			t.Errorf("ParseState(%q) returned unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseState(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseState_Invalid(t *testing.T) {
	for _, s := range []string{"", "UNKNOWN", "done"} {
		if _, err := crawlstate.ParseState(s); err == nil {
			t.Errorf("ParseState(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed — forward path ─────────────────────────────────────

func TestIsTransitionAllowed_ValidForward(t *testing.T) {
	cases := []struct {
		from crawlstate.State
		to   crawlstate.State
	}{
		{crawlstate.StatePending, crawlstate.StateFetching},
		{crawlstate.StateFetching, crawlstate.StateExtracting},
		{crawlstate.StateExtracting, crawlstate.StateClassifying},
		{crawlstate.StateClassifying, crawlstate.StatePersisting},
		{crawlstate.StatePersisting, crawlstate.StateDone},
	}
	for _, c := range cases {
		if !crawlstate.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

// ── IsTransitionAllowed — skipping from any non-terminal ───────────────────

func TestIsTransitionAllowed_ToSkipped(t *testing.T) {
	for _, s := range allStates {
		want := !crawlstate.IsTerminal(s)
		if got := crawlstate.IsTransitionAllowed(s, crawlstate.StateSkipped); got != want {
			t.Errorf("IsTransitionAllowed(%s → SKIPPED) = %v, want %v", s, got, want)
		}
	}
}

// ── IsTransitionAllowed — forbidden ────────────────────────────────────────

func TestIsTransitionAllowed_Forbidden(t *testing.T) {
	cases := []struct {
		from crawlstate.State
		to   crawlstate.State
	}{
		{crawlstate.StatePending, crawlstate.StateExtracting},
		{crawlstate.StateFetching, crawlstate.StatePending},
		{crawlstate.StatePersisting, crawlstate.StateFetching},
		{crawlstate.StateDone, crawlstate.StateFetching},
		{crawlstate.StateSkipped, crawlstate.StateDone},
		{crawlstate.StateDone, crawlstate.StateDone},
	}
	for _, c := range cases {
		if crawlstate.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", c.from, c.to)
		}
	}
}

// ── Tracker ────────────────────────────────────────────────────────────────

func TestTracker_FullPath(t *testing.T) {
	tr := crawlstate.NewTracker("Acme")
	for _, next := range allStates[1:6] {
		if err := tr.Advance(next); err != nil {
			t.Fatalf("Advance(%s): %v", next, err)
		}
	}
	if tr.State() != crawlstate.StateDone {
		t.Errorf("final state = %s, want DONE", tr.State())
	}
	tr.Skip()
	if tr.State() != crawlstate.StateDone {
		t.Error("Skip must not leave a terminal state")
	}
}

func TestTracker_RejectsJump(t *testing.T) {
	tr := crawlstate.NewTracker("Acme")
	if err := tr.Advance(crawlstate.StatePersisting); err == nil {
		t.Error("Advance(PENDING → PERSISTING) expected error")
	}
	if tr.State() != crawlstate.StatePending {
		t.Errorf("state changed on rejected transition: %s", tr.State())
	}
	tr.Skip()
	if tr.State() != crawlstate.StateSkipped {
		t.Errorf("Skip from PENDING = %s, want SKIPPED", tr.State())
	}
}

// ── Run lifecycle ──────────────────────────────────────────────────────────

func TestNextRunState(t *testing.T) {
	s, err := crawlstate.NextRunState(crawlstate.RunIdle)
	if err != nil || s != crawlstate.RunRunning {
		t.Fatalf("IDLE → %s, %v; want RUNNING", s, err)
	}
	s, err = crawlstate.NextRunState(s)
	if err != nil || s != crawlstate.RunComplete {
		t.Fatalf("RUNNING → %s, %v; want COMPLETE", s, err)
	}
	if _, err := crawlstate.NextRunState(s); err == nil {
		t.Error("COMPLETE should have no successor")
	}
}
