package stream

import (
	"strings"
	"testing"
)

func TestLedger_StepLifecycle(t *testing.T) {
	l := NewLedger()

	l.Apply(Event{Type: EventStepStart, Step: "search", Title: "Web Search", Content: "Searching", Progress: 10})
	l.Apply(Event{Type: EventStepProgress, Step: "search", Content: "Found 3 sources", Progress: 40})
	l.Apply(Event{Type: EventStepComplete, Step: "search", Content: "Search done", Progress: 60})

	snap := l.Snapshot()
	if len(snap.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(snap.Steps))
	}
	s := snap.Steps[0]
	if s.Status != StepComplete {
		t.Errorf("expected complete, got %s", s.Status)
	}
	if s.Content != "Search done" {
		t.Errorf("unexpected content: %s", s.Content)
	}
	if snap.OverallProgress != 60 {
		t.Errorf("expected overall progress 60, got %d", snap.OverallProgress)
	}
}

func TestLedger_DuplicateStartUpdatesInPlace(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepStart, Step: "a", Title: "First", Content: "one", Progress: 10})
	l.Apply(Event{Type: EventStepStart, Step: "b", Title: "Second", Content: "two", Progress: 20})
	l.Apply(Event{Type: EventStepStart, Step: "a", Title: "First again", Content: "three", Progress: 30})

	snap := l.Snapshot()
	if len(snap.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(snap.Steps))
	}
	// Order is first-seen; the duplicate must not move the step.
	if snap.Steps[0].ID != "a" || snap.Steps[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", snap.Steps[0].ID, snap.Steps[1].ID)
	}
	if snap.Steps[0].Title != "First again" {
		t.Errorf("expected updated title, got %s", snap.Steps[0].Title)
	}
}

func TestLedger_ReplayedCompleteLeavesStepUnchanged(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepStart, Step: "a", Title: "Search", Content: "running", Progress: 10})

	ev := Event{Type: EventStepComplete, Step: "a", Content: "done", Progress: 60, Data: &StepData{VerifiedStatus: "true"}}
	l.Apply(ev)
	l.Apply(ev)

	snap := l.Snapshot()
	if len(snap.Steps) != 1 {
		t.Fatalf("expected 1 step after replay, got %d", len(snap.Steps))
	}
	s := snap.Steps[0]
	if s.Status != StepComplete {
		t.Errorf("expected complete after replay, got %s", s.Status)
	}
	if s.Content != "done" || s.Data == nil || s.Data.VerifiedStatus != "true" {
		t.Errorf("unexpected step after replay: %+v", s)
	}
	// The narrative is a transcript; a genuine re-emission appends again.
	if got := strings.Count(l.Narrative(), "Search: done"); got != 2 {
		t.Errorf("expected narrative line twice, got %d", got)
	}
}

func TestLedger_ProgressForUnknownStepUpdatesOverallOnly(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepProgress, Step: "ghost", Content: "Working", Progress: 55})

	snap := l.Snapshot()
	if len(snap.Steps) != 0 {
		t.Errorf("expected no synthetic steps, got %d", len(snap.Steps))
	}
	if snap.OverallStatus != "Working" || snap.OverallProgress != 55 {
		t.Errorf("expected overall update, got %q %d", snap.OverallStatus, snap.OverallProgress)
	}
}

func TestLedger_CompleteForUnknownStepAppends(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepStart, Step: "a", Title: "A", Progress: 10})
	l.Apply(Event{Type: EventStepComplete, Step: "late", Title: "Late Step", Content: "done", Progress: 50})

	snap := l.Snapshot()
	if len(snap.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(snap.Steps))
	}
	if snap.Steps[1].ID != "late" || snap.Steps[1].Status != StepComplete {
		t.Errorf("expected appended completed step, got %+v", snap.Steps[1])
	}
}

func TestLedger_NoRegressionAfterComplete(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepStart, Step: "a", Title: "A", Content: "running", Progress: 10})
	l.Apply(Event{Type: EventStepComplete, Step: "a", Content: "finished", Progress: 50})
	l.Apply(Event{Type: EventStepProgress, Step: "a", Content: "stale update", Progress: 70})

	snap := l.Snapshot()
	s := snap.Steps[0]
	if s.Status != StepComplete {
		t.Errorf("expected step to stay complete, got %s", s.Status)
	}
	if s.Content != "finished" {
		t.Errorf("expected stale progress ignored, got %q", s.Content)
	}
	// Overall still tracks the late event.
	if snap.OverallProgress != 70 {
		t.Errorf("expected overall progress 70, got %d", snap.OverallProgress)
	}
}

func TestLedger_ProgressClamped(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepStart, Step: "a", Progress: 150})
	l.Apply(Event{Type: EventStepProgress, Step: "a", Progress: -5})

	snap := l.Snapshot()
	if snap.Steps[0].Progress != 0 {
		t.Errorf("expected clamped step progress 0, got %d", snap.Steps[0].Progress)
	}
	if snap.OverallProgress != 0 {
		t.Errorf("expected clamped overall progress 0, got %d", snap.OverallProgress)
	}

	l.Apply(Event{Type: EventStepProgress, Step: "a", Progress: 300})
	if got := l.Snapshot().OverallProgress; got != 100 {
		t.Errorf("expected clamped overall progress 100, got %d", got)
	}
}

func TestLedger_NarrativeAccumulates(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepStart, Step: "a", Title: "Search", Progress: 10})
	l.Apply(Event{Type: EventStepComplete, Step: "a", Content: "found sources", Progress: 40})
	l.Apply(Event{Type: EventStepComplete, Step: "b", Title: "Verdict", Content: "claim is false", Progress: 90})

	narrative := l.Narrative()
	if !strings.Contains(narrative, "Search: found sources") {
		t.Errorf("narrative missing first step: %q", narrative)
	}
	if !strings.Contains(narrative, "Verdict: claim is false") {
		t.Errorf("narrative missing second step: %q", narrative)
	}
}

func TestLedger_CompleteEvent(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventComplete, Content: "All done", Result: []byte(`{"verified_status":"true"}`)})

	if string(l.Result()) != `{"verified_status":"true"}` {
		t.Errorf("unexpected result: %s", l.Result())
	}
	snap := l.Snapshot()
	if snap.OverallProgress != 100 {
		t.Errorf("expected progress 100, got %d", snap.OverallProgress)
	}
}

func TestLedger_CompletedSteps(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepStart, Step: "a"})
	l.Apply(Event{Type: EventStepStart, Step: "b"})
	l.Apply(Event{Type: EventStepComplete, Step: "a"})

	if got := l.CompletedSteps(); got != 1 {
		t.Errorf("expected 1 completed step, got %d", got)
	}
}

func TestLedger_SnapshotIsolation(t *testing.T) {
	l := NewLedger()
	l.Apply(Event{Type: EventStepComplete, Step: "a", Title: "A", Data: &StepData{VerifiedStatus: "true"}})

	snap := l.Snapshot()
	snap.Steps[0].Title = "mutated"
	snap.Steps[0].Data.VerifiedStatus = "mutated"

	fresh := l.Snapshot()
	if fresh.Steps[0].Title != "A" {
		t.Error("snapshot mutation leaked into ledger step")
	}
	if fresh.Steps[0].Data.VerifiedStatus != "true" {
		t.Error("snapshot mutation leaked into ledger step data")
	}
}
