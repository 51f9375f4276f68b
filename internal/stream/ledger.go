package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StepStatus tracks a step's lifecycle. Transitions are forward-only: a
// completed step never regresses to in_progress.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepComplete   StepStatus = "complete"
)

// Step is one server-reported verification stage. The id is assigned by the
// server and is the sole deduplication key.
type Step struct {
	ID       string
	Title    string
	Content  string
	Status   StepStatus
	Progress int
	Data     *StepData // Verdict payload, attached only by step_complete
}

// Ledger folds stream events into an ordered, id-deduplicated view of all
// steps for one verification attempt. Steps keep first-seen insertion order;
// updates never move them. A Ledger is exclusively owned by one Session and
// is never shared across attempts.
type Ledger struct {
	steps     []*Step
	index     map[string]*Step
	status    string
	progress  int
	narrative strings.Builder
	result    json.RawMessage
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{index: make(map[string]*Step)}
}

// Apply reduces one event into the ledger. The ledger is a write-only
// projection: it records state and never produces errors. Terminal decisions
// (including server-reported errors) belong to the session.
func (l *Ledger) Apply(ev Event) {
	switch ev.Type {
	case EventStepStart:
		if s, ok := l.index[ev.Step]; ok {
			// Duplicate start is a protocol anomaly; treat as an update.
			l.updateStep(s, ev)
		} else {
			l.appendStep(ev, StepInProgress)
		}
		l.setOverall(ev.Content, ev.Progress)

	case EventStepProgress:
		l.setOverall(ev.Content, ev.Progress)
		s, ok := l.index[ev.Step]
		if !ok {
			// Progress must reference a known step; no synthetic creation.
			return
		}
		if s.Status != StepComplete {
			l.updateStep(s, ev)
		}

	case EventStepComplete:
		s, ok := l.index[ev.Step]
		if ok {
			l.updateStep(s, ev)
		} else {
			// The server may complete a step it never announced.
			s = l.appendStep(ev, StepComplete)
		}
		s.Status = StepComplete
		if ev.Data != nil {
			s.Data = ev.Data
		}
		l.narrative.WriteString(fmt.Sprintf("%s: %s\n", s.Title, ev.Content))
		l.setOverall(ev.Content, ev.Progress)

	case EventComplete:
		l.result = ev.Result
		l.narrative.WriteString(fmt.Sprintf("\nFinal Result: %s\n", ev.Content))
		l.status = "Verification complete"
		l.progress = 100

	case EventError, EventEndOfStream:
		// Session concern; nothing to record.
	}
}

func (l *Ledger) appendStep(ev Event, status StepStatus) *Step {
	s := &Step{
		ID:       ev.Step,
		Title:    ev.Title,
		Content:  ev.Content,
		Status:   status,
		Progress: clampProgress(ev.Progress),
	}
	l.steps = append(l.steps, s)
	l.index[s.ID] = s
	return s
}

func (l *Ledger) updateStep(s *Step, ev Event) {
	if ev.Title != "" {
		s.Title = ev.Title
	}
	s.Content = ev.Content
	s.Progress = clampProgress(ev.Progress)
}

func (l *Ledger) setOverall(status string, progress int) {
	l.status = status
	l.progress = clampProgress(progress)
}

// Result returns the opaque result payload from the complete event, if seen.
func (l *Ledger) Result() json.RawMessage {
	return l.result
}

// Narrative returns the accumulated one-line-per-completed-step transcript.
func (l *Ledger) Narrative() string {
	return l.narrative.String()
}

// CompletedSteps counts steps in complete status.
func (l *Ledger) CompletedSteps() int {
	n := 0
	for _, s := range l.steps {
		if s.Status == StepComplete {
			n++
		}
	}
	return n
}

// Snapshot is an immutable copy of the ledger state, emitted to observers on
// every mutation.
type Snapshot struct {
	Steps           []Step
	OverallStatus   string
	OverallProgress int
	Narrative       string
}

// Snapshot copies the current ledger state.
func (l *Ledger) Snapshot() Snapshot {
	steps := make([]Step, len(l.steps))
	for i, s := range l.steps {
		steps[i] = *s
		if s.Data != nil {
			data := *s.Data
			steps[i].Data = &data
		}
	}
	return Snapshot{
		Steps:           steps,
		OverallStatus:   l.status,
		OverallProgress: l.progress,
		Narrative:       l.narrative.String(),
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
