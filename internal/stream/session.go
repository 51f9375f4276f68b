package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// State tracks a session through its lifecycle. Completed, failed, and
// cancelled are terminal: no further events are applied after reaching one.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateStreaming  State = "streaming"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Submission is one verification request. Exactly one of Text or Files must
// be provided. Streaming mode sends only the first staged file; additional
// entries are truncated, not rejected.
type Submission struct {
	InputType string   `validate:"omitempty,oneof=text image"`
	Text      string   `validate:"required_without=Files"`
	Files     []string `validate:"required_without=Text"`
}

// Gateway is the transport the session depends on. Implementations decide
// how requests reach the verification service; the session only sees bytes
// and final payloads.
type Gateway interface {
	// SupportsStreaming reports whether the incremental streaming path is
	// available. Queried once per submission.
	SupportsStreaming() bool

	// OpenStream opens the streaming transport and returns the response
	// body. Closing the body aborts any pending read.
	OpenStream(ctx context.Context, sub Submission) (io.ReadCloser, error)

	// Verify performs the single-shot fallback call and returns the final
	// result directly.
	Verify(ctx context.Context, sub Submission) (json.RawMessage, error)
}

// Observer receives the session state and a fresh ledger snapshot after
// every mutation. Only the latest snapshot is meaningful; the session keeps
// no snapshot history.
type Observer func(State, Snapshot)

// Outcome is the final output of a completed session.
type Outcome struct {
	// Result is the opaque payload from the complete event (or the
	// fallback response body), forwarded verbatim.
	Result json.RawMessage

	// Synthesized marks the degraded path: the stream closed without a
	// complete event but with at least one completed step, and Result was
	// built locally from the narrative. Whether the service should ever
	// close a stream this way is a question for the protocol owner.
	Synthesized bool

	// Narrative is the accumulated human-readable transcript.
	Narrative string
}

// Session drives one end-to-end verification attempt. It owns exactly one
// transport handle and one ledger; neither is shared across attempts. The
// byte stream is consumed by sequential reads with exactly one read
// outstanding at a time, and events reach the ledger in decode order.
type Session struct {
	gateway  Gateway
	onUpdate Observer

	mu     sync.Mutex
	state  State
	ledger *Ledger
	body   io.ReadCloser
}

var submissionValidator = validator.New()

// NewSession creates an idle session. onUpdate may be nil.
func NewSession(gw Gateway, onUpdate Observer) *Session {
	return &Session{
		gateway:  gw,
		onUpdate: onUpdate,
		state:    StateIdle,
		ledger:   NewLedger(),
	}
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the latest ledger snapshot. After a failure this still
// reflects the last-known progress; partial state is deliberately not
// cleared so the caller can show how far verification got.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// Submit runs one verification attempt to its terminal state. The request is
// validated before any network call; a validation failure leaves the session
// idle. With streaming support the incremental path is used, otherwise the
// single-shot fallback (which surfaces no intermediate steps).
func (s *Session) Submit(ctx context.Context, sub Submission) (*Outcome, error) {
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return nil, fmt.Errorf("session already used (state %s)", s.state)
	}
	s.ledger = NewLedger()
	s.mu.Unlock()
	s.transition(StateConnecting)

	if !s.gateway.SupportsStreaming() {
		return s.submitFallback(ctx, sub)
	}

	body, err := s.gateway.OpenStream(ctx, sub)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Cancelled while the transport was opening.
		s.mu.Unlock()
		_ = body.Close()
		return nil, context.Canceled
	}
	s.body = body
	s.mu.Unlock()
	s.transition(StateStreaming)

	defer func() {
		s.mu.Lock()
		if s.body != nil {
			_ = s.body.Close()
			s.body = nil
		}
		s.mu.Unlock()
	}()

	return s.consume(ctx, body)
}

// consume reads the stream to a terminal event or transport end.
func (s *Session) consume(ctx context.Context, body io.Reader) (*Outcome, error) {
	decoder := NewLineDecoder()
	buf := make([]byte, 4096)
	sawComplete := false

	handle := func(line string) (*Outcome, error, bool) {
		ev, ok := ParseLine(line)
		if !ok {
			return nil, nil, false
		}
		switch ev.Type {
		case EventError:
			return nil, s.fail(&ServerError{Message: ev.Content}), true
		case EventEndOfStream:
			out, err := s.finish(sawComplete)
			return out, err, true
		case EventComplete:
			sawComplete = true
			s.apply(ev)
		default:
			s.apply(ev)
		}
		return nil, nil, false
	}

	for {
		if err := ctx.Err(); err != nil {
			s.Cancel()
			return nil, err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range decoder.Push(buf[:n]) {
				if out, err, done := handle(line); done {
					return out, err
				}
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if line, ok := decoder.Flush(); ok {
					if out, err, done := handle(line); done {
						return out, err
					}
				}
				// Silent close without a sentinel; degrade the same way.
				return s.finish(sawComplete)
			}
			if s.State() == StateCancelled {
				return nil, context.Canceled
			}
			return nil, s.fail(&TransportError{Reason: fmt.Sprintf("stream read: %v", readErr)})
		}
	}
}

// submitFallback performs the non-streaming request/response call.
func (s *Session) submitFallback(ctx context.Context, sub Submission) (*Outcome, error) {
	result, err := s.gateway.Verify(ctx, sub)
	if err != nil {
		if s.State() == StateCancelled {
			return nil, context.Canceled
		}
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.ledger.Apply(Event{Type: EventComplete, Content: "Verification complete", Result: result})
	s.mu.Unlock()
	s.transition(StateCompleted)
	return &Outcome{Result: result, Narrative: s.Snapshot().Narrative}, nil
}

// finish resolves the terminal outcome once the stream has ended.
func (s *Session) finish(sawComplete bool) (*Outcome, error) {
	s.mu.Lock()
	if isTerminal(s.state) {
		state := s.state
		s.mu.Unlock()
		if state == StateCancelled {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("stream already resolved (state %s)", state)
	}
	result := s.ledger.Result()
	narrative := s.ledger.Narrative()
	completed := s.ledger.CompletedSteps()
	s.mu.Unlock()

	if sawComplete && len(result) > 0 {
		s.transition(StateCompleted)
		return &Outcome{Result: result, Narrative: narrative}, nil
	}

	if completed == 0 {
		return nil, s.fail(&TransportError{Reason: "stream ended before any result"})
	}

	// Degenerate completion: the server closed the stream after finishing
	// steps but never sent a complete event. Synthesize a result from the
	// narrative rather than discarding the work.
	log.Warn().Int("completed_steps", completed).Msg("stream ended without complete event; synthesizing result")
	synth, err := json.Marshal(synthesizedResult{
		ReasonedSummary: narrative,
		ResultFrom:      "stream-degraded",
	})
	if err != nil {
		return nil, s.fail(fmt.Errorf("synthesize result: %w", err))
	}
	s.transition(StateCompleted)
	return &Outcome{Result: synth, Synthesized: true, Narrative: narrative}, nil
}

// synthesizedResult matches the service result schema closely enough for
// downstream display while being clearly marked as locally built.
type synthesizedResult struct {
	ReasonedSummary string `json:"reasoned_summary"`
	ResultFrom      string `json:"result_from"`
}

// Cancel aborts the attempt: it releases the transport handle, interrupting
// any pending read, and transitions to cancelled. Safe to call repeatedly
// and a no-op once the session is terminal.
func (s *Session) Cancel() {
	s.mu.Lock()
	if isTerminal(s.state) {
		s.mu.Unlock()
		return
	}
	s.state = StateCancelled
	if s.body != nil {
		_ = s.body.Close()
		s.body = nil
	}
	snap := s.ledger.Snapshot()
	s.mu.Unlock()
	s.notify(StateCancelled, snap)
}

// apply folds one event into the ledger and notifies the observer.
func (s *Session) apply(ev Event) {
	s.mu.Lock()
	if isTerminal(s.state) {
		s.mu.Unlock()
		return
	}
	s.ledger.Apply(ev)
	snap := s.ledger.Snapshot()
	state := s.state
	s.mu.Unlock()
	s.notify(state, snap)
}

// fail transitions to failed and returns the terminal error unchanged.
func (s *Session) fail(err error) error {
	s.transition(StateFailed)
	return err
}

func (s *Session) transition(next State) {
	s.mu.Lock()
	if isTerminal(s.state) {
		s.mu.Unlock()
		return
	}
	s.state = next
	snap := s.ledger.Snapshot()
	s.mu.Unlock()
	s.notify(next, snap)
}

func (s *Session) notify(state State, snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(state, snap)
	}
}

func isTerminal(st State) bool {
	return st == StateCompleted || st == StateFailed || st == StateCancelled
}

// validateSubmission enforces the submission contract: a non-empty text
// claim or at least one staged file.
func validateSubmission(sub Submission) error {
	if sub.Text == "" && len(sub.Files) == 0 {
		return &ValidationError{Reason: "provide a text claim or a file"}
	}
	if sub.Text != "" && len(sub.Files) > 0 {
		return &ValidationError{Reason: "provide either text or a file, not both"}
	}
	if err := submissionValidator.Struct(sub); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}
