package stream

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// dataPrefix marks protocol lines; everything else on the wire is ignored.
const dataPrefix = "data: "

// doneSentinel is the literal payload signaling deliberate stream end.
const doneSentinel = "[DONE]"

// EventType discriminates stream events.
type EventType string

const (
	EventStepStart    EventType = "step_start"
	EventStepProgress EventType = "step_progress"
	EventStepComplete EventType = "step_complete"
	EventComplete     EventType = "complete"
	EventError        EventType = "error"
	EventEndOfStream  EventType = "end_of_stream" // Synthesized from the [DONE] sentinel
)

// Event is one decoded stream event. Field presence depends on Type:
// step events carry Step/Title/Content/Progress, step_complete may add Data,
// complete carries Result, error carries Content.
type Event struct {
	Type     EventType
	Step     string
	Title    string
	Content  string
	Progress int
	Data     *StepData
	Result   json.RawMessage
}

// StepData is the verdict payload attached to a step_complete event.
type StepData struct {
	VerifiedStatus  string   `json:"verified_status,omitempty"`
	ConfidenceScore float64  `json:"confidence_score,omitempty"`
	VerifiedFrom    []string `json:"verified_from,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty"`
	Summary         string   `json:"summary,omitempty"`
}

// wireEvent is the raw JSON shape of a protocol payload.
type wireEvent struct {
	Type     string          `json:"type"`
	Step     string          `json:"step"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Progress int             `json:"progress"`
	Data     *StepData       `json:"data"`
	Result   json.RawMessage `json:"result"`
}

// ParseLine parses one decoded line into an event. The second return is
// false when the line carries no event: non-protocol lines, unknown event
// types, and malformed payloads are all skipped. A corrupt frame is logged
// and absorbed here so that it can never abort an otherwise-healthy stream.
func ParseLine(line string) (Event, bool) {
	if !strings.HasPrefix(line, dataPrefix) {
		return Event{}, false
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])

	if payload == doneSentinel {
		return Event{Type: EventEndOfStream}, true
	}

	var w wireEvent
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		log.Warn().Err(err).Str("payload", truncate(payload, 200)).Msg("skipping malformed stream payload")
		return Event{}, false
	}

	switch EventType(w.Type) {
	case EventStepStart, EventStepProgress, EventStepComplete, EventComplete, EventError:
	default:
		log.Debug().Str("type", w.Type).Msg("ignoring unknown stream event type")
		return Event{}, false
	}

	return Event{
		Type:     EventType(w.Type),
		Step:     w.Step,
		Title:    w.Title,
		Content:  w.Content,
		Progress: w.Progress,
		Data:     w.Data,
		Result:   w.Result,
	}, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
