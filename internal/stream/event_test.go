package stream

import (
	"testing"
)

func TestParseLine_IgnoresNonProtocolLines(t *testing.T) {
	for _, line := range []string{
		"",
		": keepalive",
		"event: message",
		"random noise",
		"data:no-space-prefix",
	} {
		if _, ok := ParseLine(line); ok {
			t.Errorf("expected line %q to be ignored", line)
		}
	}
}

func TestParseLine_DoneSentinel(t *testing.T) {
	ev, ok := ParseLine("data: [DONE]")
	if !ok {
		t.Fatal("expected sentinel to parse")
	}
	if ev.Type != EventEndOfStream {
		t.Errorf("expected end_of_stream, got %s", ev.Type)
	}
}

func TestParseLine_StepStart(t *testing.T) {
	line := `data: {"type":"step_start","step":"web_search","title":"Web Search","content":"Searching sources","progress":20}`
	ev, ok := ParseLine(line)
	if !ok {
		t.Fatal("expected event to parse")
	}
	if ev.Type != EventStepStart {
		t.Errorf("expected step_start, got %s", ev.Type)
	}
	if ev.Step != "web_search" || ev.Title != "Web Search" {
		t.Errorf("unexpected step fields: %+v", ev)
	}
	if ev.Progress != 20 {
		t.Errorf("expected progress 20, got %d", ev.Progress)
	}
}

func TestParseLine_StepCompleteWithData(t *testing.T) {
	line := `data: {"type":"step_complete","step":"verdict","title":"Verdict","content":"done","progress":90,"data":{"verified_status":"true","confidence_score":0.92,"verified_from":["https://example.com"]}}`
	ev, ok := ParseLine(line)
	if !ok {
		t.Fatal("expected event to parse")
	}
	if ev.Data == nil {
		t.Fatal("expected data payload")
	}
	if ev.Data.VerifiedStatus != "true" {
		t.Errorf("expected verified_status true, got %s", ev.Data.VerifiedStatus)
	}
	if ev.Data.ConfidenceScore != 0.92 {
		t.Errorf("expected confidence 0.92, got %f", ev.Data.ConfidenceScore)
	}
	if len(ev.Data.VerifiedFrom) != 1 {
		t.Errorf("expected 1 source, got %d", len(ev.Data.VerifiedFrom))
	}
}

func TestParseLine_CompleteCarriesResult(t *testing.T) {
	line := `data: {"type":"complete","content":"Verification complete","result":{"verified_status":"false"}}`
	ev, ok := ParseLine(line)
	if !ok {
		t.Fatal("expected event to parse")
	}
	if ev.Type != EventComplete {
		t.Errorf("expected complete, got %s", ev.Type)
	}
	if string(ev.Result) != `{"verified_status":"false"}` {
		t.Errorf("unexpected result payload: %s", ev.Result)
	}
}

func TestParseLine_MalformedPayloadSkipped(t *testing.T) {
	if _, ok := ParseLine(`data: {"type":"step_start",broken`); ok {
		t.Error("expected malformed payload to be skipped")
	}
}

func TestParseLine_UnknownTypeSkipped(t *testing.T) {
	if _, ok := ParseLine(`data: {"type":"heartbeat"}`); ok {
		t.Error("expected unknown type to be skipped")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncate("0123456789", 4); got != "0123..." {
		t.Errorf("expected truncated string, got %q", got)
	}
}
