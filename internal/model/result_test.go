package model

import (
	"testing"
)

func TestDecodeSummary(t *testing.T) {
	raw := []byte(`{
		"raw_input": "the sky is blue",
		"input_type": "text",
		"tools_used": ["web_search"],
		"text_check": {
			"claim": "the sky is blue",
			"verified_status": "true",
			"verified_from": ["https://example.com"],
			"confidence_score": 0.95
		},
		"reasoned_summary": "Confirmed by multiple sources.",
		"result_from": "web_search"
	}`)

	s, err := DecodeSummary(raw)
	if err != nil {
		t.Fatalf("DecodeSummary failed: %v", err)
	}
	if s.InputType != "text" || s.RawInput != "the sky is blue" {
		t.Errorf("unexpected input fields: %+v", s)
	}
	if s.TextCheck == nil || s.TextCheck.VerifiedStatus != StatusTrue {
		t.Errorf("unexpected text check: %+v", s.TextCheck)
	}
	if s.TextCheck.ConfidenceScore != 0.95 {
		t.Errorf("unexpected confidence: %f", s.TextCheck.ConfidenceScore)
	}
}

func TestDecodeSummary_Errors(t *testing.T) {
	if _, err := DecodeSummary(nil); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := DecodeSummary([]byte("{broken")); err == nil {
		t.Error("expected error for malformed payload")
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name    string
		summary VerificationSummary
		want    string
	}{
		{
			name: "text verdict",
			summary: VerificationSummary{
				TextCheck: &TextCheck{VerifiedStatus: StatusFalse, ConfidenceScore: 0.8},
			},
			want: "FALSE (confidence 80%)",
		},
		{
			name: "image found",
			summary: VerificationSummary{
				ImageCheck: &ImageCheck{ImageFound: true, MatchStatus: "partial_match"},
			},
			want: "image found on the web (partial_match)",
		},
		{
			name: "image not found",
			summary: VerificationSummary{
				ImageCheck: &ImageCheck{ImageFound: false},
			},
			want: "image not found on the web",
		},
		{
			name:    "no checks",
			summary: VerificationSummary{},
			want:    "no verdict",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.summary.Verdict(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
