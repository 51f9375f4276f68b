package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VerificationSummary is the final verdict returned by the verification
// service. This schema mirrors the service's response for both the streaming
// `complete` event payload and the non-streaming endpoint body.
type VerificationSummary struct {
	RawInput        string      `json:"raw_input"`                  // Submitted claim text or image reference
	InputType       string      `json:"input_type"`                 // "text" or "image"
	ToolsUsed       []string    `json:"tools_used,omitempty"`       // Backend tools consulted
	TextCheck       *TextCheck  `json:"text_check,omitempty"`       // Text verification result
	ImageCheck      *ImageCheck `json:"img_check,omitempty"`        // Image verification result, if an image was involved
	ReasonedSummary string      `json:"reasoned_summary,omitempty"` // Service-generated reasoning for the verdict
	ResultFrom      string      `json:"result_from,omitempty"`      // Which backend tool produced the verdict
}

// TextCheck is the service's verdict on a text claim.
type TextCheck struct {
	Claim           string   `json:"claim"`                   // The claim that was verified
	VerifiedStatus  string   `json:"verified_status"`         // "true", "false", or "unverified"
	VerifiedFrom    []string `json:"verified_from,omitempty"` // Sources used to confirm/refute
	ConfidenceScore float64  `json:"confidence_score"`        // 0.0 - 1.0
	Reasoning       string   `json:"reasoning,omitempty"`     // Brief explanation for the status
}

// ImageCheck is the service's verdict on an image submission.
type ImageCheck struct {
	ImageURL      string                   `json:"img_url"`
	ExtractedText string                   `json:"extracted_text,omitempty"` // OCR output
	ImageFound    bool                     `json:"img_found"`                // Whether the image was found on the web
	MatchStatus   string                   `json:"match_status,omitempty"`   // "match", "partial_match", "no_match"
	ImageMetadata []map[string]interface{} `json:"img_metadata,omitempty"`   // Source metadata for matches
}

// Verified status values reported by the service.
const (
	StatusTrue       = "true"
	StatusFalse      = "false"
	StatusUnverified = "unverified"
)

// DecodeSummary decodes an opaque result payload into a VerificationSummary.
// The stream core forwards results verbatim; decoding is a presentation
// concern and a decode failure does not invalidate the raw payload.
func DecodeSummary(raw json.RawMessage) (*VerificationSummary, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty result payload")
	}
	var s VerificationSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &s, nil
}

// Verdict returns a one-line human-readable verdict for the summary.
func (s *VerificationSummary) Verdict() string {
	if s.TextCheck != nil {
		return fmt.Sprintf("%s (confidence %.0f%%)", strings.ToUpper(s.TextCheck.VerifiedStatus), s.TextCheck.ConfidenceScore*100)
	}
	if s.ImageCheck != nil {
		if s.ImageCheck.ImageFound {
			return fmt.Sprintf("image found on the web (%s)", s.ImageCheck.MatchStatus)
		}
		return "image not found on the web"
	}
	return "no verdict"
}
