package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/verihub/verihub-cli/internal/model"
)

func testSummary() *model.VerificationSummary {
	return &model.VerificationSummary{
		RawInput:  "the sky is blue",
		InputType: "text",
		TextCheck: &model.TextCheck{
			Claim:           "the sky is blue",
			VerifiedStatus:  "true",
			ConfidenceScore: 0.9,
			VerifiedFrom:    []string{"https://example.com"},
		},
	}
}

func TestNewExplainer_RequiresKey(t *testing.T) {
	if _, err := NewExplainer(model.LLMConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestExplainer_Explain_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected system and user messages, got %d", len(req.Messages))
		}
		if !strings.Contains(req.Messages[1].Content, "the sky is blue") {
			t.Errorf("expected claim in prompt, got %q", req.Messages[1].Content)
		}

		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: "  The claim is rated true with high confidence.  ",
					},
					FinishReason: "stop",
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := NewExplainer(model.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewExplainer failed: %v", err)
	}

	text, err := e.Explain(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if text != "The claim is rated true with high confidence." {
		t.Errorf("expected trimmed explanation, got %q", text)
	}
}

func TestExplainer_Explain_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	e, err := NewExplainer(model.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewExplainer failed: %v", err)
	}

	if _, err := e.Explain(context.Background(), testSummary()); err == nil {
		t.Fatal("Expected error, got nil")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt(&model.VerificationSummary{
		RawInput:  "photo.png",
		InputType: "image",
		ImageCheck: &model.ImageCheck{
			ImageFound:    true,
			MatchStatus:   "match",
			ExtractedText: "breaking news",
		},
		ReasonedSummary: "The image matches a known photograph.",
	})

	for _, want := range []string{
		"Input (image): photo.png",
		"Image found on the web: true",
		"Match status: match",
		"Text extracted from image: breaking news",
		"Service summary: The image matches a known photograph.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
