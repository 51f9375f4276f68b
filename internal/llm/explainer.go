package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/verihub/verihub-cli/internal/model"
)

// Explainer renders a finished machine verdict into a few plain-language
// sentences. The explanation is advisory display text only: it is generated
// after the session resolves and never alters the recorded result.
type Explainer struct {
	client *openai.Client
	config model.LLMConfig
}

// NewExplainer creates an Explainer from configuration.
func NewExplainer(cfg model.LLMConfig) (*Explainer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Explainer{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Explain generates the plain-language explanation for a verdict.
func (e *Explainer) Explain(ctx context.Context, summary *model.VerificationSummary) (string, error) {
	modelName := e.config.Model
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}
	maxTokens := e.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelName,
		MaxTokens:   maxTokens,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You restate fact-check verdicts for a general audience. " +
					"Describe only what the verdict record says. Do not add facts, " +
					"do not cite sources beyond those listed, and do not soften or " +
					"strengthen the verdict.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(summary),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in OpenAI response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// buildPrompt describes the verdict record for the model.
func buildPrompt(s *model.VerificationSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Explain this fact-check verdict in 2-3 sentences of plain language.\n\n")
	fmt.Fprintf(&b, "Input (%s): %s\n", s.InputType, s.RawInput)

	if tc := s.TextCheck; tc != nil {
		fmt.Fprintf(&b, "Verdict: %s\n", tc.VerifiedStatus)
		fmt.Fprintf(&b, "Confidence: %.2f\n", tc.ConfidenceScore)
		if len(tc.VerifiedFrom) > 0 {
			fmt.Fprintf(&b, "Sources: %s\n", strings.Join(tc.VerifiedFrom, ", "))
		}
		if tc.Reasoning != "" {
			fmt.Fprintf(&b, "Recorded reasoning: %s\n", tc.Reasoning)
		}
	}

	if ic := s.ImageCheck; ic != nil {
		fmt.Fprintf(&b, "Image found on the web: %v\n", ic.ImageFound)
		if ic.MatchStatus != "" {
			fmt.Fprintf(&b, "Match status: %s\n", ic.MatchStatus)
		}
		if ic.ExtractedText != "" {
			fmt.Fprintf(&b, "Text extracted from image: %s\n", ic.ExtractedText)
		}
	}

	if s.ReasonedSummary != "" {
		fmt.Fprintf(&b, "Service summary: %s\n", s.ReasonedSummary)
	}

	return b.String()
}
