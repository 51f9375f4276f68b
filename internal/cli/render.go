package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verihub/verihub-cli/internal/model"
	"github.com/verihub/verihub-cli/internal/stream"
)

// renderResult writes the final result to w in the requested format.
func renderResult(w io.Writer, outcome *stream.Outcome, format string) error {
	switch format {
	case "json":
		var buf bytes.Buffer
		if err := json.Indent(&buf, outcome.Result, "", "  "); err != nil {
			// Not JSON after all; emit verbatim.
			buf.Write(outcome.Result)
		}
		fmt.Fprintln(w, buf.String())
		return nil

	case "yaml":
		var generic interface{}
		if err := json.Unmarshal(outcome.Result, &generic); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
		data, err := yaml.Marshal(generic)
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprint(w, string(data))
		return nil

	case "", "text":
		renderResultText(w, outcome)
		return nil

	default:
		return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
	}
}

// renderResultText prints the human-readable verdict summary.
func renderResultText(w io.Writer, outcome *stream.Outcome) {
	summary, err := model.DecodeSummary(outcome.Result)
	if err != nil {
		// Result doesn't match the known schema; show it raw.
		fmt.Fprintln(w, string(outcome.Result))
		return
	}

	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "  Verification Result")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)

	if outcome.Synthesized {
		fmt.Fprintln(w, "  ⚠ The stream ended early; this result was assembled from")
		fmt.Fprintln(w, "    the completed steps, not a final service verdict.")
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Verdict:  %s\n", summary.Verdict())

	if tc := summary.TextCheck; tc != nil {
		fmt.Fprintf(w, "  Claim:    %s\n", tc.Claim)
		if len(tc.VerifiedFrom) > 0 {
			fmt.Fprintf(w, "  Sources:  %s\n", strings.Join(tc.VerifiedFrom, ", "))
		}
		if tc.Reasoning != "" {
			fmt.Fprintf(w, "  Reason:   %s\n", tc.Reasoning)
		}
	}

	if ic := summary.ImageCheck; ic != nil {
		fmt.Fprintf(w, "  Image:    %s\n", ic.ImageURL)
		if ic.ExtractedText != "" {
			fmt.Fprintf(w, "  OCR text: %s\n", ic.ExtractedText)
		}
	}

	if len(summary.ToolsUsed) > 0 {
		fmt.Fprintf(w, "  Tools:    %s\n", strings.Join(summary.ToolsUsed, ", "))
	}
	if summary.ResultFrom != "" {
		fmt.Fprintf(w, "  Via:      %s\n", summary.ResultFrom)
	}

	if summary.ReasonedSummary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Summary:")
		for _, line := range strings.Split(strings.TrimSpace(summary.ReasonedSummary), "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}

	fmt.Fprintln(w)
}
