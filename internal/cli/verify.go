package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/verihub/verihub-cli/internal/history"
	"github.com/verihub/verihub-cli/internal/llm"
	"github.com/verihub/verihub-cli/internal/model"
	"github.com/verihub/verihub-cli/internal/stream"
)

var (
	verifyFiles []string
	noStream    bool
	noCache     bool
	timeout     time.Duration
	baseURL     string
	userAgent   string
	insecureTLS bool
	httpProxy   string
	httpsProxy  string
	noProxy     string
	outJSON     string
	outFormat   string
	explain     bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [claim]",
	Short: "Verify a text claim or an image",
	Long: `Verify submits a claim to the verification service and streams the
verification steps live: routing, fact checking, social media and news
analysis, and the final verdict with its confidence score.

Submit either a text claim as the argument or an image with --file. When
--file is repeated, only the first file is sent; the service accepts exactly
one file per submission.

Example:
  verihub verify "The Eiffel Tower is in Berlin"
  verihub verify --file screenshot.png
  verihub verify "..." --no-stream --json result.json
  verihub verify "..." --explain`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	// Input flags
	verifyCmd.Flags().StringSliceVar(&verifyFiles, "file", nil, "image file to verify (repeatable; only the first is sent)")

	// Transport flags
	verifyCmd.Flags().BoolVar(&noStream, "no-stream", false, "disable streaming; use the single-shot endpoint")
	verifyCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache (force a fresh verification)")
	verifyCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall verification timeout")
	verifyCmd.Flags().StringVar(&baseURL, "base-url", "", "verification service base URL")
	verifyCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	verifyCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	verifyCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	verifyCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	verifyCmd.Flags().StringVar(&noProxy, "no-proxy", "", "comma-separated hosts that bypass the proxy")

	// Output flags
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "write the raw result JSON to this path")
	verifyCmd.Flags().StringVar(&outFormat, "format", "", "stdout format (text, json, yaml)")
	verifyCmd.Flags().BoolVar(&explain, "explain", false, "add a plain-language explanation of the verdict (requires OPENAI_API_KEY)")
}

func runVerify(cmd *cobra.Command, args []string) error {
	sub := stream.Submission{Files: verifyFiles}
	if len(args) == 1 {
		sub.Text = args[0]
	}

	// Build configuration from config sources, then flag overrides
	cfg := loadConfig()
	applyVerifyOverrides(cmd, cfg)

	creds, err := newTokenStore()
	if err != nil {
		return err
	}

	gw, err := newGateway(cfg, creds)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	session := stream.NewSession(gw, progressObserver())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Service.Timeout)
	defer cancel()

	// Interrupt aborts the pending read; a no-op once the session is terminal.
	go func() {
		<-ctx.Done()
		session.Cancel()
	}()

	outcome, err := session.Submit(ctx, sub)
	if err != nil {
		return reportFailure(session, err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Verification complete (%d steps)\n\n", len(session.Snapshot().Steps))
	}

	// Persist to history. The session resolved; recording is our job, not its.
	if dir, err := history.DefaultDir(); err == nil {
		rec := history.Record{
			InputType:   inputKind(sub),
			Input:       inputLabel(sub),
			Result:      outcome.Result,
			Synthesized: outcome.Synthesized,
		}
		if _, err := history.NewStore(dir).Add(rec); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to record history: %v\n", err)
		}
	}

	if outJSON != "" {
		if err := os.WriteFile(outJSON, outcome.Result, 0644); err != nil {
			return fmt.Errorf("write result JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", outJSON)
		}
	}

	if err := renderResult(os.Stdout, outcome, cfg.Output.Format); err != nil {
		return fmt.Errorf("render result: %w", err)
	}

	if explain {
		if err := renderExplanation(cmd.Context(), cfg.LLM, outcome); err != nil {
			// Advisory output only; the verification itself succeeded.
			fmt.Fprintf(os.Stderr, "Warning: explanation failed: %v\n", err)
		}
	}

	return nil
}

// applyVerifyOverrides layers the verify flags onto the configuration. Flags
// with non-zero defaults (timeout, insecure) only override when actually set,
// so config file and env values are not clobbered by defaults.
func applyVerifyOverrides(cmd *cobra.Command, cfg *model.Config) {
	if cmd.Flags().Changed("timeout") {
		cfg.Service.Timeout = timeout
	}
	if cmd.Flags().Changed("insecure") {
		cfg.Service.InsecureTLS = insecureTLS
	}
	if baseURL != "" {
		cfg.Service.BaseURL = baseURL
	}
	if userAgent != "" {
		cfg.Service.UserAgent = userAgent
	}
	if httpProxy != "" {
		cfg.Service.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.Service.HTTPSProxy = httpsProxy
	}
	if noProxy != "" {
		cfg.Service.NoProxy = noProxy
	}
	if noStream {
		cfg.Service.Streaming = false
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if outFormat != "" {
		cfg.Output.Format = outFormat
	}
}

// progressObserver renders live step progress to stderr.
func progressObserver() stream.Observer {
	return func(st stream.State, snap stream.Snapshot) {
		switch st {
		case stream.StateConnecting:
			fmt.Fprintf(os.Stderr, "⚙️  Connecting...\n")
		case stream.StateStreaming:
			if snap.OverallStatus != "" {
				fmt.Fprintf(os.Stderr, "  [%3d%%] %s\n", snap.OverallProgress, snap.OverallStatus)
			}
		}
	}
}

// reportFailure translates terminal errors into user guidance. Partial
// progress stays visible: the ledger is not cleared on failure.
func reportFailure(session *stream.Session, err error) error {
	snap := session.Snapshot()
	if len(snap.Steps) > 0 {
		fmt.Fprintf(os.Stderr, "\nVerification failed after %d step(s); last status: %s\n", len(snap.Steps), snap.OverallStatus)
	}

	var authErr *stream.AuthExpiredError
	if errors.As(err, &authErr) {
		return fmt.Errorf("your session has expired; run 'verihub auth set-token' with a fresh token")
	}

	var valErr *stream.ValidationError
	if errors.As(err, &valErr) {
		return fmt.Errorf("%s", valErr.Reason)
	}

	return err
}

// renderExplanation prints the optional plain-language verdict explanation.
func renderExplanation(ctx context.Context, cfg model.LLMConfig, outcome *stream.Outcome) error {
	summary, err := model.DecodeSummary(outcome.Result)
	if err != nil {
		return err
	}

	explainer, err := llm.NewExplainer(cfg)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	text, err := explainer.Explain(ctx, summary)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("In plain language:")
	fmt.Println("  " + text)
	return nil
}

func inputKind(sub stream.Submission) string {
	if len(sub.Files) > 0 {
		return "image"
	}
	return "text"
}

func inputLabel(sub stream.Submission) string {
	if len(sub.Files) > 0 {
		return filepath.Base(sub.Files[0])
	}
	return sub.Text
}
