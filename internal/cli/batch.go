package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/verihub/verihub-cli/internal/model"
	"github.com/verihub/verihub-cli/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	// noCache, baseURL, httpProxy, httpsProxy are defined in verify.go and shared here
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Verify multiple claims from a file in parallel",
	Long: `Batch verifies multiple text claims concurrently:
- Read claims from the input file (one per line, # comments skipped)
- Submit claims in parallel with a configurable worker count
- Throttle submissions so the service is not flooded
- Write one result JSON per claim

Batch mode uses the single-shot endpoint; live step streaming only applies
to interactive single verifications.

Example:
  verihub batch claims.txt
  verihub batch claims.txt --concurrency 8 --output-dir ./verdicts
  verihub batch claims.txt --rps 1 --timeout 15m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var batchRPS float64

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./verihub-results", "output directory for result files")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().Float64Var(&batchRPS, "rps", 0, "submissions per second (0 = config default)")

	// Transport flags shared with verify
	batchCmd.Flags().StringVar(&baseURL, "base-url", "", "verification service base URL")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache (force fresh verifications)")
	batchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	batchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	batchCmd.Flags().StringVar(&noProxy, "no-proxy", "", "comma-separated hosts that bypass the proxy")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  VeriHub Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	// Build configuration
	cfg := loadConfig()
	if baseURL != "" {
		cfg.Service.BaseURL = baseURL
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
	if noCache {
		cfg.Cache.Enabled = false
	}
	if batchRPS > 0 {
		cfg.RateLimiting.RequestsPerSecond = batchRPS
	}
	cfg.Concurrency.Workers = concurrency

	creds, err := newTokenStore()
	if err != nil {
		return err
	}

	gw, err := newGateway(cfg, creds)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Create batch processor
	processor := worker.NewBatchProcessor(gw, concurrency, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	fmt.Fprintf(os.Stderr, "⚙️  Reading claims from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Processed %d claims with %d workers\n", len(results), concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	successCount := 0
	failureCount := 0

	for i, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", truncateClaim(result.Claim), result.Error)
			continue
		}

		successCount++

		outPath := filepath.Join(outputDir, fmt.Sprintf("claim-%03d.json", i+1))
		if err := writeClaimResult(outPath, result.Claim, result.Result); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write result: %v\n", truncateClaim(result.Claim), err)
			continue
		}

		verdict := "recorded"
		if summary, err := model.DecodeSummary(result.Result); err == nil {
			verdict = summary.Verdict()
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%s)\n", truncateClaim(result.Claim), verdict)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// writeClaimResult stores one claim's result with the claim echoed alongside.
func writeClaimResult(path, claim string, result json.RawMessage) error {
	record := struct {
		Claim  string          `json:"claim"`
		Result json.RawMessage `json:"result"`
	}{Claim: claim, Result: result}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// truncateClaim shortens long claims for the progress listing.
func truncateClaim(claim string) string {
	if len(claim) > 60 {
		return claim[:60] + "..."
	}
	return claim
}
