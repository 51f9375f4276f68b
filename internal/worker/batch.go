package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/verihub/verihub-cli/internal/stream"
)

// Verifier submits one claim over the single-shot path. Batch mode never
// streams: intermediate steps have no terminal surface to land on.
type Verifier interface {
	Verify(ctx context.Context, sub stream.Submission) (json.RawMessage, error)
}

// ClaimJob verifies one text claim.
type ClaimJob struct {
	Claim    string
	Verifier Verifier
	Limiter  *Limiter
}

// Execute submits the claim after rate-limit clearance.
func (j *ClaimJob) Execute(ctx context.Context) Result {
	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx); err != nil {
			return &ClaimResult{Claim: j.Claim, Error: err}
		}
	}

	result, err := j.Verifier.Verify(ctx, stream.Submission{InputType: "text", Text: j.Claim})
	return &ClaimResult{Claim: j.Claim, Result: result, Error: err}
}

// ClaimResult is the outcome of one claim verification.
type ClaimResult struct {
	Claim  string
	Result json.RawMessage
	Error  error
}

// GetError returns the job error, if any.
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchProcessor verifies many claims concurrently.
type BatchProcessor struct {
	verifier    Verifier
	limiter     *Limiter
	concurrency int
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(verifier Verifier, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		verifier:    verifier,
		limiter:     NewLimiter(requestsPerSecond, burst),
		concurrency: concurrency,
	}
}

// ProcessClaims verifies the claims concurrently and returns one result per
// claim, in completion order. Cancelling ctx stops the batch; claims not yet
// executed are dropped rather than reported.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	// Submit concurrently with collection: the queue is bounded, so feeding
	// it from here would block once it fills with no one draining results.
	go func() {
		for _, claim := range claims {
			pool.Submit(&ClaimJob{
				Claim:    claim,
				Verifier: b.verifier,
				Limiter:  b.limiter,
			})
		}
		pool.Close()
	}()

	results := pool.Wait()

	claimResults := make([]*ClaimResult, len(results))
	for i, result := range results {
		claimResults[i] = result.(*ClaimResult)
	}

	return claimResults
}

// ProcessFile reads claims from a file and verifies them concurrently.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file, one per line. Empty lines and
// # comments are skipped; duplicate claims are submitted once.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return claims, nil
}
