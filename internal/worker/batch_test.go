package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/verihub/verihub-cli/internal/stream"
)

// mockVerifier records submissions and returns a canned verdict.
type mockVerifier struct {
	mu       sync.Mutex
	claims   []string
	failFor  string
	verdicts json.RawMessage
}

func (v *mockVerifier) Verify(ctx context.Context, sub stream.Submission) (json.RawMessage, error) {
	v.mu.Lock()
	v.claims = append(v.claims, sub.Text)
	v.mu.Unlock()

	if v.failFor != "" && sub.Text == v.failFor {
		return nil, errors.New("verification failed")
	}
	if v.verdicts != nil {
		return v.verdicts, nil
	}
	return []byte(`{"verified_status":"unverified"}`), nil
}

func TestClaimJob_Execute(t *testing.T) {
	v := &mockVerifier{verdicts: []byte(`{"verified_status":"true"}`)}
	job := &ClaimJob{Claim: "the sky is blue", Verifier: v}

	result := job.Execute(context.Background())
	cr, ok := result.(*ClaimResult)
	if !ok {
		t.Fatalf("expected *ClaimResult, got %T", result)
	}
	if cr.GetError() != nil {
		t.Fatalf("unexpected error: %v", cr.GetError())
	}
	if cr.Claim != "the sky is blue" {
		t.Errorf("unexpected claim: %s", cr.Claim)
	}
	if string(cr.Result) != `{"verified_status":"true"}` {
		t.Errorf("unexpected result: %s", cr.Result)
	}
}

func TestClaimJob_SubmitsTextInput(t *testing.T) {
	v := &mockVerifier{}
	job := &ClaimJob{Claim: "claim", Verifier: v}
	job.Execute(context.Background())

	if len(v.claims) != 1 || v.claims[0] != "claim" {
		t.Errorf("expected single text submission, got %v", v.claims)
	}
}

func TestBatchProcessor_ProcessClaims(t *testing.T) {
	v := &mockVerifier{failFor: "bad claim"}
	b := NewBatchProcessor(v, 4, 1000, 100)

	claims := []string{"claim one", "bad claim", "claim three"}
	results := b.ProcessClaims(context.Background(), claims)

	if len(results) != len(claims) {
		t.Fatalf("expected %d results, got %d", len(claims), len(results))
	}

	failures := 0
	for _, r := range results {
		if r.GetError() != nil {
			failures++
			if r.Claim != "bad claim" {
				t.Errorf("unexpected failing claim: %s", r.Claim)
			}
		}
	}
	if failures != 1 {
		t.Errorf("expected 1 failure, got %d", failures)
	}
}

// A claims file well past the pool's queue buffer must drain to completion.
func TestBatchProcessor_LargeInputCompletes(t *testing.T) {
	v := &mockVerifier{}
	b := NewBatchProcessor(v, 1, 10000, 1000)

	claims := make([]string, 30)
	for i := range claims {
		claims[i] = fmt.Sprintf("claim %d", i)
	}

	done := make(chan []*ClaimResult, 1)
	go func() {
		done <- b.ProcessClaims(context.Background(), claims)
	}()

	select {
	case results := <-done:
		if len(results) != len(claims) {
			t.Errorf("expected %d results, got %d", len(claims), len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessClaims hung on input larger than the queue buffer")
	}
}

// Cancelling the caller's context stops the batch.
func TestBatchProcessor_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := &mockVerifier{}
	b := NewBatchProcessor(v, 2, 10000, 1000)

	results := b.ProcessClaims(ctx, []string{"one", "two", "three"})

	v.mu.Lock()
	verified := len(v.claims)
	v.mu.Unlock()
	if verified != 0 {
		t.Errorf("expected no verifications under a cancelled context, got %d", verified)
	}
	for _, r := range results {
		if r.GetError() == nil {
			t.Errorf("expected only errors under a cancelled context, got success for %q", r.Claim)
		}
	}
}

func TestBatchProcessor_EmptyInput(t *testing.T) {
	b := NewBatchProcessor(&mockVerifier{}, 2, 10, 5)
	results := b.ProcessClaims(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.txt")
	content := "claim one\nclaim two\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	b := NewBatchProcessor(&mockVerifier{}, 2, 1000, 100)
	results, err := b.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.txt")
	content := `# header comment
claim one

claim two
claim one
  claim three
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	want := []string{"claim one", "claim two", "claim three"}
	if !reflect.DeepEqual(claims, want) {
		t.Errorf("expected %v, got %v", want, claims)
	}
}

func TestReadClaimsFromFile_Missing(t *testing.T) {
	if _, err := ReadClaimsFromFile("/no/such/claims.txt"); err == nil {
		t.Error("expected error for missing file")
	}
}
