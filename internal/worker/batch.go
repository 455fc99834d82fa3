package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Checker fact-checks a single claim
type Checker interface {
	Check(ctx context.Context, text string) *model.FactCheckResult
}

// CheckJob checks one claim
type CheckJob struct {
	Claim   string
	Checker Checker
}

// Execute runs the check
func (j *CheckJob) Execute(ctx context.Context) Result {
	return &CheckResult{
		Claim:  j.Claim,
		Result: j.Checker.Check(ctx, j.Claim),
	}
}

// CheckResult is the outcome of one CheckJob
type CheckResult struct {
	Claim  string
	Result *model.FactCheckResult
	Error  error
}

// GetError returns the job error
func (r *CheckResult) GetError() error {
	return r.Error
}

// BatchProcessor checks many claims concurrently
type BatchProcessor struct {
	checker     Checker
	concurrency int
}

// NewBatchProcessor creates a batch processor. A non-positive concurrency
// runs one worker per claim.
func NewBatchProcessor(checker Checker, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		checker:     checker,
		concurrency: concurrency,
	}
}

// ProcessClaims checks every claim and returns results in input order.
// A claim whose job panicked or never ran gets a CheckResult carrying the error.
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*CheckResult {
	if len(claims) == 0 {
		return []*CheckResult{}
	}

	workers := b.concurrency
	if workers <= 0 || workers > len(claims) {
		workers = len(claims)
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	for _, claim := range claims {
		pool.Submit(&CheckJob{
			Claim:   claim,
			Checker: b.checker,
		})
	}

	results := pool.Wait()

	checked := make([]*CheckResult, len(claims))
	for i, result := range results {
		switch r := result.(type) {
		case *CheckResult:
			checked[i] = r
		case *PanicResult:
			checked[i] = &CheckResult{Claim: claims[i], Error: r.Err}
		default:
			err := ctx.Err()
			if err == nil {
				err = errors.New("claim was not processed")
			}
			checked[i] = &CheckResult{Claim: claims[i], Error: err}
		}
	}

	return checked
}

// ReadClaimsFromFile reads claims from a file, one per line
func ReadClaimsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadClaims(file)
}

// ReadClaims reads one claim per line. Blank lines and lines starting with
// '#' are skipped, duplicates are dropped, and first-seen order is kept.
func ReadClaims(r io.Reader) ([]string, error) {
	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
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
		return nil, fmt.Errorf("scan claims: %w", err)
	}

	return claims, nil
}
