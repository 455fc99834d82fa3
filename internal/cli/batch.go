package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/worker"
)

var (
	concurrent   bool
	batchJSON    bool
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Fact-check claims read from a file",
	Long: `Batch reads one claim per line. Blank lines and lines starting with '#'
are skipped and duplicates are dropped. Results are printed in input order.

By default claims are checked one after another and an interrupt stops the
batch between claims. With --concurrent every claim is checked in parallel,
bounded by concurrency.claim_workers.

Example:
  claimcheck batch claims.txt
  claimcheck batch claims.txt --concurrent --json > results.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().BoolVar(&concurrent, "concurrent", false, "check all claims in parallel")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print results as a JSON array")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
}

func runBatch(cmd *cobra.Command, args []string) error {
	claims, err := worker.ReadClaimsFromFile(args[0])
	if err != nil {
		return fmt.Errorf("read claims: %w", err)
	}
	if len(claims) == 0 {
		return fmt.Errorf("no claims in %s", args[0])
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	p, err := pipeline.NewPipeline(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	logger.Info("starting batch", "file", args[0], "claims", len(claims), "concurrent", concurrent)

	var results []*model.FactCheckResult
	if concurrent {
		results = p.RunConcurrent(ctx, claims)
	} else {
		results = p.RunSequential(ctx, claims)
	}

	out := cmd.OutOrStdout()
	if batchJSON {
		if err := renderJSONList(out, results); err != nil {
			return err
		}
		return interrupted(ctx)
	}

	for _, r := range results {
		if err := renderText(out, r); err != nil {
			return err
		}
	}
	if err := renderSummary(out, results); err != nil {
		return err
	}

	return interrupted(ctx)
}

// interrupted reports a batch cut short; unreached claims carry ERROR results
func interrupted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	return nil
}
