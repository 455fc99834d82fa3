package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/pipeline"
)

var (
	jsonOut      bool
	checkTimeout time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <claim>",
	Short: "Fact-check a single claim",
	Long: `Check searches for the claim, extracts evidence from trusted sources
and asks the configured language model for a verdict.

Example:
  claimcheck check "Vaccines cause autism"
  claimcheck check "The Great Wall is visible from space" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 3*time.Minute, "overall timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	claim := strings.TrimSpace(strings.Join(args, " "))
	if claim == "" {
		return fmt.Errorf("claim is empty")
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	p, err := pipeline.NewPipeline(cfg, logger, nil)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	result := p.Check(ctx, claim)

	if jsonOut {
		return renderJSON(cmd.OutOrStdout(), result)
	}
	return renderText(cmd.OutOrStdout(), result)
}
