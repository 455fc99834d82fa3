package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/observability"
	"github.com/ppiankov/claimcheck/internal/pipeline"
	"github.com/ppiankov/claimcheck/internal/publisher"
	"github.com/ppiankov/claimcheck/internal/scheduler"
	"github.com/ppiankov/claimcheck/internal/store"
	"github.com/ppiankov/claimcheck/internal/webhook"
)

var (
	runOnce     bool
	metricsAddr string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Verify stored claims in a background cycle",
	Long: `Run drains the claim store in a loop. Each cycle fetches every
unverified claim, checks it, delivers the result to the backend webhook,
optionally publishes it to RabbitMQ, and marks the claim verified.

SIGINT or SIGTERM stops the loop between claims; a claim that is being
checked is finished first.

Example:
  claimcheck run
  claimcheck run --once
  claimcheck run --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runCycle(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, metrics := newRegistry()

	p, err := pipeline.NewPipeline(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	claims, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open claim store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := claims.Close(closeCtx); err != nil {
			logger.Warn("close claim store", "error", err)
		}
	}()

	var deliverer scheduler.Deliverer
	if cfg.Webhook.BaseURL != "" {
		client, err := webhook.NewClient(cfg.Webhook, logger)
		if err != nil {
			return fmt.Errorf("create webhook client: %w", err)
		}
		deliverer = client
	} else {
		logger.Warn("webhook.base_url is empty, results will not be delivered")
	}

	var pub scheduler.Publisher
	if cfg.Publisher.Enabled {
		rabbit, err := publisher.NewRabbitMQ(cfg.Publisher, logger)
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		defer func() { _ = rabbit.Close() }()
		pub = rabbit
	}

	cycle := scheduler.NewCycle(claims, p, deliverer, pub, cfg.Cycle, logger)
	cycle.SetMetrics(metrics)

	if metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, reg, logger)
	}

	if runOnce {
		stats, err := cycle.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("cycle: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "fetched=%d checked=%d delivered=%d duplicates=%d failed=%d published=%d marked=%d errors=%d duration=%s\n",
			stats.Fetched, stats.Checked, stats.Delivered, stats.Duplicates, stats.DeliveryFailed,
			stats.Published, stats.Marked, stats.Errors, stats.Duration.Round(time.Millisecond))
		return nil
	}

	logger.Info("starting verification loop",
		"interval", cfg.Cycle.Interval,
		"mark_policy", cfg.Cycle.MarkPolicy,
		"concurrent", cfg.Cycle.Concurrent)

	err = scheduler.NewScheduler(cycle, cfg.Cycle.Interval, cfg.Cycle.ErrorBackoff, logger).Start(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("verification loop stopped")
		return nil
	}
	return err
}

// serveMetrics exposes reg until ctx is cancelled
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}

// newRegistry returns a registry with the runtime collectors and the
// application metrics registered
func newRegistry() (*prometheus.Registry, *observability.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, observability.NewMetrics(reg)
}
