// Package server exposes the fact-check pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/claimcheck/internal/model"
)

const shutdownTimeout = 10 * time.Second

// Checker is the pipeline as seen by the HTTP handlers
type Checker interface {
	Check(ctx context.Context, text string) *model.FactCheckResult
	RunSequential(ctx context.Context, texts []string) []*model.FactCheckResult
	RunConcurrent(ctx context.Context, texts []string) []*model.FactCheckResult
}

// Server serves the fact-check API
type Server struct {
	addr     string
	engine   *gin.Engine
	handlers *Handlers
	logger   *slog.Logger
}

// New builds the router. gatherer backs GET /metrics and may be nil.
func New(cfg model.ServerConfig, checker Checker, gatherer prometheus.Gatherer, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	handlers := NewHandlers(checker, cfg.BatchLimit, version, logger)
	RegisterRoutes(engine, handlers)

	if gatherer != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &Server{addr: addr, engine: engine, handlers: handlers, logger: logger}
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return ctx.Err()
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", c.Writer.Header().Get("X-Request-ID"),
			"duration", time.Since(start),
		)
	}
}
