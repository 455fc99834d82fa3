package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ppiankov/claimcheck/internal/model"
)

// Batch modes
const (
	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

// CheckRequest is the body of POST /v1/check
type CheckRequest struct {
	Claim string `json:"claim"`
}

// BatchRequest is the body of POST /v1/check/batch
type BatchRequest struct {
	Claims []string `json:"claims"`
	Mode   string   `json:"mode"`
}

// ResultResponse is a fact-check result with diagnostics next to the
// backend wire fields
type ResultResponse struct {
	*model.FactCheckResult
	RawVerdict string    `json:"raw_verdict"`
	Confidence float64   `json:"confidence"`
	KeyQuotes  string    `json:"key_quotes,omitempty"`
	Status     string    `json:"status"`
	CheckedAt  time.Time `json:"checked_at"`
}

// BatchResponse is the body returned by POST /v1/check/batch
type BatchResponse struct {
	Mode    string           `json:"mode"`
	Count   int              `json:"count"`
	Results []ResultResponse `json:"results"`
}

// HealthResponse is the body returned by GET /healthz
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handlers holds the HTTP handlers
type Handlers struct {
	checker    Checker
	batchLimit int
	version    string
	logger     *slog.Logger
}

// NewHandlers creates the handlers. batchLimit caps claims per batch
// request; zero or less means 50.
func NewHandlers(checker Checker, batchLimit int, version string, logger *slog.Logger) *Handlers {
	if batchLimit <= 0 {
		batchLimit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{checker: checker, batchLimit: batchLimit, version: version, logger: logger}
}

// HandleCheck handles POST /v1/check
func (h *Handlers) HandleCheck(c *gin.Context) {
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", "HandleCheck")

	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	claim := strings.TrimSpace(req.Claim)
	if claim == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "claim is required", Code: "EMPTY_CLAIM"})
		return
	}

	result := h.checker.Check(c.Request.Context(), claim)
	c.JSON(http.StatusOK, toResponse(result))
}

// HandleBatch handles POST /v1/check/batch
func (h *Handlers) HandleBatch(c *gin.Context) {
	logger := h.logger.With("request_id", getOrCreateRequestID(c), "handler", "HandleBatch")

	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body", Code: "INVALID_REQUEST"})
		return
	}

	if len(req.Claims) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "claims are required", Code: "EMPTY_BATCH"})
		return
	}

	// Results line up with the request, so a blank entry cannot be skipped
	claims := make([]string, len(req.Claims))
	for i, claim := range req.Claims {
		claims[i] = strings.TrimSpace(claim)
		if claims[i] == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("claims[%d] is empty", i),
				Code:  "EMPTY_CLAIM",
			})
			return
		}
	}
	if len(claims) > h.batchLimit {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error: "too many claims in one batch",
			Code:  "BATCH_TOO_LARGE",
		})
		return
	}

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	var results []*model.FactCheckResult
	switch mode {
	case "", ModeSequential:
		mode = ModeSequential
		results = h.checker.RunSequential(c.Request.Context(), claims)
	case ModeConcurrent:
		results = h.checker.RunConcurrent(c.Request.Context(), claims)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "mode must be sequential or concurrent", Code: "INVALID_MODE"})
		return
	}

	logger.Info("batch checked", "mode", mode, "claims", len(claims), "results", len(results))

	resp := BatchResponse{Mode: mode, Count: len(results), Results: make([]ResultResponse, 0, len(results))}
	for _, r := range results {
		resp.Results = append(resp.Results, toResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /healthz
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Version: h.version})
}

func toResponse(r *model.FactCheckResult) ResultResponse {
	return ResultResponse{
		FactCheckResult: r,
		RawVerdict:      r.Raw.Verdict,
		Confidence:      float64(r.Raw.Confidence),
		KeyQuotes:       string(r.Raw.KeyQuotes),
		Status:          string(r.Status),
		CheckedAt:       r.CheckedAt,
	}
}

func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
