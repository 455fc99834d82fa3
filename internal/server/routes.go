package server

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the API routes.
//
//	POST /v1/check        - Check one claim
//	POST /v1/check/batch  - Check many claims, sequentially or concurrently
//	GET  /healthz         - Liveness
func RegisterRoutes(r gin.IRouter, h *Handlers) {
	v1 := r.Group("/v1")
	v1.POST("/check", h.HandleCheck)
	v1.POST("/check/batch", h.HandleBatch)

	r.GET("/healthz", h.HandleHealth)
}
