package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// Pinger is an optional dependency checked by the deep health endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendInfo describes a configured generation backend
type BackendInfo struct {
	Model      string
	Configured bool
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	primary  BackendInfo
	fallback BackendInfo
	deps     map[string]Pinger
}

// NewHealthHandler creates a new health handler. deps may contain nil
// values for dependencies that are not configured.
func NewHealthHandler(primary, fallback BackendInfo, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{primary: primary, fallback: fallback, deps: deps}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string `json:"status"`
	PrimaryModel     string `json:"primary_model"`
	FallbackModel    string `json:"fallback_model"`
	APIKeyConfigured bool   `json:"api_key_configured"`
}

// DeepHealthResponse adds the state of optional dependencies
type DeepHealthResponse struct {
	HealthResponse
	Dependencies map[string]string `json:"dependencies"`
}

// Health reports the configured models
//
// @Summary  Service health
// @Tags     health
// @Produce  json
// @Success  200  {object}  HealthResponse
// @Router   /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.basic())
}

func (h *HealthHandler) basic() HealthResponse {
	status := "healthy"
	if !h.primary.Configured || !h.fallback.Configured {
		status = "degraded"
	}
	return HealthResponse{
		Status:           status,
		PrimaryModel:     h.primary.Model,
		FallbackModel:    h.fallback.Model,
		APIKeyConfigured: h.primary.Configured || h.fallback.Configured,
	}
}

// DeepHealth returns health status with dependency checks
//
// @Summary  Service health including optional dependencies
// @Tags     health
// @Produce  json
// @Success  200  {object}  DeepHealthResponse
// @Failure  503  {object}  DeepHealthResponse
// @Router   /health/deep [get]
func (h *HealthHandler) DeepHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := DeepHealthResponse{
		HealthResponse: h.basic(),
		Dependencies:   make(map[string]string, len(h.deps)),
	}
	allHealthy := resp.Status == "healthy"

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name, dep := range h.deps {
		if dep == nil {
			mu.Lock()
			resp.Dependencies[name] = "not configured"
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			state := "healthy"
			if err := dep.Ping(gctx); err != nil {
				state = "unhealthy: " + err.Error()
			}
			mu.Lock()
			resp.Dependencies[name] = state
			if state != "healthy" {
				allHealthy = false
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	httpStatus := http.StatusOK
	if !allHealthy {
		resp.Status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, resp)
}
