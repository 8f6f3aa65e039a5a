package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// readyTimeout bounds the dependency check of /readyz.
const readyTimeout = 2 * time.Second

// HealthHandler provides liveness and readiness endpoints for the service.
//
// Responsibilities:
//   - /healthz: Basic liveness probe (always returns 200 OK).
//   - /readyz: Readiness probe (depends on database connectivity).
type HealthHandler struct {
	ping func(ctx context.Context) error
}

// NewHealthHandler constructs a HealthHandler. ping checks the storage
// backend and may be nil when the process runs without one.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// Register mounts the health and readiness endpoints into r.
//
// Routes:
//   - GET /healthz: Always returns 200 OK.
//   - GET /readyz: Returns 200 OK if ping succeeds, 503 otherwise.
func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
}

// Healthz godoc
// @Summary      Liveness probe
// @Description  Always returns OK if the service is running
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func (h *HealthHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz godoc
// @Summary      Readiness probe
// @Description  Returns ready if the service dependencies (DB) are reachable
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /readyz [get]
func (h *HealthHandler) Readyz(c *gin.Context) {
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
