package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/guttosm/cryptonorm/internal/middleware"
)

// requestTimeout bounds every request; large uploads need more than a lookup.
const requestTimeout = 30 * time.Second

// NewRouter creates a Gin engine with routes configured.
//
// Responsibilities:
//   - Registers global middlewares (RequestID, Logger, Recovery, ErrorHandler, RateLimiter).
//   - Adds request timeout handling.
//   - Mounts Swagger docs (/swagger/*any).
//   - Configures API v1 routes (/api/v1).
//
// Note:
//   - Health and readiness endpoints (/healthz, /readyz) are registered in app.InitializeApp().
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(),
	)

	// ─── Timeout ──────────────────────────────────
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// ─── Swagger ──────────────────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	{
		v1.POST("/imports", handler.CreateImport)
		v1.GET("/imports/:id", handler.GetImport)
		v1.GET("/imports/:id/transactions", handler.ListRecords)
		v1.POST("/normalize", handler.Normalize)
		v1.GET("/formats", handler.ListFormats)
	}

	return router
}
