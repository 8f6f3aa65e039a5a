package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/cryptonorm/internal/logger"
)

// RecoveryMiddleware recovers from panics raised by handlers.
//
// The panic value and stack are logged with the request id; the client gets
// a 500 dto.ErrorResponse.
//
// Example:
//
//	router := gin.New()
//	router.Use(middleware.RecoveryMiddleware())
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				rid, _ := c.Get(RequestIDKey)
				logger.L().Error().
					Str("request_id", toString(rid)).
					Str("path", c.Request.URL.Path).
					Str("panic", fmt.Sprintf("%v", r)).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				AbortWithError(c, http.StatusInternalServerError, "Internal server error", fmt.Errorf("%v", r))
			}
		}()

		c.Next()
	}
}
