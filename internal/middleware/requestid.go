package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID is a Gin middleware that injects a unique identifier
// for each incoming HTTP request.
//
// An incoming X-Request-ID header is reused when it is a valid UUID; otherwise
// a new v4 UUID is generated. The id is stored in the Gin context under
// RequestIDKey and echoed in the X-Request-ID response header.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID())
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}
