package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key (and response header) holding the
// per-request correlation id.
const RequestIDKey = "request_id"

// RequestID attaches a correlation id to every request. An incoming
// X-Request-ID header is honored so gateway-assigned ids survive; otherwise
// a fresh UUID is generated. The id is echoed back in the response header
// and picked up by Logger and ErrorHandler.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
