package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextInternalCaller is set to true once a request passed InternalAuthMiddleware.
const ContextInternalCaller = "internalCaller"

// InternalAuthMiddleware guards machine-to-machine endpoints such as the
// scheduled recurring-transaction run. Callers present the shared key in the
// X-API-Key header. An empty configured key disables the endpoints entirely.
func InternalAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": gin.H{"code": "INTERNAL_API_NOT_CONFIGURED", "message": "Internal endpoints are not configured"}})
			return
		}
		key := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": gin.H{"code": "INVALID_API_KEY", "message": "Invalid or missing API key"}})
			return
		}
		c.Set(ContextInternalCaller, true)
		c.Next()
	}
}
