package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AutomationKeyHeader carries the shared secret for automation endpoints.
// These endpoints are called by schedulers and ops tooling, not by
// operators, so they authenticate with an API key instead of a JWT.
const AutomationKeyHeader = "X-Automation-Key"

// APIKeyAuth returns middleware that requires the configured key in the
// X-Automation-Key header. The comparison is constant-time.
func APIKeyAuth(expectedKey string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expectedKey == "" {
			// No key configured means the endpoint is disabled
			abortUnauthorized(c, logger, "Automation endpoints are not configured")
			return
		}

		provided := c.GetHeader(AutomationKeyHeader)
		if provided == "" {
			abortUnauthorized(c, logger, "Missing automation key")
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(expectedKey)) != 1 {
			abortUnauthorized(c, logger, "Invalid automation key")
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, logger *zap.Logger, message string) {
	if logger != nil {
		logger.Warn("Automation key authentication failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("remote_addr", c.ClientIP()),
		)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
