package middleware

import (
	"crypto/subtle" // Constant-time comparison
	"net/http"      // HTTP status codes

	"github.com/gin-gonic/gin" // Gin web framework
)

// AdminTokenMiddleware gates admin payment endpoints behind a shared-secret
// header. The comparison is constant-time so the token cannot be recovered
// byte by byte through timing.
func AdminTokenMiddleware(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader("X-Admin-Token") // Get admin token header
		// Compare against the configured secret in constant time
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(adminToken)) != 1 {
			// If mismatched or missing, abort with unauthorized status
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next() // Proceed to the next handler
	}
}
