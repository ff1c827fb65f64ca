package middleware

import (
	"crypto/subtle"
	"net/http"

	"lingodoc/config"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards privileged routes with the configured admin API
// key. The key travels in the X-Admin-Key header.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Admin-Key")
		expected := config.AppConfig.AdminAPIKey
		if expected == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		c.Next()
	}
}
