package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireCronSecret guards internal endpoints invoked by the external
// scheduler. An empty configured secret disables the routes outright rather
// than leaving them open.
func RequireCronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "cron endpoints are disabled"})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Cron-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid cron secret"})
			c.Abort()
			return
		}

		c.Next()
	}
}
