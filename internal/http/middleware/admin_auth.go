// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// AdminAuth guards the /api/admin surface with a shared token carried in the
// X-Admin-Token header. Comparison is constant-time.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HeaderAdminToken is the header carrying the admin shared secret.
const HeaderAdminToken = "X-Admin-Token"

// AdminAuth returns a Gin middleware that rejects requests whose
// X-Admin-Token does not match token. An empty configured token disables the
// admin surface entirely (503), so a missing ADMIN_TOKEN can never mean
// "open".
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"code":    "admin_disabled",
				"message": "admin API is not configured",
			})
			return
		}
		got := c.GetHeader(HeaderAdminToken)
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "invalid admin token",
			})
			return
		}
		c.Next()
	}
}
