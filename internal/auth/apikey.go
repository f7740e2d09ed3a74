// Package auth guards the admin surface. Regular app traffic is
// unauthenticated; the kiosk terminals run on a trusted network and users
// are identified by phone number at login.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const headerName = "X-Admin-Key"

// AdminKeyMiddleware validates the admin key from the X-Admin-Key header.
// If adminKey is empty, the admin routes are open (local development).
func AdminKeyMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader(headerName)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing admin key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid admin key",
			})
			return
		}

		c.Next()
	}
}
