// admin.go gates the admin-only endpoints behind a shared secret.
//
// Go Pattern: Middleware in Gin is a gin.HandlerFunc that calls c.Next() to
// continue the chain or c.Abort() to stop it. The admin token is a plain
// server-side secret compared against the X-Admin-Token header; there is no
// user identity system to hang real roles off (identity here is an opaque,
// unverified client token).
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pdfden/pdf-tools-api/internal/models"
)

// AdminAuth returns middleware that validates the X-Admin-Token header
// against the configured token. An empty configured token disables the
// endpoints entirely rather than leaving them open.
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader("X-Admin-Token")
		if adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(supplied), []byte(adminToken)) != 1 {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Error:   "unauthorized",
				Message: "Admin token missing or invalid",
				Code:    http.StatusUnauthorized,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
