package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"catalog-service/internal/models"
)

// AdminAuth guards the admin API with a shared token carried in the
// X-Admin-Token header. An unconfigured token locks the admin surface
// entirely rather than leaving it open.
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "ADMIN_API_DISABLED",
					Message: "Admin API is not configured",
				},
			})
			c.Abort()
			return
		}

		provided := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(adminToken)) != 1 {
			c.JSON(http.StatusUnauthorized, models.ErrorResponse{
				Success: false,
				Error: models.Error{
					Code:    "UNAUTHORIZED",
					Message: "Invalid or missing admin token",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
