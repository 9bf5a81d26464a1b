package middlewares

import (
	"net/http"

	"github.com/clubstack/memberhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)

		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}
		if u.Role != required {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "Admin role required",
				},
			})
			return
		}
		c.Next()
	}
}
