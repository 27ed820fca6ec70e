package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/models"
	appErrors "github.com/palace-events/events-api/pkg/errors"
	"github.com/palace-events/events-api/pkg/response"
)

// RequireRoles admits callers whose session role is one of roles. It must run after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed[role] = true
		names = append(names, string(role))
	}
	denied := appErrors.Clone(appErrors.ErrForbidden, "requires role: "+strings.Join(names, ", "))

	return func(c *gin.Context) {
		claims, ok := claimsFromContext(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "sign in required"))
			c.Abort()
			return
		}
		if !allowed[claims.Role] {
			response.Error(c, denied)
			c.Abort()
			return
		}
		c.Next()
	}
}
