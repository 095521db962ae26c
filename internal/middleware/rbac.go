package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/response"
)

// RoleSelf lets a user reach routes whose :id is their own.
const RoleSelf = "SELF"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make([]models.UserRole, 0, len(allowed))
	for _, a := range allowed {
		if a == RoleSelf {
			allowSelf = true
			continue
		}
		allowedRoles = append(allowedRoles, models.UserRole(a))
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			reject(c, appErrors.ErrUnauthorized)
			return
		}

		if claims.HasAnyRole(allowedRoles...) {
			c.Next()
			return
		}

		if allowSelf {
			if targetID, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
