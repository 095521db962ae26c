package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

const bearerChallenge = `Bearer realm="activity-log"`

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT requires a bearer access token and stores its claims on the context.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, found := strings.Cut(strings.TrimSpace(c.GetHeader("Authorization")), " ")
		token = strings.TrimSpace(token)
		switch {
		case scheme == "":
			reject(c, appErrors.ErrUnauthorized)
			return
		case !found || token == "" || !strings.EqualFold(scheme, "Bearer"):
			reject(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			reject(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// Claims returns the access token claims stored by JWT, or nil.
func Claims(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

func reject(c *gin.Context, err error) {
	c.Header("WWW-Authenticate", bearerChallenge)
	response.Error(c, err)
	c.Abort()
}
