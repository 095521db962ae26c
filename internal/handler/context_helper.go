package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/activity-log-api/internal/middleware"
	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

func requestMeta(c *gin.Context) models.RequestMeta {
	return models.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}
