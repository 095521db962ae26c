package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/response"
)

type authService interface {
	Login(ctx context.Context, req models.LoginRequest, meta models.RequestMeta) (*models.LoginResponse, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by login or email and password. Every attempt is written to the activity log.
// @Tags Authentication
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}
