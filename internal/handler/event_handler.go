package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/activity-log-api/internal/dto"
	"github.com/noah-isme/activity-log-api/internal/models"
	"github.com/noah-isme/activity-log-api/internal/service"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/logger"
	"github.com/noah-isme/activity-log-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context, params url.Values) (*service.EventListResult, error)
	BulkAction(ctx context.Context, action string, ids []int64) (int64, error)
	RecordPostTransition(ctx context.Context, transition service.PostTransition) (int64, bool, error)
}

// EventHandler exposes the activity log.
type EventHandler struct {
	service   eventService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc eventService, validate *validator.Validate, log *zap.Logger) *EventHandler {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &EventHandler{service: svc, validator: validate, logger: log}
}

// List godoc
// @Summary List activity events
// @Description Filtered, sorted and paginated view of the activity log
// @Tags Events
// @Produce json
// @Param s query string false "Search term"
// @Param from_date query string false "Earliest day, YYYY-MM-DD"
// @Param to_date query string false "Latest day, YYYY-MM-DD"
// @Param filter_role query string false "Only events by users holding this role"
// @Param filter_user query int false "Only events by this user"
// @Param orderby query string false "event_time, severity, event_type or object_type"
// @Param order query string false "asc or desc"
// @Param paged query int false "Page number"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	result, err := h.service.List(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		response.Error(c, err)
		return
	}

	order := "desc"
	if !result.Sort.Descending {
		order = "asc"
	}
	response.JSON(c, http.StatusOK, result.Rows, result.Pagination, map[string]interface{}{
		"orderby": result.Sort.Column,
		"order":   order,
	})
}

// Bulk godoc
// @Summary Apply a bulk action to events
// @Description Deletes the selected events when action is "delete"; other actions are ignored
// @Tags Events
// @Accept json
// @Accept x-www-form-urlencoded
// @Produce json
// @Param payload body dto.BulkActionRequest true "Bulk action"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events/bulk [post]
func (h *EventHandler) Bulk(c *gin.Context) {
	req, err := bindBulkRequest(c)
	if err != nil {
		response.Error(c, appErrors.Validation(err, "invalid bulk action payload"))
		return
	}

	deleted, err := h.service.BulkAction(c.Request.Context(), req.Action, req.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	if deleted > 0 {
		fields := []zap.Field{zap.String("action", req.Action), zap.Int64("deleted", deleted)}
		if claims := claimsFromContext(c); claims != nil {
			fields = append(fields, zap.Int64("actor_id", claims.UserID))
		}
		logger.ForRequest(h.logger, c).Info("events deleted", fields...)
	}

	response.JSON(c, http.StatusOK, dto.BulkActionResponse{Action: req.Action, Deleted: deleted}, nil)
}

// RecordPost godoc
// @Summary Record a post status change
// @Description Writes an event for a post transition; ignored transitions return 204
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body dto.PostTransitionRequest true "Transition"
// @Success 201 {object} response.Envelope
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /events/posts [post]
func (h *EventHandler) RecordPost(c *gin.Context) {
	var req dto.PostTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid post transition"))
		return
	}

	transition := service.PostTransition{
		IP:        c.ClientIP(),
		PostID:    req.PostID,
		PostTitle: req.PostTitle,
		PostType:  req.PostType,
		OldStatus: req.OldStatus,
		NewStatus: req.NewStatus,
	}
	if claims := claimsFromContext(c); claims != nil {
		transition.ActorID = models.Int64Ptr(claims.UserID)
	}

	id, recorded, err := h.service.RecordPostTransition(c.Request.Context(), transition)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !recorded {
		response.NoContent(c)
		return
	}
	response.Created(c, dto.RecordedEvent{ID: id})
}

// bindBulkRequest accepts JSON bodies or form posts using id or id[].
func bindBulkRequest(c *gin.Context) (dto.BulkActionRequest, error) {
	var req dto.BulkActionRequest
	if c.ContentType() == gin.MIMEJSON {
		err := c.ShouldBindJSON(&req)
		return req, err
	}

	if err := c.Request.ParseForm(); err != nil {
		return req, err
	}
	req.Action = c.Request.PostForm.Get("action")
	for _, key := range []string{"id", "id[]"} {
		for _, raw := range c.Request.PostForm[key] {
			if id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
				req.IDs = append(req.IDs, id)
			}
		}
	}
	return req, nil
}
