package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/middleware/requestid"
)

// Envelope is the body of every API response.
type Envelope struct {
	Data       interface{}            `json:"data,omitempty"`
	Error      *appErrors.Error       `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends data with optional pagination and meta. Activity data is never
// cacheable.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Data: data, Pagination: pagination}
	if len(meta) > 0 && meta[0] != nil {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data, nil)
}

// Error converts err to the envelope error shape. The original error is
// attached to the context for the request logger and the request id is echoed
// in meta so clients can quote it.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		appErr = appErrors.ErrInternal
	} else {
		_ = c.Error(err)
	}

	envelope := Envelope{Error: appErr}
	if reqID := requestid.Value(c); reqID != "" {
		envelope.Meta = map[string]interface{}{"request_id": reqID}
	}
	noStore(c)
	c.JSON(appErr.Status, envelope)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
