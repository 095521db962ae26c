package service

import (
	"context"
	"database/sql"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/noah-isme/activity-log-api/internal/dto"
	"github.com/noah-isme/activity-log-api/internal/models"
	"github.com/noah-isme/activity-log-api/pkg/logger"
)

// Labels shown in place of an identity that cannot be resolved.
const (
	LabelGuest       = "Guest"
	LabelUserDeleted = "User Deleted"
)

// DefaultPreviewLength is the number of characters kept in a message preview.
const DefaultPreviewLength = 20

var severityClasses = map[string]string{
	models.SeverityLow:    "severity-low",
	models.SeverityMedium: "severity-medium",
	models.SeverityHigh:   "severity-high",
}

// SeverityClass maps a severity onto its display class. Unknown values map
// to the empty string.
func SeverityClass(severity string) string {
	return severityClasses[severity]
}

type identityLookup interface {
	Lookup(ctx context.Context, id int64) (*models.User, error)
}

// EventPresenter renders stored events into display rows.
type EventPresenter struct {
	users         identityLookup
	previewLength int
	logger        *zap.Logger
	markup        *bluemonday.Policy
	plain         *bluemonday.Policy
}

// NewEventPresenter constructs an EventPresenter.
func NewEventPresenter(users identityLookup, previewLength int, logger *zap.Logger) *EventPresenter {
	if previewLength <= 0 {
		previewLength = DefaultPreviewLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPresenter{
		users:         users,
		previewLength: previewLength,
		logger:        logger,
		markup:        bluemonday.UGCPolicy(),
		plain:         bluemonday.StrictPolicy(),
	}
}

// Present renders events in order. Identity lookups are shared across rows.
func (p *EventPresenter) Present(ctx context.Context, events []models.Event) []dto.EventRow {
	seen := make(map[int64]dto.EventUser)
	rows := make([]dto.EventRow, 0, len(events))
	for _, event := range events {
		rows = append(rows, p.row(ctx, event, seen))
	}
	return rows
}

func (p *EventPresenter) row(ctx context.Context, event models.Event, seen map[int64]dto.EventUser) dto.EventRow {
	preview, truncated := p.preview(event.Message)
	return dto.EventRow{
		ID:            event.ID,
		User:          p.identity(ctx, event.UserID, seen),
		IPAddress:     event.IPAddress,
		OccurredAt:    event.OccurredAt,
		ObjectType:    event.ObjectType,
		EventType:     event.EventType,
		Severity:      event.Severity,
		SeverityClass: SeverityClass(event.Severity),
		Preview:       preview,
		Truncated:     truncated,
		Message:       p.markup.Sanitize(event.Message),
	}
}

func (p *EventPresenter) identity(ctx context.Context, userID *int64, seen map[int64]dto.EventUser) dto.EventUser {
	if userID == nil {
		return dto.EventUser{Label: LabelGuest}
	}
	id := *userID
	if user, ok := seen[id]; ok {
		return user
	}

	resolved := dto.EventUser{ID: models.Int64Ptr(id), Label: LabelUserDeleted, Missing: true}
	user, err := p.users.Lookup(ctx, id)
	switch {
	case err == nil:
		resolved = dto.EventUser{
			ID:          models.Int64Ptr(id),
			Label:       user.Label(),
			Login:       user.Login,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Roles:       []string(user.Roles),
		}
	case errors.Is(err, sql.ErrNoRows):
	default:
		logger.FromContext(p.logger, ctx).Warn("identity lookup failed", zap.Int64("user_id", id), zap.Error(err))
	}

	seen[id] = resolved
	return resolved
}

// preview returns the first previewLength characters of the message as
// plain text and whether anything was cut.
func (p *EventPresenter) preview(message string) (string, bool) {
	text := strings.TrimSpace(html.UnescapeString(p.plain.Sanitize(message)))
	runes := []rune(text)
	if len(runes) <= p.previewLength {
		return html.EscapeString(text), false
	}
	return html.EscapeString(string(runes[:p.previewLength])), true
}
