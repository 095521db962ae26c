package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/activity-log-api/internal/dto"
	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
	"github.com/noah-isme/activity-log-api/pkg/logger"
)

// BulkActionDelete is the only bulk action that changes state.
const BulkActionDelete = "delete"

type eventStore interface {
	Insert(ctx context.Context, draft models.EventDraft) (int64, error)
	CountMatching(ctx context.Context, filter models.EventFilter) (int, error)
	SelectPage(ctx context.Context, filter models.EventFilter, sort models.EventSort, window models.PageWindow) ([]models.Event, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// EventListResult is one rendered page of the activity log.
type EventListResult struct {
	Rows       []dto.EventRow
	Pagination *models.Pagination
	Filter     models.EventFilter
	Sort       models.EventSort
}

// EventService records, lists and deletes activity events.
type EventService struct {
	store     eventStore
	filters   *FilterBuilder
	presenter *EventPresenter
	metrics   *MetricsService
	logger    *zap.Logger
	pageSize  int
	now       func() time.Time
}

// NewEventService constructs an EventService.
func NewEventService(store eventStore, filters *FilterBuilder, presenter *EventPresenter, metrics *MetricsService, logger *zap.Logger, pageSize int) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return &EventService{
		store:     store,
		filters:   filters,
		presenter: presenter,
		metrics:   metrics,
		logger:    logger,
		pageSize:  pageSize,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns the page of events selected by params.
func (s *EventService) List(ctx context.Context, params url.Values) (*EventListResult, error) {
	filter, err := s.filters.Build(ctx, params)
	if err != nil {
		return nil, err
	}
	sort := NormalizeSort(params.Get(ParamOrderBy), params.Get(ParamOrder))
	window := models.NewPageWindow(RequestedPage(params), s.pageSize)

	start := time.Now()
	total, err := s.store.CountMatching(ctx, filter)
	s.metrics.ObserveDBQuery("events_count", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count events")
	}

	start = time.Now()
	events, err := s.store.SelectPage(ctx, filter, sort, window)
	s.metrics.ObserveDBQuery("events_select", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	return &EventListResult{
		Rows:       s.presenter.Present(ctx, events),
		Pagination: models.NewPagination(window, total),
		Filter:     filter,
		Sort:       sort,
	}, nil
}

// Record appends one event to the log and returns its id.
func (s *EventService) Record(ctx context.Context, draft models.EventDraft) (int64, error) {
	draft.ObjectType = strings.TrimSpace(draft.ObjectType)
	draft.EventType = strings.TrimSpace(draft.EventType)
	if draft.ObjectType == "" || draft.EventType == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "object type and event type are required")
	}
	if draft.Severity == "" {
		draft.Severity = models.SeverityLow
	}
	if draft.OccurredAt.IsZero() {
		draft.OccurredAt = s.now()
	}
	draft.Message = truncateRunes(draft.Message, models.MaxMessageLength)

	id, err := s.store.Insert(ctx, draft)
	if err != nil {
		logger.FromContext(s.logger, ctx).Error("record event failed",
			zap.String("object_type", draft.ObjectType),
			zap.String("event_type", draft.EventType),
			zap.Error(err),
		)
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record event")
	}
	s.metrics.EventRecorded(draft.ObjectType, draft.EventType)
	return id, nil
}

// RecordLogin records a sign-in attempt.
func (s *EventService) RecordLogin(ctx context.Context, attempt LoginAttempt) error {
	if attempt.At.IsZero() {
		attempt.At = s.now()
	}
	_, err := s.Record(ctx, attempt.Draft())
	return err
}

// RecordUserChange records an account change.
func (s *EventService) RecordUserChange(ctx context.Context, change UserChange) error {
	if change.At.IsZero() {
		change.At = s.now()
	}
	_, err := s.Record(ctx, change.Draft())
	return err
}

// RecordPostTransition records a post status change. recorded is false when
// the transition is not logged.
func (s *EventService) RecordPostTransition(ctx context.Context, transition PostTransition) (id int64, recorded bool, err error) {
	if transition.At.IsZero() {
		transition.At = s.now()
	}
	draft, ok := transition.Draft()
	if !ok {
		return 0, false, nil
	}
	id, err = s.Record(ctx, draft)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// BulkAction applies action to the events in ids. Only the exact action
// "delete" has an effect; it returns how many events were actually removed.
func (s *EventService) BulkAction(ctx context.Context, action string, ids []int64) (int64, error) {
	if action != BulkActionDelete {
		return 0, nil
	}
	targets := normalizeIDs(ids)
	if len(targets) == 0 {
		return 0, nil
	}

	start := time.Now()
	deleted, err := s.store.DeleteByIDs(ctx, targets)
	s.metrics.ObserveDBQuery("events_delete", time.Since(start))
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete events")
	}
	s.metrics.EventsDeleted(deleted)
	return deleted, nil
}

func normalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
