package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/activity-log-api/internal/models"
)

const eventColumns = "id, user_id, ip_address, occurred_at, object_type, event_type, severity, message"

// sortExpressions maps the sortable keys to SQL. Nothing else may reach ORDER BY.
var sortExpressions = map[string]string{
	models.SortEventTime:  "occurred_at",
	models.SortSeverity:   "CASE severity WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END",
	models.SortEventType:  "event_type",
	models.SortObjectType: "object_type",
}

// EventRepository persists and queries activity_events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert stores a draft and returns the id assigned by the database.
func (r *EventRepository) Insert(ctx context.Context, draft models.EventDraft) (int64, error) {
	query := r.db.Rebind(`INSERT INTO activity_events (user_id, ip_address, occurred_at, object_type, event_type, severity, message) VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	var id int64
	if err := r.db.GetContext(ctx, &id, query,
		draft.UserID,
		draft.IPAddress,
		draft.OccurredAt,
		draft.ObjectType,
		draft.EventType,
		draft.Severity,
		draft.Message,
	); err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// CountMatching returns the number of events satisfying filter.
func (r *EventRepository) CountMatching(ctx context.Context, filter models.EventFilter) (int, error) {
	preds := eventPredicates(filter)
	query, args, err := bind(r.db, "SELECT COUNT(*) FROM activity_events"+preds.where(), preds.args)
	if err != nil {
		return 0, fmt.Errorf("build count events query: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return total, nil
}

// SelectPage returns one window of events satisfying filter in the requested order.
func (r *EventRepository) SelectPage(ctx context.Context, filter models.EventFilter, sort models.EventSort, window models.PageWindow) ([]models.Event, error) {
	preds := eventPredicates(filter)
	raw := fmt.Sprintf("SELECT %s FROM activity_events%s ORDER BY %s LIMIT ? OFFSET ?", eventColumns, preds.where(), orderBy(sort))
	args := append(preds.args, window.Size, window.Offset)

	query, args, err := bind(r.db, raw, args)
	if err != nil {
		return nil, fmt.Errorf("build list events query: %w", err)
	}

	events := []models.Event{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// DeleteOlderThan removes events that occurred before cutoff.
func (r *EventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM activity_events WHERE occurred_at < ?"), cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune events rows affected: %w", err)
	}
	return affected, nil
}

// DeleteByIDs removes the given events and reports how many rows went away.
// Unknown ids are ignored.
func (r *EventRepository) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := bind(r.db, "DELETE FROM activity_events WHERE id IN (?)", []interface{}{ids})
	if err != nil {
		return 0, fmt.Errorf("build delete events query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete events rows affected: %w", err)
	}
	return affected, nil
}

func eventPredicates(filter models.EventFilter) predicateSet {
	var preds predicateSet

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := containsPattern(search)
		preds.add("(LOWER(ip_address) LIKE ? OR LOWER(event_type) LIKE ? OR LOWER(object_type) LIKE ? OR LOWER(message) LIKE ?)",
			pattern, pattern, pattern, pattern)
	}
	if filter.DateFrom != nil {
		preds.add("CAST(occurred_at AS DATE) >= CAST(? AS DATE)", filter.DateFrom.Format(models.DateLayout))
	}
	if filter.DateTo != nil {
		preds.add("CAST(occurred_at AS DATE) <= CAST(? AS DATE)", filter.DateTo.Format(models.DateLayout))
	}
	if filter.UserID != nil && *filter.UserID > 0 {
		preds.add("user_id = ?", *filter.UserID)
	}
	if filter.HasRole() {
		if len(filter.RoleUserIDs) == 0 {
			preds.add("1 = 0")
		} else {
			preds.add("user_id IN (?)", filter.RoleUserIDs)
		}
	}

	return preds
}

func orderBy(sort models.EventSort) string {
	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	expr, ok := sortExpressions[sort.Column]
	if !ok {
		return "id " + dir
	}
	return fmt.Sprintf("%s %s, id %s", expr, dir, dir)
}
