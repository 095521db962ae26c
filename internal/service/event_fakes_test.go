package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/activity-log-api/internal/models"
	appErrors "github.com/noah-isme/activity-log-api/pkg/errors"
)

// memEventStore keeps events in memory and applies the same filter and
// ordering rules as the SQL repository.
type memEventStore struct {
	events    []models.Event
	nextID    int64
	insertErr error
	countErr  error
}

func (m *memEventStore) Insert(ctx context.Context, draft models.EventDraft) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.nextID++
	m.events = append(m.events, models.Event{
		ID:         m.nextID,
		UserID:     draft.UserID,
		IPAddress:  draft.IPAddress,
		OccurredAt: draft.OccurredAt,
		ObjectType: draft.ObjectType,
		EventType:  draft.EventType,
		Severity:   draft.Severity,
		Message:    draft.Message,
	})
	return m.nextID, nil
}

func (m *memEventStore) CountMatching(ctx context.Context, filter models.EventFilter) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.matching(filter)), nil
}

func (m *memEventStore) SelectPage(ctx context.Context, filter models.EventFilter, order models.EventSort, window models.PageWindow) ([]models.Event, error) {
	rows := m.matching(filter)
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareEvents(rows[i], rows[j], order.Column)
		if c == 0 {
			c = compareInt64(rows[i].ID, rows[j].ID)
		}
		if order.Descending {
			return c > 0
		}
		return c < 0
	})
	if window.Offset >= len(rows) {
		return []models.Event{}, nil
	}
	end := window.Offset + window.Size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[window.Offset:end], nil
}

func (m *memEventStore) DeleteByIDs(ctx context.Context, ids []int64) (int64, error) {
	targets := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		targets[id] = struct{}{}
	}
	var deleted int64
	kept := m.events[:0]
	for _, event := range m.events {
		if _, ok := targets[event.ID]; ok {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	m.events = kept
	return deleted, nil
}

func (m *memEventStore) matching(filter models.EventFilter) []models.Event {
	term := strings.ToLower(filter.Search)
	var roleIDs map[int64]struct{}
	if filter.HasRole() {
		roleIDs = make(map[int64]struct{}, len(filter.RoleUserIDs))
		for _, id := range filter.RoleUserIDs {
			roleIDs[id] = struct{}{}
		}
	}

	out := make([]models.Event, 0, len(m.events))
	for _, event := range m.events {
		if term != "" && !containsAny(term, event.Message, event.ObjectType, event.EventType, event.IPAddress) {
			continue
		}
		day := event.OccurredAt.Format(models.DateLayout)
		if filter.DateFrom != nil && day < filter.DateFrom.Format(models.DateLayout) {
			continue
		}
		if filter.DateTo != nil && day > filter.DateTo.Format(models.DateLayout) {
			continue
		}
		if filter.UserID != nil && (event.UserID == nil || *event.UserID != *filter.UserID) {
			continue
		}
		if roleIDs != nil {
			if event.UserID == nil {
				continue
			}
			if _, ok := roleIDs[*event.UserID]; !ok {
				continue
			}
		}
		out = append(out, event)
	}
	return out
}

func containsAny(term string, values ...string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), term) {
			return true
		}
	}
	return false
}

var severityRank = map[string]int{
	models.SeverityLow:    1,
	models.SeverityMedium: 2,
	models.SeverityHigh:   3,
}

func compareEvents(a, b models.Event, column string) int {
	switch column {
	case models.SortEventTime:
		return a.OccurredAt.Compare(b.OccurredAt)
	case models.SortSeverity:
		return severityRank[a.Severity] - severityRank[b.Severity]
	case models.SortEventType:
		return strings.Compare(a.EventType, b.EventType)
	case models.SortObjectType:
		return strings.Compare(a.ObjectType, b.ObjectType)
	}
	return 0
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type fakeDirectoryRepo struct {
	users   map[int64]*models.User
	roles   map[string][]int64
	err     error
	lookups int
}

func (f *fakeDirectoryRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *user
	return &copy, nil
}

func (f *fakeDirectoryRepo) IDsByRole(ctx context.Context, role string) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	ids := f.roles[role]
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

type memCacheRepo struct {
	entries map[string][]byte
	getErr  error
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{entries: make(map[string][]byte)}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCacheRepo) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}
