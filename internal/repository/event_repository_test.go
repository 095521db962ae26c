package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/activity-log-api/internal/models"
)

var eventRowColumns = []string{"id", "user_id", "ip_address", "occurred_at", "object_type", "event_type", "severity", "message"}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "postgres")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func exact(query string) string {
	return "^" + regexp.QuoteMeta(query) + "$"
}

func date(t *testing.T, raw string) *time.Time {
	d, err := time.Parse(models.DateLayout, raw)
	require.NoError(t, err)
	return &d
}

func TestEventRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(exact("INSERT INTO activity_events (user_id, ip_address, occurred_at, object_type, event_type, severity, message) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id")).
		WithArgs(int64(42), "10.0.0.1", sqlmock.AnyArg(), "Post", "created", "low", "Post created").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))

	id, err := repo.Insert(context.Background(), models.EventDraft{
		UserID:     models.Int64Ptr(42),
		IPAddress:  "10.0.0.1",
		OccurredAt: time.Now(),
		ObjectType: "Post",
		EventType:  "created",
		Severity:   "low",
		Message:    "Post created",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryInsertGuestBindsNull(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO activity_events")).
		WithArgs(nil, "10.0.0.9", sqlmock.AnyArg(), "User", "Login Failed", "medium", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	_, err := repo.Insert(context.Background(), models.EventDraft{
		IPAddress:  "10.0.0.9",
		OccurredAt: time.Now(),
		ObjectType: "User",
		EventType:  "Login Failed",
		Severity:   "medium",
		Message:    "Failed login for ghost",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryInsertPropagatesFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO activity_events")).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.Insert(context.Background(), models.EventDraft{OccurredAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCountMatchingEmptyFilter(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(exact("SELECT COUNT(*) FROM activity_events")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := repo.CountMatching(context.Background(), models.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCountMatchingAllCriteria(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(exact("SELECT COUNT(*) FROM activity_events WHERE "+
		"(LOWER(ip_address) LIKE $1 OR LOWER(event_type) LIKE $2 OR LOWER(object_type) LIKE $3 OR LOWER(message) LIKE $4) "+
		"AND CAST(occurred_at AS DATE) >= CAST($5 AS DATE) "+
		"AND CAST(occurred_at AS DATE) <= CAST($6 AS DATE) "+
		"AND user_id = $7 "+
		"AND user_id IN ($8, $9)")).
		WithArgs(`%log\_in 100\%%`, `%log\_in 100\%%`, `%log\_in 100\%%`, `%log\_in 100\%%`,
			"2024-01-01", "2024-01-31", int64(42), int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	total, err := repo.CountMatching(context.Background(), models.EventFilter{
		Search:      "  Log_in 100%  ",
		DateFrom:    date(t, "2024-01-01"),
		DateTo:      date(t, "2024-01-31"),
		UserID:      models.Int64Ptr(42),
		Role:        "editor",
		RoleUserIDs: []int64{3, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryEmptyRoleMatchesNothing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(exact("SELECT COUNT(*) FROM activity_events WHERE user_id = $1 AND 1 = 0")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(exact("SELECT "+eventColumns+" FROM activity_events WHERE user_id = $1 AND 1 = 0 ORDER BY id DESC LIMIT $2 OFFSET $3")).
		WithArgs(int64(5), 5, 0).
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	filter := models.EventFilter{UserID: models.Int64Ptr(5), Role: "ghost-role"}
	total, err := repo.CountMatching(context.Background(), filter)
	require.NoError(t, err)
	assert.Zero(t, total)

	events, err := repo.SelectPage(context.Background(), filter, models.EventSort{Descending: true}, models.NewPageWindow(1, 5))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositorySelectPageDefaultOrder(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(eventRowColumns).
		AddRow(int64(2), int64(42), "10.0.0.1", now, "Post", "modified", "low", "Post updated").
		AddRow(int64(1), nil, "10.0.0.2", now, "User", "Login Failed", "Login Failed", "legacy row")
	mock.ExpectQuery(exact("SELECT "+eventColumns+" FROM activity_events ORDER BY id DESC LIMIT $1 OFFSET $2")).
		WithArgs(5, 5).
		WillReturnRows(rows)

	events, err := repo.SelectPage(context.Background(), models.EventFilter{}, models.EventSort{Descending: true}, models.NewPageWindow(2, 5))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, int64(42), *events[0].UserID)
	assert.Nil(t, events[1].UserID)
	assert.Equal(t, "Login Failed", events[1].Severity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositorySelectPageOrdering(t *testing.T) {
	cases := []struct {
		name  string
		sort  models.EventSort
		order string
	}{
		{"event time ascending", models.EventSort{Column: models.SortEventTime}, "occurred_at ASC, id ASC"},
		{"event type descending", models.EventSort{Column: models.SortEventType, Descending: true}, "event_type DESC, id DESC"},
		{"object type ascending", models.EventSort{Column: models.SortObjectType}, "object_type ASC, id ASC"},
		{"severity is ordinal", models.EventSort{Column: models.SortSeverity, Descending: true}, "CASE severity WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END DESC, id DESC"},
		{"unknown column falls back to id", models.EventSort{Column: "password_hash; DROP TABLE users", Descending: true}, "id DESC"},
		{"empty column ascending", models.EventSort{}, "id ASC"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, cleanup := newMock(t)
			defer cleanup()
			repo := NewEventRepository(db)

			mock.ExpectQuery(exact("SELECT "+eventColumns+" FROM activity_events ORDER BY "+tc.order+" LIMIT $1 OFFSET $2")).
				WithArgs(5, 0).
				WillReturnRows(sqlmock.NewRows(eventRowColumns))

			_, err := repo.SelectPage(context.Background(), models.EventFilter{}, tc.sort, models.NewPageWindow(1, 5))
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventRepositorySelectPagePropagatesFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + eventColumns)).WillReturnError(errors.New("statement timeout"))

	_, err := repo.SelectPage(context.Background(), models.EventFilter{}, models.EventSort{}, models.NewPageWindow(1, 5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list events")
}

func TestEventRepositoryDeleteByIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(exact("DELETE FROM activity_events WHERE id IN ($1, $2)")).
		WithArgs(int64(3), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(exact("DELETE FROM activity_events WHERE id IN ($1, $2)")).
		WithArgs(int64(3), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteByIDs(context.Background(), []int64{3, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeleteByIDs(context.Background(), []int64{3, 5})
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryDeleteByIDsEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	deleted, err := repo.DeleteByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%50\% off\_sale\\x%`, containsPattern(`50% OFF_sale\x`))
}

func TestEventRepositoryDeleteOlderThan(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(exact("DELETE FROM activity_events WHERE occurred_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 12))

	deleted, err := repo.DeleteOlderThan(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(12), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
