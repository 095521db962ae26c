package models

import "time"

// Severity tags recorded on events. Rows written by older producers may carry
// other values; readers must pass those through untouched.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Object types recorded on events.
const (
	ObjectTypePost = "Post"
	ObjectTypeUser = "User"
)

// Event types recorded on events.
const (
	EventTypeCreated     = "created"
	EventTypeModified    = "modified"
	EventTypeTrashed     = "trashed"
	EventTypeRestored    = "restored"
	EventTypeDeleted     = "deleted"
	EventTypeLogin       = "Login"
	EventTypeLoginFailed = "Login Failed"
)

// DateLayout is the wire format of date-only filter values.
const DateLayout = "2006-01-02"

// MaxMessageLength bounds the persisted message, counted in runes.
const MaxMessageLength = 1000

// Event is one immutable row of the activity log.
type Event struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
	ObjectType string    `db:"object_type" json:"object_type"`
	EventType  string    `db:"event_type" json:"event_type"`
	Severity   string    `db:"severity" json:"severity"`
	Message    string    `db:"message" json:"message"`
}

// EventDraft carries everything needed to create an Event except its id.
type EventDraft struct {
	UserID     *int64    `db:"user_id"`
	IPAddress  string    `db:"ip_address"`
	OccurredAt time.Time `db:"occurred_at"`
	ObjectType string    `db:"object_type"`
	EventType  string    `db:"event_type"`
	Severity   string    `db:"severity"`
	Message    string    `db:"message"`
}

// EventFilter is the normalized form of the listing filter parameters.
// Criteria combine with AND; the zero value matches every event.
type EventFilter struct {
	Search   string
	DateFrom *time.Time
	DateTo   *time.Time
	UserID   *int64

	// Role is the requested role. When set, RoleUserIDs holds the ids it
	// resolved to; an empty set matches nothing.
	Role        string
	RoleUserIDs []int64
}

// HasRole reports whether the filter restricts by role.
func (f EventFilter) HasRole() bool {
	return f.Role != ""
}

// Sortable columns accepted by the listing.
const (
	SortEventTime  = "event_time"
	SortSeverity   = "severity"
	SortEventType  = "event_type"
	SortObjectType = "object_type"
)

// EventSort selects the listing order. An empty or unknown Column orders by id.
type EventSort struct {
	Column     string
	Descending bool
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
