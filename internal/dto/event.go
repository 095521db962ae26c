package dto

import "time"

// EventUser is the identity shown next to an event.
type EventUser struct {
	ID          *int64   `json:"id,omitempty"`
	Label       string   `json:"label"`
	Login       string   `json:"login,omitempty"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Missing     bool     `json:"missing"`
}

// EventRow is one activity event prepared for display.
type EventRow struct {
	ID            int64     `json:"id"`
	User          EventUser `json:"user"`
	IPAddress     string    `json:"ip_address"`
	OccurredAt    time.Time `json:"occurred_at"`
	ObjectType    string    `json:"object_type"`
	EventType     string    `json:"event_type"`
	Severity      string    `json:"severity"`
	SeverityClass string    `json:"severity_class"`
	Preview       string    `json:"preview"`
	Truncated     bool      `json:"truncated"`
	Message       string    `json:"message"`
}

// BulkActionRequest is submitted from the listing's bulk action control.
type BulkActionRequest struct {
	Action string  `json:"action" form:"action"`
	IDs    []int64 `json:"id" form:"id"`
}

// BulkActionResponse reports the outcome of a bulk action.
type BulkActionResponse struct {
	Action  string `json:"action"`
	Deleted int64  `json:"deleted"`
}

// PostTransitionRequest notifies the log that a post changed status.
type PostTransitionRequest struct {
	PostID    int64  `json:"post_id" validate:"required,gt=0"`
	PostTitle string `json:"post_title" validate:"max=500"`
	PostType  string `json:"post_type" validate:"max=64"`
	OldStatus string `json:"old_status" validate:"max=32"`
	NewStatus string `json:"new_status" validate:"required,max=32"`
}

// RecordedEvent identifies an event written by an ingest call.
type RecordedEvent struct {
	ID int64 `json:"id"`
}
