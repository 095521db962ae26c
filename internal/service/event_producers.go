package service

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noah-isme/activity-log-api/internal/models"
)

// wildcard matches any status in the transition table.
const wildcard = "*"

// PostTypeRevision marks autosaves and revisions, which are never logged.
const PostTypeRevision = "revision"

type transitionKey struct {
	from string
	to   string
}

type transitionOutcome struct {
	eventType string
	severity  string
	ignore    bool
}

var postTransitions = map[transitionKey]transitionOutcome{
	{wildcard, "auto-draft"}: {ignore: true},
	{wildcard, "inherit"}:    {ignore: true},
	{wildcard, "trash"}:      {eventType: models.EventTypeTrashed, severity: models.SeverityMedium},
	{wildcard, "deleted"}:    {eventType: models.EventTypeDeleted, severity: models.SeverityHigh},
	{"trash", wildcard}:      {eventType: models.EventTypeRestored, severity: models.SeverityLow},
	{"new", wildcard}:        {eventType: models.EventTypeCreated, severity: models.SeverityLow},
	{"auto-draft", wildcard}: {eventType: models.EventTypeCreated, severity: models.SeverityLow},
	{wildcard, wildcard}:     {eventType: models.EventTypeModified, severity: models.SeverityLow},
}

func lookupTransition(from, to string) transitionOutcome {
	for _, key := range []transitionKey{
		{from, to},
		{wildcard, to},
		{from, wildcard},
		{wildcard, wildcard},
	} {
		if outcome, ok := postTransitions[key]; ok {
			return outcome
		}
	}
	return transitionOutcome{ignore: true}
}

// LoginAttempt describes a sign-in attempt.
type LoginAttempt struct {
	UserID    *int64
	Login     string
	IP        string
	Succeeded bool
	At        time.Time
}

// Draft converts the attempt into an event.
func (a LoginAttempt) Draft() models.EventDraft {
	draft := models.EventDraft{
		UserID:     a.UserID,
		IPAddress:  a.IP,
		OccurredAt: a.At,
		ObjectType: models.ObjectTypeUser,
	}
	if a.Succeeded {
		draft.EventType = models.EventTypeLogin
		draft.Severity = models.SeverityLow
		draft.Message = fmt.Sprintf("User %s logged in", a.Login)
	} else {
		draft.EventType = models.EventTypeLoginFailed
		draft.Severity = models.SeverityMedium
		draft.Message = fmt.Sprintf("Failed login attempt for %s", a.Login)
	}
	return draft
}

// PostTransition describes a post moving between statuses.
type PostTransition struct {
	ActorID   *int64
	IP        string
	PostID    int64
	PostTitle string
	PostType  string
	OldStatus string
	NewStatus string
	At        time.Time
}

// Draft converts the transition into an event. ok is false when the
// transition is not logged.
func (t PostTransition) Draft() (models.EventDraft, bool) {
	if strings.EqualFold(t.PostType, PostTypeRevision) {
		return models.EventDraft{}, false
	}
	outcome := lookupTransition(strings.ToLower(t.OldStatus), strings.ToLower(t.NewStatus))
	if outcome.ignore {
		return models.EventDraft{}, false
	}

	objectType := models.ObjectTypePost
	if t.PostType != "" {
		objectType = cases.Title(language.English).String(t.PostType)
	}
	title := t.PostTitle
	if title == "" {
		title = fmt.Sprintf("#%d", t.PostID)
	}

	return models.EventDraft{
		UserID:     t.ActorID,
		IPAddress:  t.IP,
		OccurredAt: t.At,
		ObjectType: objectType,
		EventType:  outcome.eventType,
		Severity:   outcome.severity,
		Message:    fmt.Sprintf("%s %q %s", objectType, title, outcome.eventType),
	}, true
}

// UserChange describes an account being created, modified or deleted.
type UserChange struct {
	ActorID   *int64
	IP        string
	Subject   string
	EventType string
	At        time.Time
}

// Draft converts the change into an event.
func (c UserChange) Draft() models.EventDraft {
	severity := models.SeverityLow
	if c.EventType == models.EventTypeDeleted {
		severity = models.SeverityHigh
	}
	return models.EventDraft{
		UserID:     c.ActorID,
		IPAddress:  c.IP,
		OccurredAt: c.At,
		ObjectType: models.ObjectTypeUser,
		EventType:  c.EventType,
		Severity:   severity,
		Message:    fmt.Sprintf("User %s %s", c.Subject, c.EventType),
	}
}
