package schedule

import (
	"context"
	"time"
)

// ListOptions narrows an event listing.
type ListOptions struct {
	TimeMin    time.Time
	TimeMax    time.Time
	Query      string
	MaxResults int64
}

// Service is the scheduling backend consumed by the assistant core. The
// production implementation talks to Google Calendar, Tasks, and People;
// tests substitute fakes.
type Service interface {
	// ListCalendars returns the calendars available to the user.
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
	// ListEvents returns single (non-recurring-expanded) events ordered by
	// start time within the option window.
	ListEvents(ctx context.Context, calendarID string, opts ListOptions) ([]*Event, error)
	// InsertEvent creates an event and returns the stored resource.
	InsertEvent(ctx context.Context, calendarID string, ev *Event) (*Event, error)
	// GetEvent fetches the authoritative current event.
	GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error)
	// PatchEvent applies a partial update, leaving nil patch fields intact.
	PatchEvent(ctx context.Context, calendarID, eventID string, patch *EventPatch) (*Event, error)
	// DeleteEvent removes an event. A missing event yields ErrNotFound.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	// InsertTask creates a task on the given task list.
	InsertTask(ctx context.Context, listID string, t *Task) (*Task, error)
	// SearchContacts resolves a name query to directory contacts.
	SearchContacts(ctx context.Context, query string, pageSize int64) ([]Contact, error)
}
