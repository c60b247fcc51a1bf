// Package schedule wraps the external calendar, tasks, and contacts API
// behind a narrow Service interface.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates the referenced event no longer exists.
var ErrNotFound = errors.New("event not found")

// EventTime is a point in time for an event: either a date-time with an
// explicit offset, or a bare date for all-day events.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"` // RFC 3339 with offset
	Date     string `json:"date,omitempty"`     // YYYY-MM-DD, all-day
	TimeZone string `json:"timeZone,omitempty"`
}

// IsZero reports whether the time is unset.
func (t EventTime) IsZero() bool {
	return t.DateTime == "" && t.Date == ""
}

// AllDay reports whether this is an all-day date.
func (t EventTime) AllDay() bool {
	return t.DateTime == "" && t.Date != ""
}

// Resolve parses the event time. All-day dates resolve to midnight in the
// event's zone (falling back to loc).
func (t EventTime) Resolve(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t.TimeZone != "" {
		if z, err := time.LoadLocation(t.TimeZone); err == nil {
			loc = z
		}
	}
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		return time.ParseInLocation("2006-01-02", t.Date, loc)
	}
	return time.Time{}, fmt.Errorf("event time is empty")
}

// Attachment is a file attached to an event. The core never modifies
// attachments; it only carries them so edits can prove they were preserved.
type Attachment struct {
	FileURL  string `json:"fileUrl"`
	Title    string `json:"title,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Event is the internal calendar event model, mirroring the fields the core
// reads and writes on the wire resource.
type Event struct {
	ID          string       `json:"id,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	Start       EventTime    `json:"start"`
	End         EventTime    `json:"end"`
	Attendees   []string     `json:"attendees,omitempty"` // email addresses
	ColorID     string       `json:"colorId,omitempty"`
	HangoutLink string       `json:"hangoutLink,omitempty"`
	HTMLLink    string       `json:"htmlLink,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	// ConferenceRequestID, when non-empty, asks the service to create a
	// fresh meeting link for the event.
	ConferenceRequestID string `json:"-"`
}

// EventPatch carries a partial update. Nil fields are left untouched on the
// server-side event.
type EventPatch struct {
	Summary     *string    `json:"summary,omitempty"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Start       *EventTime `json:"start,omitempty"`
	End         *EventTime `json:"end,omitempty"`
	Attendees   *[]string  `json:"attendees,omitempty"`
	ColorID     *string    `json:"colorId,omitempty"`
	// ConferenceRequestID, when non-nil, attaches a fresh meeting link.
	ConferenceRequestID *string `json:"-"`
}

// IsEmpty reports whether the patch changes nothing.
func (p *EventPatch) IsEmpty() bool {
	return p == nil || (p.Summary == nil && p.Description == nil && p.Location == nil &&
		p.Start == nil && p.End == nil && p.Attendees == nil && p.ColorID == nil &&
		p.ConferenceRequestID == nil)
}

// Task is the internal task model.
type Task struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
	Due   string `json:"due,omitempty"` // RFC 3339
}

// Contact is a resolved person from the contacts directory.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CalendarInfo describes one calendar available to the user.
type CalendarInfo struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary"`
}
