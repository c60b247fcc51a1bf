// Package draft owns the in-progress event under construction and the
// confirmation state machine that gates its execution.
package draft

import (
	"strings"
	"time"

	"github.com/calbot-ai/calbot/internal/intent"
	"github.com/calbot-ai/calbot/internal/schedule"
)

// EventDraft is the working, possibly incomplete representation of a
// calendar event under construction or edit.
type EventDraft struct {
	Summary     string             `json:"summary,omitempty"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Start       schedule.EventTime `json:"start,omitzero"`
	End         schedule.EventTime `json:"end,omitzero"`
	Attendees   []string           `json:"attendees,omitempty"`
	Conference  bool               `json:"conference,omitempty"`
	CalendarID  string             `json:"calendarId,omitempty"`
	// SourceEventID is set when the draft edits an existing event.
	SourceEventID string `json:"sourceEventId,omitempty"`
}

// FromEvent seeds a draft from a fetched existing event (edit mode).
func FromEvent(ev *schedule.Event, calendarID string) *EventDraft {
	return &EventDraft{
		Summary:       ev.Summary,
		Description:   ev.Description,
		Location:      ev.Location,
		Start:         ev.Start,
		End:           ev.End,
		Attendees:     append([]string{}, ev.Attendees...),
		CalendarID:    calendarID,
		SourceEventID: ev.ID,
	}
}

// merged returns a copy of the draft with the intent fields applied: later
// scalar fields overwrite earlier ones for the same key, attendee lists are
// unioned, and a requested conference sticks. The receiver is not modified,
// so a half-applied merge is never observable.
func (d *EventDraft) merged(f *intent.EventFields) *EventDraft {
	out := *d
	out.Attendees = append([]string{}, d.Attendees...)

	if f == nil {
		return &out
	}
	if f.Summary != "" {
		out.Summary = f.Summary
	}
	if f.Description != "" {
		out.Description = f.Description
	}
	if f.Location != "" {
		out.Location = f.Location
	}
	if !f.Start.IsZero() {
		out.Start = f.Start
	}
	if !f.End.IsZero() {
		out.End = f.End
	}
	if f.CalendarID != "" {
		out.CalendarID = f.CalendarID
	}
	if f.Conference {
		out.Conference = true
	}
	for _, a := range f.Attendees {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		exists := false
		for _, have := range out.Attendees {
			if strings.EqualFold(have, a) {
				exists = true
				break
			}
		}
		if !exists {
			out.Attendees = append(out.Attendees, a)
		}
	}
	return &out
}

// EnsureEnd derives the end time when a start is set but no end was ever
// supplied: start plus the default duration, or the next day for all-day
// events.
func (d *EventDraft) EnsureEnd(defaultDuration time.Duration, loc *time.Location) {
	if d.Start.IsZero() || !d.End.IsZero() {
		return
	}
	if d.Start.AllDay() {
		if day, err := d.Start.Resolve(loc); err == nil {
			d.End = schedule.EventTime{
				Date:     day.AddDate(0, 0, 1).Format("2006-01-02"),
				TimeZone: d.Start.TimeZone,
			}
		}
		return
	}
	if start, err := d.Start.Resolve(loc); err == nil {
		d.End = schedule.EventTime{
			DateTime: start.Add(defaultDuration).Format(time.RFC3339),
			TimeZone: d.Start.TimeZone,
		}
	}
}

// Complete reports whether the draft can move from follow-up questions to
// confirmation: summary, start, and end are all present.
func (d *EventDraft) Complete() bool {
	return d.Summary != "" && !d.Start.IsZero() && !d.End.IsZero()
}

// TimeRange resolves the draft's concrete start and end instants.
func (d *EventDraft) TimeRange(loc *time.Location) (start, end time.Time, err error) {
	start, err = d.Start.Resolve(loc)
	if err != nil {
		return
	}
	end, err = d.End.Resolve(loc)
	return
}

// ToEvent converts the draft into the event resource to submit.
func (d *EventDraft) ToEvent() *schedule.Event {
	return &schedule.Event{
		ID:          d.SourceEventID,
		Summary:     d.Summary,
		Description: d.Description,
		Location:    d.Location,
		Start:       d.Start,
		End:         d.End,
		Attendees:   append([]string{}, d.Attendees...),
	}
}
