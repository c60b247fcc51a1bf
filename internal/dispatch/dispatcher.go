// Package dispatch maps interpreted intents onto scheduling service
// operations, applying the business rules that sit between the two.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calbot-ai/calbot/internal/draft"
	"github.com/calbot-ai/calbot/internal/intent"
	"github.com/calbot-ai/calbot/internal/schedule"
)

// UnresolvedAttendeeError is returned when an event carries attendee tokens
// that are not email addresses. A contacts lookup must resolve them before
// the dispatch can be retried.
type UnresolvedAttendeeError struct {
	Names []string
}

func (e *UnresolvedAttendeeError) Error() string {
	return fmt.Sprintf("unresolved attendees: %s", strings.Join(e.Names, ", "))
}

// Refresher is notified after every mutation so the view can reload the
// month grid and day list for the affected date.
type Refresher func(date string)

// Dispatcher executes intents against the scheduling service.
type Dispatcher struct {
	svc               schedule.Service
	keywords          []string
	defaultCalendarID string
	taskListID        string
	refresh           Refresher
	logger            *slog.Logger
	now               func() time.Time
}

// Options configures a Dispatcher.
type Options struct {
	Service            schedule.Service
	ConferenceKeywords []string
	DefaultCalendarID  string
	TaskListID         string
	Refresh            Refresher
	Logger             *slog.Logger
	Now                func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	calID := opts.DefaultCalendarID
	if calID == "" {
		calID = "primary"
	}
	listID := opts.TaskListID
	if listID == "" {
		listID = "@default"
	}
	refresh := opts.Refresh
	if refresh == nil {
		refresh = func(string) {}
	}
	return &Dispatcher{
		svc:               opts.Service,
		keywords:          opts.ConferenceKeywords,
		defaultCalendarID: calID,
		taskListID:        listID,
		refresh:           refresh,
		logger:            logger,
		now:               now,
	}
}

// checkAttendees refuses attendee tokens that are not email addresses.
func checkAttendees(attendees []string) error {
	var bare []string
	for _, a := range attendees {
		if !strings.Contains(a, "@") {
			bare = append(bare, a)
		}
	}
	if len(bare) > 0 {
		return &UnresolvedAttendeeError{Names: bare}
	}
	return nil
}

func (d *Dispatcher) calendarID(id string) string {
	if id != "" {
		return id
	}
	return d.defaultCalendarID
}

// refreshFor notifies the view about the day an event mutation touched.
func (d *Dispatcher) refreshFor(t schedule.EventTime) {
	day, err := t.Resolve(time.Local)
	if err != nil {
		return
	}
	d.refresh(day.Format("2006-01-02"))
}

// CreateEvent submits a completed draft as a new event. Trigger words in
// the user's wording force a meeting link with a fresh per-request
// conference token.
func (d *Dispatcher) CreateEvent(ctx context.Context, dr *draft.EventDraft, utterance string) (*schedule.Event, error) {
	if err := checkAttendees(dr.Attendees); err != nil {
		return nil, err
	}

	ev := dr.ToEvent()
	ev.ID = ""
	if dr.Conference || ContainsTrigger(utterance, d.keywords) {
		ev.ConferenceRequestID = uuid.NewString()
	}

	created, err := d.svc.InsertEvent(ctx, d.calendarID(dr.CalendarID), ev)
	if err != nil {
		return nil, err
	}
	d.refreshFor(created.Start)
	return created, nil
}

// UpdateEvent fetches the authoritative current event and overlays only the
// fields the draft actually changes, so untouched server-side fields,
// attachments and metadata included, survive the patch.
func (d *Dispatcher) UpdateEvent(ctx context.Context, dr *draft.EventDraft, utterance string) (*schedule.Event, error) {
	if err := checkAttendees(dr.Attendees); err != nil {
		return nil, err
	}
	if dr.SourceEventID == "" {
		return nil, fmt.Errorf("edit draft has no source event id")
	}

	calID := d.calendarID(dr.CalendarID)
	current, err := d.svc.GetEvent(ctx, calID, dr.SourceEventID)
	if err != nil {
		return nil, err
	}

	patch := diffDraft(dr, current)
	if (dr.Conference || ContainsTrigger(utterance, d.keywords)) && current.HangoutLink == "" {
		reqID := uuid.NewString()
		patch.ConferenceRequestID = &reqID
	}

	if patch.IsEmpty() {
		d.logger.Debug("edit changed nothing", "eventID", dr.SourceEventID)
		return current, nil
	}

	updated, err := d.svc.PatchEvent(ctx, calID, dr.SourceEventID, patch)
	if err != nil {
		return nil, err
	}
	d.refreshFor(updated.Start)
	return updated, nil
}

// diffDraft builds the partial update between a draft and the authoritative
// event: only differing fields enter the patch.
func diffDraft(dr *draft.EventDraft, current *schedule.Event) *schedule.EventPatch {
	patch := &schedule.EventPatch{}
	if dr.Summary != current.Summary {
		v := dr.Summary
		patch.Summary = &v
	}
	if dr.Description != current.Description {
		v := dr.Description
		patch.Description = &v
	}
	if dr.Location != current.Location {
		v := dr.Location
		patch.Location = &v
	}
	if !dr.Start.IsZero() && dr.Start != current.Start {
		v := dr.Start
		patch.Start = &v
	}
	if !dr.End.IsZero() && dr.End != current.End {
		v := dr.End
		patch.End = &v
	}
	if !sameAttendees(dr.Attendees, current.Attendees) {
		v := append([]string{}, dr.Attendees...)
		patch.Attendees = &v
	}
	return patch
}

func sameAttendees(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if !strings.EqualFold(as[i], bs[i]) {
			return false
		}
	}
	return true
}

// DeleteEvent removes an event. Deleting an already-gone event reports
// success with a warning instead of failing.
func (d *Dispatcher) DeleteEvent(ctx context.Context, calendarID, eventID string) (warning string, err error) {
	calID := d.calendarID(calendarID)
	err = d.svc.DeleteEvent(ctx, calID, eventID)
	if errors.Is(err, schedule.ErrNotFound) {
		d.logger.Warn("delete of missing event treated as success", "eventID", eventID)
		return "the event was already gone", nil
	}
	if err != nil {
		return "", err
	}
	d.refresh(d.now().Format("2006-01-02"))
	return "", nil
}

// ListEvents lists events for the given parameters. With no calendar named,
// every calendar on the user's list is queried concurrently and the results
// joined; a failing calendar is logged and skipped, never aborting the rest.
func (d *Dispatcher) ListEvents(ctx context.Context, params *intent.ListParams) ([]*schedule.Event, error) {
	opts := schedule.ListOptions{
		Query:      params.Query,
		MaxResults: params.MaxResults,
	}
	if params.TimeMin != "" {
		if t, err := time.Parse(time.RFC3339, params.TimeMin); err == nil {
			opts.TimeMin = t
		}
	}
	if params.TimeMax != "" {
		if t, err := time.Parse(time.RFC3339, params.TimeMax); err == nil {
			opts.TimeMax = t
		}
	}
	if opts.TimeMin.IsZero() {
		opts.TimeMin = d.now()
	}
	if opts.TimeMax.IsZero() {
		opts.TimeMax = opts.TimeMin.AddDate(0, 0, 7)
	}

	if params.CalendarID != "" {
		return d.svc.ListEvents(ctx, params.CalendarID, opts)
	}

	calendars, err := d.svc.ListCalendars(ctx)
	if err != nil {
		// Fall back to the default calendar when the list itself fails.
		d.logger.Warn("calendar list failed, using default", "error", err)
		return d.svc.ListEvents(ctx, d.defaultCalendarID, opts)
	}

	var (
		mu     sync.Mutex
		merged []*schedule.Event
		wg     sync.WaitGroup
	)
	for _, cal := range calendars {
		wg.Add(1)
		go func(calID string) {
			defer wg.Done()
			events, err := d.svc.ListEvents(ctx, calID, opts)
			if err != nil {
				d.logger.Warn("calendar fetch failed, skipping", "calendarID", calID, "error", err)
				return
			}
			mu.Lock()
			merged = append(merged, events...)
			mu.Unlock()
		}(cal.ID)
	}
	wg.Wait()

	sort.Slice(merged, func(i, j int) bool {
		ti, erri := merged[i].Start.Resolve(time.Local)
		tj, errj := merged[j].Start.Resolve(time.Local)
		if erri != nil || errj != nil {
			return erri == nil
		}
		return ti.Before(tj)
	})
	return merged, nil
}

// CreateTask creates a task on the configured task list.
func (d *Dispatcher) CreateTask(ctx context.Context, fields *intent.TaskFields) (*schedule.Task, error) {
	return d.svc.InsertTask(ctx, d.taskListID, &schedule.Task{
		Title: fields.Title,
		Notes: fields.Notes,
		Due:   fields.Due,
	})
}

// FindContacts resolves a name to directory contacts.
func (d *Dispatcher) FindContacts(ctx context.Context, query string, pageSize int64) ([]schedule.Contact, error) {
	return d.svc.SearchContacts(ctx, query, pageSize)
}
