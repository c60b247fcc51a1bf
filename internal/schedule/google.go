package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"
	"google.golang.org/api/tasks/v1"
)

// GoogleService implements Service over the Google Calendar, Tasks, and
// People APIs.
type GoogleService struct {
	calendar *calendar.Service
	tasks    *tasks.Service
	people   *people.Service
	logger   *slog.Logger
}

// NewGoogleService creates a schedule service from an authenticated HTTP
// client (see the auth helpers in this package for the token flow).
func NewGoogleService(ctx context.Context, logger *slog.Logger, client *http.Client) (*GoogleService, error) {
	calSvc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	taskSvc, err := tasks.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create tasks service: %w", err)
	}
	peopleSvc, err := people.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create people service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleService{
		calendar: calSvc,
		tasks:    taskSvc,
		people:   peopleSvc,
		logger:   logger,
	}, nil
}

// ListCalendars returns all calendars on the user's calendar list.
func (s *GoogleService) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	list, err := s.calendar.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	result := make([]CalendarInfo, 0, len(list.Items))
	for _, item := range list.Items {
		result = append(result, CalendarInfo{
			ID:      item.Id,
			Summary: item.Summary,
			Primary: item.Primary,
		})
	}
	return result, nil
}

// ListEvents fetches events ordered by start time.
func (s *GoogleService) ListEvents(ctx context.Context, calendarID string, opts ListOptions) ([]*Event, error) {
	call := s.calendar.Events.List(calendarID).
		ShowDeleted(false).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)
	if !opts.TimeMin.IsZero() {
		call = call.TimeMin(opts.TimeMin.Format(time.RFC3339))
	}
	if !opts.TimeMax.IsZero() {
		call = call.TimeMax(opts.TimeMax.Format(time.RFC3339))
	}
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}

	events, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("list events on %s: %w", calendarID, err)
	}

	s.logger.Debug("fetched events", "calendarID", calendarID, "count", len(events.Items))

	result := make([]*Event, 0, len(events.Items))
	for _, item := range events.Items {
		result = append(result, fromGoogleEvent(item))
	}
	return result, nil
}

// InsertEvent creates an event. When the event carries a conference request
// ID, conference creation is enabled on the call.
func (s *GoogleService) InsertEvent(ctx context.Context, calendarID string, ev *Event) (*Event, error) {
	call := s.calendar.Events.Insert(calendarID, toGoogleEvent(ev)).Context(ctx)
	if ev.ConferenceRequestID != "" {
		call = call.ConferenceDataVersion(1)
	}
	created, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("insert event on %s: %w", calendarID, err)
	}
	s.logger.Info("event created", "calendarID", calendarID, "eventID", created.Id)
	return fromGoogleEvent(created), nil
}

// GetEvent fetches the authoritative current event.
func (s *GoogleService) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	ev, err := s.calendar.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		return nil, mapAPIError("get event", err)
	}
	return fromGoogleEvent(ev), nil
}

// PatchEvent applies a partial update. Only non-nil patch fields reach the
// wire, so untouched server-side fields, attachments included, survive.
func (s *GoogleService) PatchEvent(ctx context.Context, calendarID, eventID string, patch *EventPatch) (*Event, error) {
	g := &calendar.Event{}
	if patch.Summary != nil {
		g.Summary = *patch.Summary
		if g.Summary == "" {
			g.ForceSendFields = append(g.ForceSendFields, "Summary")
		}
	}
	if patch.Description != nil {
		g.Description = *patch.Description
		if g.Description == "" {
			g.ForceSendFields = append(g.ForceSendFields, "Description")
		}
	}
	if patch.Location != nil {
		g.Location = *patch.Location
		if g.Location == "" {
			g.ForceSendFields = append(g.ForceSendFields, "Location")
		}
	}
	if patch.Start != nil {
		g.Start = toGoogleTime(*patch.Start)
	}
	if patch.End != nil {
		g.End = toGoogleTime(*patch.End)
	}
	if patch.Attendees != nil {
		for _, email := range *patch.Attendees {
			g.Attendees = append(g.Attendees, &calendar.EventAttendee{Email: email})
		}
		if len(g.Attendees) == 0 {
			g.ForceSendFields = append(g.ForceSendFields, "Attendees")
		}
	}
	if patch.ColorID != nil {
		g.ColorId = *patch.ColorID
	}

	if patch.ConferenceRequestID != nil {
		g.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{RequestId: *patch.ConferenceRequestID},
		}
	}

	call := s.calendar.Events.Patch(calendarID, eventID, g).Context(ctx)
	if patch.ConferenceRequestID != nil {
		call = call.ConferenceDataVersion(1)
	}

	updated, err := call.Do()
	if err != nil {
		return nil, mapAPIError("patch event", err)
	}
	s.logger.Info("event updated", "calendarID", calendarID, "eventID", eventID)
	return fromGoogleEvent(updated), nil
}

// DeleteEvent removes an event. Missing events map to ErrNotFound so the
// caller can report idempotent success.
func (s *GoogleService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := s.calendar.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return mapAPIError("delete event", err)
	}
	s.logger.Info("event deleted", "calendarID", calendarID, "eventID", eventID)
	return nil
}

// InsertTask creates a task on the given task list.
func (s *GoogleService) InsertTask(ctx context.Context, listID string, t *Task) (*Task, error) {
	created, err := s.tasks.Tasks.Insert(listID, &tasks.Task{
		Title: t.Title,
		Notes: t.Notes,
		Due:   t.Due,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert task on %s: %w", listID, err)
	}
	s.logger.Info("task created", "listID", listID, "taskID", created.Id)
	return &Task{ID: created.Id, Title: created.Title, Notes: created.Notes, Due: created.Due}, nil
}

// SearchContacts resolves a name query against the user's contacts.
func (s *GoogleService) SearchContacts(ctx context.Context, query string, pageSize int64) ([]Contact, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	resp, err := s.people.People.SearchContacts().
		Query(query).
		ReadMask("names,emailAddresses").
		PageSize(pageSize).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search contacts %q: %w", query, err)
	}

	var contacts []Contact
	for _, res := range resp.Results {
		if res.Person == nil || len(res.Person.EmailAddresses) == 0 {
			continue
		}
		name := ""
		if len(res.Person.Names) > 0 {
			name = res.Person.Names[0].DisplayName
		}
		contacts = append(contacts, Contact{
			Name:  name,
			Email: res.Person.EmailAddresses[0].Value,
		})
	}
	return contacts, nil
}

// mapAPIError translates 404s into ErrNotFound and wraps everything else.
func mapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toGoogleTime(t EventTime) *calendar.EventDateTime {
	return &calendar.EventDateTime{
		DateTime: t.DateTime,
		Date:     t.Date,
		TimeZone: t.TimeZone,
	}
}

func fromGoogleTime(t *calendar.EventDateTime) EventTime {
	if t == nil {
		return EventTime{}
	}
	return EventTime{DateTime: t.DateTime, Date: t.Date, TimeZone: t.TimeZone}
}

func toGoogleEvent(ev *Event) *calendar.Event {
	g := &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       toGoogleTime(ev.Start),
		End:         toGoogleTime(ev.End),
		ColorId:     ev.ColorID,
	}
	for _, email := range ev.Attendees {
		g.Attendees = append(g.Attendees, &calendar.EventAttendee{Email: email})
	}
	if ev.ConferenceRequestID != "" {
		g.ConferenceData = &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{RequestId: ev.ConferenceRequestID},
		}
	}
	return g
}

func fromGoogleEvent(g *calendar.Event) *Event {
	ev := &Event{
		ID:          g.Id,
		Summary:     g.Summary,
		Description: g.Description,
		Location:    g.Location,
		Start:       fromGoogleTime(g.Start),
		End:         fromGoogleTime(g.End),
		ColorID:     g.ColorId,
		HangoutLink: g.HangoutLink,
		HTMLLink:    g.HtmlLink,
	}
	for _, a := range g.Attendees {
		ev.Attendees = append(ev.Attendees, a.Email)
	}
	for _, att := range g.Attachments {
		ev.Attachments = append(ev.Attachments, Attachment{
			FileURL:  att.FileUrl,
			Title:    att.Title,
			MimeType: att.MimeType,
		})
	}
	return ev
}
