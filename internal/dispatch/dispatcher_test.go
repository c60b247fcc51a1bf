package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/calbot-ai/calbot/internal/draft"
	"github.com/calbot-ai/calbot/internal/intent"
	"github.com/calbot-ai/calbot/internal/schedule"
)

// fakeService is an in-memory schedule.Service for dispatcher tests.
type fakeService struct {
	mu        sync.Mutex
	calendars []schedule.CalendarInfo
	events    map[string]map[string]*schedule.Event // calendarID -> eventID
	tasks     []*schedule.Task
	contacts  []schedule.Contact
	failCals  map[string]error
	lastPatch *schedule.EventPatch
	nextID    int
}

func newFakeService() *fakeService {
	return &fakeService{
		calendars: []schedule.CalendarInfo{{ID: "primary", Summary: "Primary", Primary: true}},
		events:    map[string]map[string]*schedule.Event{"primary": {}},
		failCals:  map[string]error{},
	}
}

func (f *fakeService) ListCalendars(ctx context.Context) ([]schedule.CalendarInfo, error) {
	return f.calendars, nil
}

func (f *fakeService) ListEvents(ctx context.Context, calendarID string, opts schedule.ListOptions) ([]*schedule.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failCals[calendarID]; err != nil {
		return nil, err
	}
	var out []*schedule.Event
	for _, ev := range f.events[calendarID] {
		out = append(out, ev)
	}
	return out, nil
}

func (f *fakeService) InsertEvent(ctx context.Context, calendarID string, ev *schedule.Event) (*schedule.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := *ev
	stored.ID = fmt.Sprintf("ev%d", f.nextID)
	if stored.ConferenceRequestID != "" {
		stored.HangoutLink = "https://meet.example.com/" + stored.ID
	}
	if f.events[calendarID] == nil {
		f.events[calendarID] = map[string]*schedule.Event{}
	}
	f.events[calendarID][stored.ID] = &stored
	return &stored, nil
}

func (f *fakeService) GetEvent(ctx context.Context, calendarID, eventID string) (*schedule.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[calendarID][eventID]
	if !ok {
		return nil, schedule.ErrNotFound
	}
	out := *ev
	return &out, nil
}

func (f *fakeService) PatchEvent(ctx context.Context, calendarID, eventID string, patch *schedule.EventPatch) (*schedule.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[calendarID][eventID]
	if !ok {
		return nil, schedule.ErrNotFound
	}
	f.lastPatch = patch
	if patch.Summary != nil {
		ev.Summary = *patch.Summary
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.Location != nil {
		ev.Location = *patch.Location
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	if patch.Attendees != nil {
		ev.Attendees = *patch.Attendees
	}
	if patch.ConferenceRequestID != nil {
		ev.HangoutLink = "https://meet.example.com/" + eventID
	}
	out := *ev
	return &out, nil
}

func (f *fakeService) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[calendarID][eventID]; !ok {
		return schedule.ErrNotFound
	}
	delete(f.events[calendarID], eventID)
	return nil
}

func (f *fakeService) InsertTask(ctx context.Context, listID string, t *schedule.Task) (*schedule.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *t
	stored.ID = "task1"
	f.tasks = append(f.tasks, &stored)
	return &stored, nil
}

func (f *fakeService) SearchContacts(ctx context.Context, query string, pageSize int64) ([]schedule.Contact, error) {
	return f.contacts, nil
}

func newTestDispatcher(svc schedule.Service) *Dispatcher {
	return NewDispatcher(Options{
		Service:            svc,
		ConferenceKeywords: []string{"call", "sync", "meet", "online"},
		Now:                func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) },
	})
}

func timedDraft(summary string) *draft.EventDraft {
	return &draft.EventDraft{
		Summary: summary,
		Start:   schedule.EventTime{DateTime: "2026-09-02T10:00:00Z"},
		End:     schedule.EventTime{DateTime: "2026-09-02T11:00:00Z"},
	}
}

func TestCreateEventTriggerWordForcesConference(t *testing.T) {
	svc := newFakeService()
	d := newTestDispatcher(svc)

	ev, err := d.CreateEvent(context.Background(), timedDraft("Team sync"), "set up a team sync tomorrow")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ev.HangoutLink == "" {
		t.Fatal("trigger word in the utterance must request a meeting link")
	}
}

func TestCreateEventNoTriggerNoConference(t *testing.T) {
	svc := newFakeService()
	d := newTestDispatcher(svc)

	ev, err := d.CreateEvent(context.Background(), timedDraft("Dentist"), "dentist tomorrow at 10")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ev.HangoutLink != "" {
		t.Fatal("no trigger word and no request must mean no meeting link")
	}
}

func TestCreateEventRefusesBareAttendeeNames(t *testing.T) {
	svc := newFakeService()
	d := newTestDispatcher(svc)

	dr := timedDraft("Planning")
	dr.Attendees = []string{"ana@example.com", "Bob", "carla"}

	_, err := d.CreateEvent(context.Background(), dr, "planning with bob and carla")
	var unresolved *UnresolvedAttendeeError
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedAttendeeError, got %v", err)
	}
	if len(unresolved.Names) != 2 {
		t.Fatalf("expected the two bare names, got %v", unresolved.Names)
	}
	if len(svc.events["primary"]) != 0 {
		t.Fatal("nothing may be inserted before attendees resolve")
	}
}

func TestUpdateEventPatchesOnlyChangedFields(t *testing.T) {
	svc := newFakeService()
	svc.events["primary"]["ev1"] = &schedule.Event{
		ID:          "ev1",
		Summary:     "Review",
		Description: "Quarterly figures",
		Location:    "Room 1",
		Start:       schedule.EventTime{DateTime: "2026-09-02T09:00:00Z"},
		End:         schedule.EventTime{DateTime: "2026-09-02T10:00:00Z"},
		Attendees:   []string{"ana@example.com"},
		Attachments: []schedule.Attachment{{Title: "slides.pdf", FileURL: "https://drive.example.com/slides"}},
	}
	d := newTestDispatcher(svc)

	dr := &draft.EventDraft{
		Summary:       "Review",
		Description:   "Quarterly figures",
		Location:      "Room 1",
		Start:         schedule.EventTime{DateTime: "2026-09-02T11:00:00Z"},
		End:           schedule.EventTime{DateTime: "2026-09-02T12:00:00Z"},
		Attendees:     []string{"ana@example.com"},
		SourceEventID: "ev1",
	}
	updated, err := d.UpdateEvent(context.Background(), dr, "move the review to 11")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	p := svc.lastPatch
	if p.Start == nil || p.End == nil {
		t.Fatal("changed times must enter the patch")
	}
	if p.Summary != nil || p.Description != nil || p.Location != nil || p.Attendees != nil {
		t.Fatalf("unchanged fields must stay out of the patch: %+v", p)
	}
	if len(updated.Attachments) != 1 || updated.Description != "Quarterly figures" {
		t.Fatal("untouched server-side fields must survive the patch")
	}
}

func TestUpdateEventNoChangeSkipsPatch(t *testing.T) {
	svc := newFakeService()
	svc.events["primary"]["ev1"] = &schedule.Event{
		ID:      "ev1",
		Summary: "Review",
		Start:   schedule.EventTime{DateTime: "2026-09-02T09:00:00Z"},
		End:     schedule.EventTime{DateTime: "2026-09-02T10:00:00Z"},
	}
	d := newTestDispatcher(svc)

	dr := &draft.EventDraft{
		Summary:       "Review",
		Start:         schedule.EventTime{DateTime: "2026-09-02T09:00:00Z"},
		End:           schedule.EventTime{DateTime: "2026-09-02T10:00:00Z"},
		SourceEventID: "ev1",
	}
	if _, err := d.UpdateEvent(context.Background(), dr, "keep the review as is"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if svc.lastPatch != nil {
		t.Fatal("an unchanged draft must not hit the patch endpoint")
	}
}

func TestUpdateEventKeepsExistingConference(t *testing.T) {
	svc := newFakeService()
	svc.events["primary"]["ev1"] = &schedule.Event{
		ID:          "ev1",
		Summary:     "Standup",
		Start:       schedule.EventTime{DateTime: "2026-09-02T09:00:00Z"},
		End:         schedule.EventTime{DateTime: "2026-09-02T09:15:00Z"},
		HangoutLink: "https://meet.example.com/existing",
	}
	d := newTestDispatcher(svc)

	dr := &draft.EventDraft{
		Summary:       "Standup (moved)",
		Start:         schedule.EventTime{DateTime: "2026-09-02T09:30:00Z"},
		End:           schedule.EventTime{DateTime: "2026-09-02T09:45:00Z"},
		SourceEventID: "ev1",
	}
	updated, err := d.UpdateEvent(context.Background(), dr, "move the standup call to 9:30")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if svc.lastPatch.ConferenceRequestID != nil {
		t.Fatal("an event with a link must not get a second conference request")
	}
	if updated.HangoutLink != "https://meet.example.com/existing" {
		t.Fatal("existing link must be preserved")
	}
}

func TestDeleteMissingEventIsSuccessWithWarning(t *testing.T) {
	svc := newFakeService()
	d := newTestDispatcher(svc)

	warning, err := d.DeleteEvent(context.Background(), "", "gone")
	if err != nil {
		t.Fatalf("idempotent delete must not fail: %v", err)
	}
	if warning == "" {
		t.Fatal("deleting a missing event should produce a warning")
	}
}

func TestListEventsSkipsFailingCalendars(t *testing.T) {
	svc := newFakeService()
	svc.calendars = append(svc.calendars, schedule.CalendarInfo{ID: "work", Summary: "Work"})
	svc.events["work"] = map[string]*schedule.Event{
		"w1": {ID: "w1", Summary: "Later", Start: schedule.EventTime{DateTime: "2026-09-02T15:00:00Z"}},
	}
	svc.events["primary"]["p1"] = &schedule.Event{
		ID: "p1", Summary: "Earlier", Start: schedule.EventTime{DateTime: "2026-09-02T09:00:00Z"},
	}
	svc.calendars = append(svc.calendars, schedule.CalendarInfo{ID: "broken", Summary: "Broken"})
	svc.failCals["broken"] = errors.New("backend unavailable")

	d := newTestDispatcher(svc)
	events, err := d.ListEvents(context.Background(), &intent.ListParams{})
	if err != nil {
		t.Fatalf("one failing calendar must not abort the query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected the two healthy calendars' events, got %d", len(events))
	}
	if events[0].Summary != "Earlier" || events[1].Summary != "Later" {
		t.Fatalf("events must sort by start time: %q, %q", events[0].Summary, events[1].Summary)
	}
}

func TestListEventsSingleCalendarBypassesFanOut(t *testing.T) {
	svc := newFakeService()
	svc.events["primary"]["p1"] = &schedule.Event{
		ID: "p1", Summary: "Only", Start: schedule.EventTime{DateTime: "2026-09-02T09:00:00Z"},
	}
	d := newTestDispatcher(svc)

	events, err := d.ListEvents(context.Background(), &intent.ListParams{CalendarID: "primary"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 || events[0].Summary != "Only" {
		t.Fatalf("unexpected result: %+v", events)
	}
}

func TestCreateTaskUsesConfiguredList(t *testing.T) {
	svc := newFakeService()
	d := newTestDispatcher(svc)

	task, err := d.CreateTask(context.Background(), &intent.TaskFields{Title: "Buy milk", Due: "2026-09-03T00:00:00Z"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.ID == "" || task.Title != "Buy milk" {
		t.Fatalf("task not stored: %+v", task)
	}
}
