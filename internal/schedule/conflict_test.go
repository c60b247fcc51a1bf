package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

// listStub serves a fixed event list, or an error.
type listStub struct {
	events []*Event
	err    error
}

func (s *listStub) ListCalendars(ctx context.Context) ([]CalendarInfo, error) { return nil, nil }
func (s *listStub) ListEvents(ctx context.Context, calendarID string, opts ListOptions) ([]*Event, error) {
	return s.events, s.err
}
func (s *listStub) InsertEvent(ctx context.Context, calendarID string, ev *Event) (*Event, error) {
	return nil, errors.New("not implemented")
}
func (s *listStub) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	return nil, errors.New("not implemented")
}
func (s *listStub) PatchEvent(ctx context.Context, calendarID, eventID string, patch *EventPatch) (*Event, error) {
	return nil, errors.New("not implemented")
}
func (s *listStub) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return errors.New("not implemented")
}
func (s *listStub) InsertTask(ctx context.Context, listID string, t *Task) (*Task, error) {
	return nil, errors.New("not implemented")
}
func (s *listStub) SearchContacts(ctx context.Context, query string, pageSize int64) ([]Contact, error) {
	return nil, errors.New("not implemented")
}

func stubEvent(id, startRFC, endRFC string) *Event {
	return &Event{
		ID:      id,
		Summary: id,
		Start:   EventTime{DateTime: startRFC},
		End:     EventTime{DateTime: endRFC},
	}
}

func TestFindConflictsOverlapBounds(t *testing.T) {
	// Candidate range: 10:00 to 11:00.
	start := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 2, 11, 0, 0, 0, time.UTC)

	stub := &listStub{events: []*Event{
		stubEvent("before", "2026-09-02T08:00:00Z", "2026-09-02T09:00:00Z"),
		stubEvent("touch-start", "2026-09-02T09:00:00Z", "2026-09-02T10:00:00Z"), // ends exactly at start
		stubEvent("overlap-head", "2026-09-02T09:30:00Z", "2026-09-02T10:30:00Z"),
		stubEvent("inside", "2026-09-02T10:15:00Z", "2026-09-02T10:45:00Z"),
		stubEvent("overlap-tail", "2026-09-02T10:45:00Z", "2026-09-02T11:30:00Z"),
		stubEvent("touch-end", "2026-09-02T11:00:00Z", "2026-09-02T12:00:00Z"), // starts exactly at end
		stubEvent("after", "2026-09-02T13:00:00Z", "2026-09-02T14:00:00Z"),
	}}

	set := NewChecker(stub, nil).FindConflicts(context.Background(), "primary", start, end, "")
	for _, want := range []string{"overlap-head", "inside", "overlap-tail"} {
		if _, ok := set[want]; !ok {
			t.Errorf("expected %s in the conflict set", want)
		}
	}
	for _, absent := range []string{"before", "after", "touch-start", "touch-end"} {
		if _, ok := set[absent]; ok {
			t.Errorf("back-to-back or distant event %s must not conflict", absent)
		}
	}
}

func TestFindConflictsExcludesEditedEvent(t *testing.T) {
	start := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	stub := &listStub{events: []*Event{
		stubEvent("ev1", "2026-09-02T10:00:00Z", "2026-09-02T11:00:00Z"),
	}}

	set := NewChecker(stub, nil).FindConflicts(context.Background(), "primary", start, end, "ev1")
	if len(set) != 0 {
		t.Fatalf("the edited event must not conflict with itself: %v", set)
	}
}

func TestFindConflictsFailsOpen(t *testing.T) {
	start := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	stub := &listStub{err: errors.New("calendar backend down")}

	set := NewChecker(stub, nil).FindConflicts(context.Background(), "primary", start, start.Add(time.Hour), "")
	if set == nil || len(set) != 0 {
		t.Fatalf("an API failure must yield an empty set, got %v", set)
	}
}
