package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Conflict is an existing event overlapping a candidate time range.
type Conflict struct {
	EventID string    `json:"eventId"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// ConflictSet holds the conflicts found for one candidate range, keyed by
// event ID.
type ConflictSet map[string]Conflict

// Checker finds events overlapping a candidate time range.
type Checker struct {
	svc    Service
	logger *slog.Logger
}

// NewChecker creates a conflict checker.
func NewChecker(svc Service, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{svc: svc, logger: logger}
}

// FindConflicts returns existing events whose interval intersects
// [start, end), skipping excludeEventID (the event being edited). It fails
// open: on API error it logs and returns an empty set so the user flow is
// never blocked by the availability check itself.
func (c *Checker) FindConflicts(ctx context.Context, calendarID string, start, end time.Time, excludeEventID string) ConflictSet {
	conflicts := ConflictSet{}

	events, err := c.svc.ListEvents(ctx, calendarID, ListOptions{
		TimeMin: start.Add(-24 * time.Hour),
		TimeMax: end.Add(24 * time.Hour),
	})
	if err != nil {
		c.logger.Warn("conflict check failed, proceeding without it", "calendarID", calendarID, "error", err)
		return conflicts
	}

	for _, ev := range events {
		if ev.ID == excludeEventID {
			continue
		}
		evStart, err := ev.Start.Resolve(start.Location())
		if err != nil {
			continue
		}
		evEnd, err := ev.End.Resolve(start.Location())
		if err != nil {
			continue
		}
		if evStart.Before(end) && evEnd.After(start) {
			conflicts[ev.ID] = Conflict{
				EventID: ev.ID,
				Summary: ev.Summary,
				Start:   evStart,
				End:     evEnd,
			}
		}
	}
	return conflicts
}
