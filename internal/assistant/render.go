package assistant

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/calbot-ai/calbot/internal/draft"
	"github.com/calbot-ai/calbot/internal/intent"
	"github.com/calbot-ai/calbot/internal/schedule"
)

// formatConfirmation renders the draft summary card shown before a commit.
func formatConfirmation(dr *draft.EventDraft, action intent.Action, loc *time.Location) string {
	var b strings.Builder
	if action == intent.ActionEditEvent {
		b.WriteString("Here's the updated event:\n")
	} else {
		b.WriteString("Here's what I'll schedule:\n")
	}
	fmt.Fprintf(&b, "  %s\n", dr.Summary)

	start, end, err := dr.TimeRange(loc)
	switch {
	case err != nil:
		// A draft that reached confirmation always parsed once already;
		// fall back to the raw values rather than dropping the card.
		fmt.Fprintf(&b, "  %s to %s\n", dr.Start.DateTime+dr.Start.Date, dr.End.DateTime+dr.End.Date)
	case dr.Start.AllDay():
		fmt.Fprintf(&b, "  %s (all day)\n", start.Format("Monday, 2 January 2006"))
	default:
		fmt.Fprintf(&b, "  %s, %s to %s\n",
			start.Format("Monday, 2 January 2006"),
			start.Format("15:04"), end.Format("15:04"))
	}
	if dr.Location != "" {
		fmt.Fprintf(&b, "  at %s\n", dr.Location)
	}
	if len(dr.Attendees) > 0 {
		fmt.Fprintf(&b, "  with %s\n", strings.Join(dr.Attendees, ", "))
	}
	if dr.Conference {
		b.WriteString("  includes a meeting link\n")
	}
	b.WriteString("Shall I go ahead?")
	return b.String()
}

// formatConflicts renders the overlap warning shown instead of a
// confirmation card.
func formatConflicts(set schedule.ConflictSet) string {
	conflicts := make([]schedule.Conflict, 0, len(set))
	for _, c := range set {
		conflicts = append(conflicts, c)
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Start.Before(conflicts[j].Start) })

	var b strings.Builder
	b.WriteString("That time overlaps with:\n")
	for _, c := range conflicts {
		fmt.Fprintf(&b, "  %s (%s to %s)\n", c.Summary,
			c.Start.Format("Mon 15:04"), c.End.Format("15:04"))
	}
	b.WriteString("Would you like a different time, or should I book it anyway?")
	return b.String()
}

// formatEventList renders a fetched agenda, grouped by day.
func formatEventList(events []*schedule.Event, loc *time.Location) string {
	if len(events) == 0 {
		return "Nothing on the calendar for that period."
	}

	var b strings.Builder
	lastDay := ""
	for _, ev := range events {
		start, err := ev.Start.Resolve(loc)
		if err != nil {
			continue
		}
		day := start.Format("Monday, 2 January")
		if day != lastDay {
			if lastDay != "" {
				b.WriteString("\n")
			}
			b.WriteString(day + "\n")
			lastDay = day
		}
		if ev.Start.AllDay() {
			fmt.Fprintf(&b, "  all day  %s", ev.Summary)
		} else {
			fmt.Fprintf(&b, "  %s  %s", start.Format("15:04"), ev.Summary)
		}
		if ev.Location != "" {
			fmt.Fprintf(&b, " (%s)", ev.Location)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatContacts renders a contact lookup result, also fed back to the
// model as a tool turn.
func formatContacts(name string, contacts []schedule.Contact) string {
	if len(contacts) == 0 {
		return fmt.Sprintf("No contacts found matching %q.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Contacts matching %q:\n", name)
	for _, c := range contacts {
		fmt.Fprintf(&b, "  %s <%s>\n", c.Name, c.Email)
	}
	return strings.TrimRight(b.String(), "\n")
}
