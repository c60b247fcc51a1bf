package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calbot-ai/calbot/internal/bus"
	"github.com/calbot-ai/calbot/internal/schedule"
	"github.com/fatih/color"
)

// chatView renders assistant events to the terminal. On calendar_refresh it
// refetches the affected month and redraws the grid.
type chatView struct {
	ctx        context.Context
	svc        schedule.Service
	loc        *time.Location
	calendarID string
}

func newChatView(ctx context.Context, svc schedule.Service, loc *time.Location, calendarID string) *chatView {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &chatView{ctx: ctx, svc: svc, loc: loc, calendarID: calendarID}
}

func (v *chatView) render(e *bus.Event) {
	switch e.Kind {
	case bus.KindReply:
		fmt.Println(color.CyanString("bot> ") + e.Content)
	case bus.KindFollowUp:
		fmt.Println(color.YellowString("bot? ") + e.Content)
	case bus.KindConfirmation:
		fmt.Println(color.MagentaString("bot! ") + e.Content)
	case bus.KindError:
		fmt.Println(color.RedString("bot✗ ") + e.Content)
	case bus.KindCalendarRefresh:
		v.renderMonth(e.Date)
	}
}

// renderMonth draws a month grid around the given day, with event days
// highlighted, followed by that day's agenda.
func (v *chatView) renderMonth(date string) {
	day, err := time.ParseInLocation("2006-01-02", date, v.loc)
	if err != nil {
		day = time.Now().In(v.loc)
	}

	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, v.loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	events, err := v.svc.ListEvents(v.ctx, v.calendarID, schedule.ListOptions{
		TimeMin: monthStart, TimeMax: monthEnd, MaxResults: 250,
	})
	if err != nil {
		// The mutation already succeeded; a failed redraw is only noise.
		return
	}

	busyDays := map[int]bool{}
	for _, ev := range events {
		if start, rerr := ev.Start.Resolve(v.loc); rerr == nil && start.Month() == day.Month() {
			busyDays[start.Day()] = true
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", color.New(color.Bold).Sprint(monthStart.Format("January 2006")))
	b.WriteString("Mo Tu We Th Fr Sa Su\n")

	// Monday-first offset of the 1st.
	offset := (int(monthStart.Weekday()) + 6) % 7
	b.WriteString(strings.Repeat("   ", offset))
	col := offset
	for d := 1; d <= monthEnd.AddDate(0, 0, -1).Day(); d++ {
		cell := fmt.Sprintf("%2d", d)
		switch {
		case d == day.Day():
			cell = color.New(color.BgCyan, color.FgBlack).Sprint(cell)
		case busyDays[d]:
			cell = color.GreenString(cell)
		}
		b.WriteString(cell)
		col++
		if col%7 == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	if col%7 != 0 {
		b.WriteString("\n")
	}
	fmt.Println(b.String())

	v.renderDay(day, events)
}

// renderDay prints the agenda for one day from an already-fetched month.
func (v *chatView) renderDay(day time.Time, events []*schedule.Event) {
	var lines []string
	for _, ev := range events {
		start, err := ev.Start.Resolve(v.loc)
		if err != nil || start.Day() != day.Day() || start.Month() != day.Month() {
			continue
		}
		if ev.Start.AllDay() {
			lines = append(lines, fmt.Sprintf("  all day  %s", ev.Summary))
		} else {
			lines = append(lines, fmt.Sprintf("  %s  %s", start.Format("15:04"), ev.Summary))
		}
	}
	if len(lines) == 0 {
		return
	}
	fmt.Println(color.New(color.Bold).Sprint(day.Format("Monday, 2 January")))
	for _, l := range lines {
		fmt.Println(l)
	}
	fmt.Println()
}
