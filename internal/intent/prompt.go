package intent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calbot-ai/calbot/internal/schedule"
)

// Aux is the auxiliary context injected into every interpretation request.
type Aux struct {
	// Now anchors relative phrases ("tomorrow", "next Friday").
	Now time.Time
	// TimeZone is the user's IANA zone name.
	TimeZone string
	// Calendars available to the user.
	Calendars []schedule.CalendarInfo
	// Draft is a JSON-marshalable snapshot of the pending event draft, nil
	// when no draft is live.
	Draft any
	// EditEventID is set when the draft edits an existing event.
	EditEventID string
	// Conflicts found for the pending draft, empty otherwise.
	Conflicts schedule.ConflictSet
	// ConferenceKeywords are the trigger words that force a meeting link.
	ConferenceKeywords []string
}

const policyPreamble = `You are a calendar assistant. You manage the user's calendar events and tasks through the available functions.

Rules:
- Always call a function when one applies to the user's request. Only answer in plain text for chit-chat with no calendar meaning.
- When required fields for an event (title or start time) are missing, ask exactly one clarifying question via the followUpQuestion parameter. Never ask a question and submit a complete event in the same turn.
- All date-times must be RFC 3339 with an explicit UTC offset. Resolve relative phrases against the current date-time given below.
- If the end time is not stated, omit it; a one-hour duration is applied automatically.
- Never fabricate an attendee email address. When the user names a person without an address, call find_contacts first.
- When conflicting events are listed below, do not silently proceed: tell the user about the overlap and propose rescheduling, overriding, or cancelling.`

// BuildSystemPrompt renders the fixed instruction policy plus the auxiliary
// context for one request.
func BuildSystemPrompt(aux *Aux) string {
	var b strings.Builder
	b.WriteString(policyPreamble)

	if len(aux.ConferenceKeywords) > 0 {
		fmt.Fprintf(&b, "\n- If the user's words include any of [%s], set conference to true.",
			strings.Join(aux.ConferenceKeywords, ", "))
	}

	fmt.Fprintf(&b, "\n\nCurrent date-time: %s", aux.Now.Format(time.RFC3339))
	if aux.TimeZone != "" {
		fmt.Fprintf(&b, "\nUser time zone: %s", aux.TimeZone)
	}

	if len(aux.Calendars) > 0 {
		if data, err := json.Marshal(aux.Calendars); err == nil {
			fmt.Fprintf(&b, "\nAvailable calendars: %s", data)
		}
	}

	if aux.Draft != nil {
		if data, err := json.Marshal(aux.Draft); err == nil {
			fmt.Fprintf(&b, "\nPending event draft: %s", data)
		}
		if aux.EditEventID != "" {
			fmt.Fprintf(&b, "\nThe draft edits existing event %s.", aux.EditEventID)
		}
	}

	if len(aux.Conflicts) > 0 {
		if data, err := json.Marshal(aux.Conflicts); err == nil {
			fmt.Fprintf(&b, "\nConflicting events for the pending draft: %s", data)
		}
	}

	return b.String()
}
