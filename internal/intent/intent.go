// Package intent interprets user utterances into structured action
// decisions via the LLM function-calling boundary.
package intent

import (
	"fmt"

	"github.com/calbot-ai/calbot/internal/schedule"
)

// Action identifies what the user wants done.
type Action string

// Permitted actions. Anything else coming back from the model is rejected.
const (
	ActionCreateEvent  Action = "CREATE_EVENT"
	ActionEditEvent    Action = "EDIT_EVENT"
	ActionListEvents   Action = "LIST_EVENTS"
	ActionCreateTask   Action = "CREATE_TASK"
	ActionDeleteEvent  Action = "DELETE_EVENT"
	ActionFindContacts Action = "FIND_CONTACTS"
	ActionGeneralQuery Action = "GENERAL_QUERY"
)

// EventFields is the partial event payload of a CREATE_EVENT or EDIT_EVENT
// intent. Zero values mean "not mentioned this turn".
type EventFields struct {
	Summary     string             `json:"summary,omitempty"`
	Description string             `json:"description,omitempty"`
	Location    string             `json:"location,omitempty"`
	Start       schedule.EventTime `json:"start,omitzero"`
	End         schedule.EventTime `json:"end,omitzero"`
	Attendees   []string           `json:"attendees,omitempty"`
	Conference  bool               `json:"conference,omitempty"`
	CalendarID  string             `json:"calendarId,omitempty"`
	EventID     string             `json:"eventId,omitempty"` // edit target
}

// ListParams narrows a LIST_EVENTS intent.
type ListParams struct {
	CalendarID string `json:"calendarId,omitempty"`
	TimeMin    string `json:"timeMin,omitempty"`
	TimeMax    string `json:"timeMax,omitempty"`
	Query      string `json:"query,omitempty"`
	MaxResults int64  `json:"maxResults,omitempty"`
}

// TaskFields is the payload of a CREATE_TASK intent.
type TaskFields struct {
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
	Due   string `json:"due,omitempty"`
}

// DeleteParams identifies the event a DELETE_EVENT intent targets.
type DeleteParams struct {
	CalendarID string `json:"calendarId,omitempty"`
	EventID    string `json:"eventId"`
}

// ContactQuery is the payload of a FIND_CONTACTS intent.
type ContactQuery struct {
	Name     string `json:"name"`
	PageSize int64  `json:"pageSize,omitempty"`
}

// Intent is the structured decision for one turn: a tagged union with
// exactly one payload populated for the given action, plus an optional
// follow-up question and natural-language reply. A follow-up question and a
// ready-to-execute decision are mutually exclusive per turn.
type Intent struct {
	Action   Action
	Event    *EventFields
	List     *ListParams
	Task     *TaskFields
	Delete   *DeleteParams
	Contacts *ContactQuery

	// FollowUpQuestion, when set, means required fields are missing and
	// execution must wait for the user's answer.
	FollowUpQuestion string
	// Reply is shown verbatim to the user.
	Reply string
}

// NeedsFollowUp reports whether execution must be deferred this turn.
func (i *Intent) NeedsFollowUp() bool {
	return i.FollowUpQuestion != ""
}

// ProviderError wraps a failed LLM call (auth, quota, network). Recoverable:
// the draft is left untouched and the user may retry.
type ProviderError struct {
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("llm provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// MalformedResponseError indicates model output that could not be parsed
// into the expected schema. Recoverable: no draft state is mutated on this
// path.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}
