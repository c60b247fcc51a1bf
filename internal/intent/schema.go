package intent

import (
	"github.com/calbot-ai/calbot/internal/provider"
)

// Tool names exposed to the model, one per permitted action.
const (
	toolCreateEvent  = "create_event"
	toolEditEvent    = "edit_event"
	toolListEvents   = "list_events"
	toolCreateTask   = "create_task"
	toolDeleteEvent  = "delete_event"
	toolFindContacts = "find_contacts"
	toolGeneralQuery = "general_query"
)

var toolActions = map[string]Action{
	toolCreateEvent:  ActionCreateEvent,
	toolEditEvent:    ActionEditEvent,
	toolListEvents:   ActionListEvents,
	toolCreateTask:   ActionCreateTask,
	toolDeleteEvent:  ActionDeleteEvent,
	toolFindContacts: ActionFindContacts,
	toolGeneralQuery: ActionGeneralQuery,
}

// timeSchema describes a start/end parameter: an RFC 3339 date-time with
// offset, or a bare date for all-day events.
func timeSchema(desc string) map[string]any {
	return map[string]any{
		"type":        "object",
		"description": desc,
		"properties": map[string]any{
			"dateTime": map[string]any{
				"type":        "string",
				"description": "RFC 3339 date-time with explicit offset, e.g. 2026-09-01T10:00:00+02:00",
			},
			"date": map[string]any{
				"type":        "string",
				"description": "YYYY-MM-DD for all-day events",
			},
			"timeZone": map[string]any{
				"type":        "string",
				"description": "IANA time zone name",
			},
		},
	}
}

func eventProperties() map[string]any {
	return map[string]any{
		"summary":     map[string]any{"type": "string", "description": "Event title"},
		"description": map[string]any{"type": "string"},
		"location":    map[string]any{"type": "string"},
		"start":       timeSchema("Event start"),
		"end":         timeSchema("Event end; omit to default to one hour after start"),
		"attendees": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Attendee email addresses. Never invent an address; use find_contacts for bare names.",
		},
		"conference": map[string]any{
			"type":        "boolean",
			"description": "Attach a meeting link",
		},
		"calendarId": map[string]any{"type": "string"},
		"followUpQuestion": map[string]any{
			"type":        "string",
			"description": "The single clarifying question to ask when required fields are missing. Do not set it when the event is ready.",
		},
	}
}

// Definitions returns the function/tool schema sent with every
// interpretation request.
func Definitions() []provider.ToolDefinition {
	createProps := eventProperties()

	editProps := eventProperties()
	editProps["eventId"] = map[string]any{
		"type":        "string",
		"description": "ID of the event being edited",
	}

	defs := []provider.FunctionDef{
		{
			Name:        toolCreateEvent,
			Description: "Create a calendar event from the details gathered so far. Supply only fields the user actually stated.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": createProps,
			},
		},
		{
			Name:        toolEditEvent,
			Description: "Update an existing calendar event. Supply only the fields that change.",
			Parameters: map[string]any{
				"type":       "object",
				"properties": editProps,
			},
		},
		{
			Name:        toolListEvents,
			Description: "List calendar events in a time window.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"calendarId": map[string]any{"type": "string"},
					"timeMin":    map[string]any{"type": "string", "description": "RFC 3339 lower bound"},
					"timeMax":    map[string]any{"type": "string", "description": "RFC 3339 upper bound"},
					"query":      map[string]any{"type": "string", "description": "Free-text filter"},
					"maxResults": map[string]any{"type": "integer"},
				},
			},
		},
		{
			Name:        toolCreateTask,
			Description: "Create a task on the user's task list.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string"},
					"notes": map[string]any{"type": "string"},
					"due":   map[string]any{"type": "string", "description": "RFC 3339 due date"},
				},
				"required": []string{"title"},
			},
		},
		{
			Name:        toolDeleteEvent,
			Description: "Delete a calendar event by ID.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"calendarId": map[string]any{"type": "string"},
					"eventId":    map[string]any{"type": "string"},
				},
				"required": []string{"eventId"},
			},
		},
		{
			Name:        toolFindContacts,
			Description: "Look up a person's email address by name in the user's contacts.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":     map[string]any{"type": "string"},
					"pageSize": map[string]any{"type": "integer"},
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        toolGeneralQuery,
			Description: "Answer a general question that needs no calendar operation.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"response": map[string]any{"type": "string"},
				},
			},
		},
	}

	result := make([]provider.ToolDefinition, len(defs))
	for i, d := range defs {
		result[i] = provider.ToolDefinition{Type: "function", Function: d}
	}
	return result
}
