package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/calbot-ai/calbot/internal/provider"
	"github.com/calbot-ai/calbot/internal/schedule"
	"github.com/calbot-ai/calbot/internal/transcript"
)

// Interpreter turns conversation state plus a new utterance into an Intent.
type Interpreter struct {
	prov        provider.LLMProvider
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// NewInterpreter creates an interpreter on top of an LLM provider.
func NewInterpreter(prov provider.LLMProvider, model string, maxTokens int, temperature float64, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &Interpreter{
		prov:        prov,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Interpret sends the windowed transcript (whose final user turn is the new
// utterance), optional image attachments, and the auxiliary context to the
// model, and normalizes the reply into an Intent. The model may answer with
// a native function call or with JSON text; both land in the same shape.
func (it *Interpreter) Interpret(ctx context.Context, turns []transcript.Turn, images []provider.ImagePart, aux *Aux) (*Intent, error) {
	messages := []provider.Message{
		{Role: "system", Content: BuildSystemPrompt(aux)},
	}

	lastUser := -1
	for i, t := range turns {
		if t.Role == transcript.RoleUser {
			lastUser = i
		}
	}

	for i, t := range turns {
		switch t.Role {
		case transcript.RoleUser:
			msg := provider.Message{Role: "user", Content: t.Content}
			if i == lastUser {
				msg.Images = images
			}
			messages = append(messages, msg)
		case transcript.RoleModel:
			messages = append(messages, provider.Message{Role: "assistant", Content: t.Content})
		case transcript.RoleTool:
			// Replay tool results as plain context so every provider
			// accepts the history regardless of its function-call wire
			// format.
			name := ""
			if t.Tool != nil {
				name = t.Tool.Name
			}
			messages = append(messages, provider.Message{
				Role:    "user",
				Content: fmt.Sprintf("[%s result] %s", name, t.Content),
			})
		}
	}

	resp, err := it.prov.Chat(ctx, &provider.ChatRequest{
		Messages:    messages,
		Tools:       Definitions(),
		Model:       it.model,
		MaxTokens:   it.maxTokens,
		Temperature: it.temperature,
	})
	if err != nil {
		return nil, &ProviderError{Err: err}
	}

	it.logger.Debug("model responded",
		"tool_calls", len(resp.ToolCalls),
		"tokens", resp.Usage.TotalTokens)

	if len(resp.ToolCalls) > 0 {
		return it.fromToolCall(resp.ToolCalls[0], resp.Content)
	}
	return it.fromText(resp.Content)
}

// fromToolCall normalizes a native function call into an Intent.
func (it *Interpreter) fromToolCall(tc provider.ToolCall, content string) (*Intent, error) {
	name := strings.ToLower(strings.TrimSpace(tc.Name))
	action, ok := toolActions[name]
	if !ok {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("unknown action %q", tc.Name)}
	}

	raw, err := json.Marshal(tc.Arguments)
	if err != nil {
		return nil, &MalformedResponseError{Reason: "unencodable arguments", Raw: fmt.Sprint(tc.Arguments)}
	}

	in := &Intent{Action: action, Reply: strings.TrimSpace(content)}
	if err := decodePayload(in, action, raw); err != nil {
		return nil, &MalformedResponseError{Reason: err.Error(), Raw: string(raw)}
	}
	return in, nil
}

// fromText normalizes a plain-text model reply: JSON encoding the intent
// shape, or free text treated as a general answer.
func (it *Interpreter) fromText(content string) (*Intent, error) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if text == "" {
		return nil, &MalformedResponseError{Reason: "empty response"}
	}

	if !strings.HasPrefix(text, "{") {
		return &Intent{Action: ActionGeneralQuery, Reply: text}, nil
	}

	var wire struct {
		Action           string          `json:"action"`
		EventDetails     json.RawMessage `json:"eventDetails"`
		ListParameters   json.RawMessage `json:"listParameters"`
		TaskDetails      json.RawMessage `json:"taskDetails"`
		DeleteParameters json.RawMessage `json:"deleteParameters"`
		ContactQuery     json.RawMessage `json:"contactQuery"`
		FollowUpQuestion string          `json:"followUpQuestion"`
		GeneralResponse  string          `json:"generalResponse"`
	}
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: text}
	}

	name := strings.ToLower(strings.TrimSpace(wire.Action))
	action, ok := toolActions[name]
	if !ok {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("unknown action %q", wire.Action), Raw: text}
	}

	in := &Intent{
		Action:           action,
		FollowUpQuestion: strings.TrimSpace(wire.FollowUpQuestion),
		Reply:            strings.TrimSpace(wire.GeneralResponse),
	}

	payload := wire.EventDetails
	switch action {
	case ActionListEvents:
		payload = wire.ListParameters
	case ActionCreateTask:
		payload = wire.TaskDetails
	case ActionDeleteEvent:
		payload = wire.DeleteParameters
	case ActionFindContacts:
		payload = wire.ContactQuery
	case ActionGeneralQuery:
		payload = nil
	}
	if payload != nil {
		if err := decodePayload(in, action, payload); err != nil {
			return nil, &MalformedResponseError{Reason: err.Error(), Raw: text}
		}
	}
	return in, nil
}

// decodePayload fills the action-specific payload of an Intent from raw
// JSON arguments.
func decodePayload(in *Intent, action Action, raw []byte) error {
	switch action {
	case ActionCreateEvent, ActionEditEvent:
		var args struct {
			Summary          string   `json:"summary"`
			Description      string   `json:"description"`
			Location         string   `json:"location"`
			Start            flexTime `json:"start"`
			End              flexTime `json:"end"`
			Attendees        []string `json:"attendees"`
			Conference       bool     `json:"conference"`
			CalendarID       string   `json:"calendarId"`
			EventID          string   `json:"eventId"`
			FollowUpQuestion string   `json:"followUpQuestion"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode event fields: %w", err)
		}
		in.Event = &EventFields{
			Summary:     args.Summary,
			Description: args.Description,
			Location:    args.Location,
			Start:       schedule.EventTime(args.Start),
			End:         schedule.EventTime(args.End),
			Attendees:   args.Attendees,
			Conference:  args.Conference,
			CalendarID:  args.CalendarID,
			EventID:     args.EventID,
		}
		if in.FollowUpQuestion == "" {
			in.FollowUpQuestion = strings.TrimSpace(args.FollowUpQuestion)
		}
	case ActionListEvents:
		var args ListParams
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode list parameters: %w", err)
		}
		in.List = &args
	case ActionCreateTask:
		var args TaskFields
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode task fields: %w", err)
		}
		if strings.TrimSpace(args.Title) == "" {
			return fmt.Errorf("task has no title")
		}
		in.Task = &args
	case ActionDeleteEvent:
		var args DeleteParams
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode delete parameters: %w", err)
		}
		if strings.TrimSpace(args.EventID) == "" {
			return fmt.Errorf("delete has no event id")
		}
		in.Delete = &args
	case ActionFindContacts:
		var args ContactQuery
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("decode contact query: %w", err)
		}
		if strings.TrimSpace(args.Name) == "" {
			return fmt.Errorf("contact query has no name")
		}
		in.Contacts = &args
	case ActionGeneralQuery:
		var args struct {
			Response string `json:"response"`
		}
		if err := json.Unmarshal(raw, &args); err == nil && args.Response != "" {
			in.Reply = args.Response
		}
	}
	return nil
}

// flexTime accepts both the object form {dateTime,date,timeZone} and a bare
// string (RFC 3339 date-time or YYYY-MM-DD date).
type flexTime schedule.EventTime

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if len(s) == len("2006-01-02") {
			t.Date = s
		} else {
			t.DateTime = s
		}
		return nil
	}
	var obj schedule.EventTime
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*t = flexTime(obj)
	return nil
}
