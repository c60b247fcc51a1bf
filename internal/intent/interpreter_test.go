package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/calbot-ai/calbot/internal/provider"
	"github.com/calbot-ai/calbot/internal/transcript"
)

// scriptedProvider returns canned responses and records the request.
type scriptedProvider struct {
	resp    *provider.ChatResponse
	err     error
	lastReq *provider.ChatRequest
}

func (p *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return p.resp, nil
}

func (p *scriptedProvider) Transcribe(ctx context.Context, req *provider.AudioRequest) (*provider.AudioResponse, error) {
	return nil, errors.New("not implemented")
}

func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func interpretOne(t *testing.T, prov *scriptedProvider, turns []transcript.Turn) (*Intent, error) {
	t.Helper()
	it := NewInterpreter(prov, "test-model", 1024, 0, nil)
	return it.Interpret(context.Background(), turns, nil, &Aux{TimeZone: "UTC"})
}

func userTurns(texts ...string) []transcript.Turn {
	var turns []transcript.Turn
	for _, s := range texts {
		turns = append(turns, transcript.Turn{Role: transcript.RoleUser, Content: s})
	}
	return turns
}

func TestInterpretNativeToolCall(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{
		ToolCalls: []provider.ToolCall{{
			Name: "create_event",
			Arguments: map[string]any{
				"summary":   "Team sync",
				"start":     "2026-09-02T10:00:00+02:00",
				"attendees": []any{"ana@example.com"},
			},
		}},
	}}

	in, err := interpretOne(t, prov, userTurns("team sync tomorrow at 10 with ana"))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if in.Action != ActionCreateEvent {
		t.Fatalf("expected CREATE_EVENT, got %s", in.Action)
	}
	if in.Event == nil || in.Event.Summary != "Team sync" {
		t.Fatalf("event fields not decoded: %+v", in.Event)
	}
	if in.Event.Start.DateTime != "2026-09-02T10:00:00+02:00" {
		t.Fatalf("bare string time not accepted: %+v", in.Event.Start)
	}
	if len(in.Event.Attendees) != 1 {
		t.Fatalf("attendees not decoded: %v", in.Event.Attendees)
	}
}

func TestInterpretJSONTextResponse(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{
		Content: "```json\n" +
			`{"action":"CREATE_EVENT","eventDetails":{"summary":"Lunch","start":{"date":"2026-09-05"}},"followUpQuestion":"Should it be all day?"}` +
			"\n```",
	}}

	in, err := interpretOne(t, prov, userTurns("lunch on saturday"))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if in.Action != ActionCreateEvent || in.Event.Summary != "Lunch" {
		t.Fatalf("fenced JSON not decoded: %+v", in)
	}
	if in.Event.Start.Date != "2026-09-05" {
		t.Fatalf("object time not decoded: %+v", in.Event.Start)
	}
	if in.FollowUpQuestion != "Should it be all day?" {
		t.Fatalf("follow-up lost: %q", in.FollowUpQuestion)
	}
}

func TestInterpretFreeTextFallsBackToGeneral(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{
		Content: "You have a quiet afternoon.",
	}}

	in, err := interpretOne(t, prov, userTurns("how busy am I?"))
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if in.Action != ActionGeneralQuery || in.Reply != "You have a quiet afternoon." {
		t.Fatalf("free text should become a general reply: %+v", in)
	}
}

func TestInterpretUnknownActionIsMalformed(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{
		ToolCalls: []provider.ToolCall{{Name: "launch_rocket"}},
	}}

	_, err := interpretOne(t, prov, userTurns("do it"))
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestInterpretInvalidJSONIsMalformed(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{
		Content: `{"action": "CREATE_EVENT", "eventDetails": {`,
	}}

	_, err := interpretOne(t, prov, userTurns("x"))
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestInterpretProviderFailureIsProviderError(t *testing.T) {
	prov := &scriptedProvider{err: errors.New("429 too many requests")}

	_, err := interpretOne(t, prov, userTurns("x"))
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
}

func TestInterpretDeleteWithoutIDIsMalformed(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{
		ToolCalls: []provider.ToolCall{{Name: "delete_event", Arguments: map[string]any{}}},
	}}

	_, err := interpretOne(t, prov, userTurns("delete it"))
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestInterpretReplaysToolTurnsAsUserContext(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{Content: "ok"}}

	turns := []transcript.Turn{
		{Role: transcript.RoleUser, Content: "planning with bob"},
		{Role: transcript.RoleTool, Content: "Bob <bob@example.com>",
			Tool: &transcript.ToolRecord{Name: "find_contacts", Result: "Bob <bob@example.com>"}},
		{Role: transcript.RoleUser, Content: "use that address"},
	}
	if _, err := interpretOne(t, prov, turns); err != nil {
		t.Fatalf("interpret: %v", err)
	}

	msgs := prov.lastReq.Messages
	// system + three history turns
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[2].Role != "user" || msgs[2].Content != "[find_contacts result] Bob <bob@example.com>" {
		t.Fatalf("tool turn not replayed as plain context: %+v", msgs[2])
	}
	if len(prov.lastReq.Tools) == 0 {
		t.Fatal("tool definitions must accompany every request")
	}
}

func TestInterpretAttachesImagesToLastUserTurn(t *testing.T) {
	prov := &scriptedProvider{resp: &provider.ChatResponse{Content: "ok"}}
	it := NewInterpreter(prov, "test-model", 1024, 0, nil)

	turns := userTurns("first", "schedule what this flyer shows")
	images := []provider.ImagePart{{MIMEType: "image/png", Data: []byte{1, 2, 3}}}
	if _, err := it.Interpret(context.Background(), turns, images, &Aux{}); err != nil {
		t.Fatalf("interpret: %v", err)
	}

	msgs := prov.lastReq.Messages
	if len(msgs[1].Images) != 0 {
		t.Fatal("images must not attach to earlier turns")
	}
	if len(msgs[2].Images) != 1 {
		t.Fatal("images must attach to the final user turn")
	}
}
