package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIChatParsesToolCalls(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"choices": [{
				"message": {
					"role": "assistant",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "create_event", "arguments": "{\"summary\":\"Team sync\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL, "gpt-4o-mini")
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "policy"},
			{Role: "user", Content: "team sync tomorrow"},
		},
		Tools: []ToolDefinition{{Type: "function", Function: FunctionDef{Name: "create_event"}}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "create_event" {
		t.Fatalf("tool call not parsed: %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments["summary"] != "Team sync" {
		t.Fatalf("stringified arguments not decoded: %v", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Fatalf("usage not parsed: %+v", resp.Usage)
	}

	if captured["tool_choice"] != "auto" {
		t.Fatal("tools present must set tool_choice auto")
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Fatalf("default model not applied: %v", captured["model"])
	}
}

func TestOpenAIChatMultimodalContent(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &captured)
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "")
	_, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{
			Role:    "user",
			Content: "schedule what this shows",
			Images:  []ImagePart{{MIMEType: "image/png", Data: []byte{0x89, 0x50}}},
		}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	msgs := captured["messages"].([]any)
	parts, ok := msgs[0].(map[string]any)["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("expected text and image parts, got %v", msgs[0])
	}
	img := parts[1].(map[string]any)
	url := img["image_url"].(map[string]any)["url"].(string)
	if url[:22] != "data:image/png;base64," {
		t.Fatalf("image must travel as a base64 data URL, got %q", url)
	}
}

func TestOpenAIChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"rate limit"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("k", srv.URL, "")
	if _, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Fatal("non-200 must surface as an error")
	}
}
