package intent

import (
	"strings"
	"testing"
	"time"

	"github.com/calbot-ai/calbot/internal/schedule"
)

func TestBuildSystemPromptCarriesContext(t *testing.T) {
	now := time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC)
	aux := &Aux{
		Now:                now,
		TimeZone:           "Europe/Berlin",
		Calendars:          []schedule.CalendarInfo{{ID: "primary", Summary: "Primary", Primary: true}},
		Draft:              map[string]string{"summary": "Team sync"},
		EditEventID:        "ev42",
		ConferenceKeywords: []string{"call", "sync"},
		Conflicts: schedule.ConflictSet{
			"busy": {EventID: "busy", Summary: "Standup"},
		},
	}

	prompt := BuildSystemPrompt(aux)
	for _, want := range []string{
		"2026-09-01T08:30:00Z",
		"Europe/Berlin",
		"primary",
		"Team sync",
		"ev42",
		"Standup",
		"call, sync",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildSystemPromptMinimal(t *testing.T) {
	prompt := BuildSystemPrompt(&Aux{Now: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)})
	if strings.Contains(prompt, "Pending event draft") {
		t.Fatal("no draft means no draft section")
	}
	if strings.Contains(prompt, "Conflicting events") {
		t.Fatal("no conflicts means no conflict section")
	}
}

func TestDefinitionsCoverEveryAction(t *testing.T) {
	defs := Definitions()
	if len(defs) != len(toolActions) {
		t.Fatalf("expected %d tool definitions, got %d", len(toolActions), len(defs))
	}
	seen := map[string]bool{}
	for _, d := range defs {
		seen[d.Function.Name] = true
	}
	for name := range toolActions {
		if !seen[name] {
			t.Errorf("no definition for tool %q", name)
		}
	}
}
