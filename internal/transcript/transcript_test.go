package transcript

import (
	"fmt"
	"testing"
)

func TestAppendPreservesOrder(t *testing.T) {
	l := NewLog(0)
	l.AppendUser("schedule a call")
	l.AppendModel("with whom?")
	l.AppendTool("find_contacts", map[string]any{"name": "sam"}, "Sam <sam@example.com>")

	turns := l.All()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[1].Role != RoleModel || turns[2].Role != RoleTool {
		t.Fatalf("unexpected role order: %s, %s, %s", turns[0].Role, turns[1].Role, turns[2].Role)
	}
	if turns[2].Tool == nil || turns[2].Tool.Name != "find_contacts" {
		t.Fatal("tool turn lost its record")
	}
	if turns[0].Timestamp.IsZero() {
		t.Fatal("append should stamp the turn")
	}
}

func TestContextWindowsToMostRecent(t *testing.T) {
	l := NewLog(4)
	for i := 0; i < 10; i++ {
		l.AppendUser(fmt.Sprintf("turn %d", i))
	}

	ctx := l.Context()
	if len(ctx) != 4 {
		t.Fatalf("expected window of 4, got %d", len(ctx))
	}
	if ctx[0].Content != "turn 6" || ctx[3].Content != "turn 9" {
		t.Fatalf("window returned wrong turns: %q .. %q", ctx[0].Content, ctx[3].Content)
	}
	if l.Len() != 10 {
		t.Fatalf("windowing must not drop history, have %d turns", l.Len())
	}
}

func TestContextUnboundedWhenWindowZero(t *testing.T) {
	l := NewLog(0)
	for i := 0; i < 5; i++ {
		l.AppendUser("x")
	}
	if got := len(l.Context()); got != 5 {
		t.Fatalf("expected all 5 turns, got %d", got)
	}
}

func TestContextReturnsCopy(t *testing.T) {
	l := NewLog(0)
	l.AppendUser("original")

	ctx := l.Context()
	ctx[0].Content = "mutated"

	if l.All()[0].Content != "original" {
		t.Fatal("caller mutation leaked into the log")
	}
}

func TestClear(t *testing.T) {
	l := NewLog(0)
	l.AppendUser("a")
	l.AppendModel("b")
	l.Clear()
	if l.Len() != 0 {
		t.Fatalf("expected empty log after clear, got %d", l.Len())
	}
}
