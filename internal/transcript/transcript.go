// Package transcript provides the append-only conversation log.
package transcript

import (
	"sync"
	"time"
)

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// ToolRecord is the structured payload of a tool-originated turn.
type ToolRecord struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    string         `json:"result"`
}

// Turn is one atomic entry in the conversation. Turns are immutable once
// appended; insertion order is the only ordering guarantee.
type Turn struct {
	Role      string      `json:"role"`
	Content   string      `json:"content"`
	Tool      *ToolRecord `json:"tool,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitempty"`
}

// Log is the ordered conversation transcript. It holds no network or view
// references; it is pure state.
type Log struct {
	mu     sync.RWMutex
	turns  []Turn
	window int
}

// NewLog creates an empty transcript. window bounds the number of
// most-recent turns returned by Context; zero or negative means every turn
// is replayed.
func NewLog(window int) *Log {
	return &Log{window: window}
}

// Append adds a turn to the log. It never rejects.
func (l *Log) Append(turn Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	l.turns = append(l.turns, turn)
}

// AppendUser records a user utterance.
func (l *Log) AppendUser(content string) {
	l.Append(Turn{Role: RoleUser, Content: content})
}

// AppendModel records a model response.
func (l *Log) AppendModel(content string) {
	l.Append(Turn{Role: RoleModel, Content: content})
}

// AppendTool records a tool call and its result.
func (l *Log) AppendTool(name string, args map[string]any, result string) {
	l.Append(Turn{
		Role:    RoleTool,
		Content: result,
		Tool:    &ToolRecord{Name: name, Arguments: args, Result: result},
	})
}

// Context returns the turns replayed to the model, windowed to the
// configured most-recent count. The returned slice is a copy.
func (l *Log) Context() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	turns := l.turns
	if l.window > 0 && len(turns) > l.window {
		turns = turns[len(turns)-l.window:]
	}
	result := make([]Turn, len(turns))
	copy(result, turns)
	return result
}

// All returns every turn in insertion order. The returned slice is a copy.
func (l *Log) All() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Turn, len(l.turns))
	copy(result, l.turns)
	return result
}

// Len returns the number of recorded turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Clear empties the log. Used on sign-out or reset.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}
