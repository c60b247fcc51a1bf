package draft

import (
	"strings"
	"sync"
	"time"

	"github.com/calbot-ai/calbot/internal/intent"
	"github.com/calbot-ai/calbot/internal/schedule"
)

// State of the confirmation machine.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateConflictCheck
	StateAwaitingConfirmation
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateConflictCheck:
		return "conflict_check"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// Step tells the orchestrator what to do after an intent was applied.
type Step int

const (
	// StepAskFollowUp surfaces a clarifying question and waits.
	StepAskFollowUp Step = iota
	// StepCheckConflicts runs the conflict checker on the completed draft.
	StepCheckConflicts
)

// SessionContext owns all mutable conversation state: the single live
// draft, its edit pointer, the pending conflict set, and the machine state.
// One Reset covers sign-out.
type SessionContext struct {
	mu        sync.Mutex
	state     State
	draft     *EventDraft
	action    intent.Action // CREATE_EVENT or EDIT_EVENT
	conflicts schedule.ConflictSet
	override  bool   // user accepted the pending conflicts
	utterance string // the user words that opened or extended the draft
}

// NewSessionContext returns an Idle context with no live draft.
func NewSessionContext() *SessionContext {
	return &SessionContext{state: StateIdle}
}

// State returns the current machine state.
func (s *SessionContext) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns the live draft, or nil when Idle. The returned pointer is
// the owned draft; callers treat it as read-only.
func (s *SessionContext) Draft() *EventDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Action returns whether the live draft creates or edits an event.
func (s *SessionContext) Action() intent.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

// Conflicts returns the conflict set found for the live draft.
func (s *SessionContext) Conflicts() schedule.ConflictSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conflicts
}

// Utterance returns the accumulated user wording behind the draft, used for
// conference trigger-word detection at dispatch time.
func (s *SessionContext) Utterance() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.utterance
}

// Begin starts a new draft for a CREATE_EVENT or EDIT_EVENT intent. Any
// pending draft is discarded: last writer wins, there is no queue. seed is
// non-nil in edit mode (the fetched existing event).
func (s *SessionContext) Begin(action intent.Action, seed *EventDraft, fields *intent.EventFields, utterance string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := seed
	if base == nil {
		base = &EventDraft{}
	}
	s.draft = base.merged(fields)
	s.action = action
	s.conflicts = nil
	s.override = false
	s.utterance = utterance
	s.state = StateCollecting
}

// Apply merges another round of fields into the live draft while
// Collecting. The merge is built on a copy and swapped in whole.
func (s *SessionContext) Apply(fields *intent.EventFields, utterance string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		s.draft = &EventDraft{}
		s.action = intent.ActionCreateEvent
	}
	if fields != nil && (!fields.Start.IsZero() || !fields.End.IsZero()) {
		// A moved event needs a fresh conflict check.
		s.override = false
	}
	s.draft = s.draft.merged(fields)
	if utterance != "" {
		s.utterance = s.utterance + "\n" + utterance
	}
	s.state = StateCollecting
}

// EnsureEnd derives the live draft's end time when only a start is set.
func (s *SessionContext) EnsureEnd(defaultDuration time.Duration, loc *time.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft != nil {
		s.draft.EnsureEnd(defaultDuration, loc)
	}
}

// Decide picks the next step while Collecting: a follow-up question keeps
// the machine collecting; a complete draft moves to the conflict check.
func (s *SessionContext) Decide(followUp string) Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	if followUp != "" || s.draft == nil || !s.draft.Complete() {
		s.state = StateCollecting
		return StepAskFollowUp
	}
	s.state = StateConflictCheck
	return StepCheckConflicts
}

// RecordConflicts routes the conflict-check outcome: a non-empty set drops
// the machine back to Collecting (the model proposes a resolution next
// turn), an empty one advances to AwaitingConfirmation. Reports whether the
// draft may be confirmed.
func (s *SessionContext) RecordConflicts(set schedule.ConflictSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(set) > 0 {
		s.conflicts = set
		s.state = StateCollecting
		return false
	}
	s.conflicts = nil
	s.state = StateAwaitingConfirmation
	return true
}

// OverrideConflicts records the user's permission to double-book over the
// pending conflict set. Reports false when no conflicts are pending, so a
// stray "book it anyway" cannot skip a check that never ran.
func (s *SessionContext) OverrideConflicts() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil || len(s.conflicts) == 0 {
		return false
	}
	s.override = true
	return true
}

// ConflictsOverridden reports whether the user accepted the pending
// conflicts; the next advance skips the conflict re-check.
func (s *SessionContext) ConflictsOverridden() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.override
}

// NeedsRevision returns the machine to Collecting with the draft intact,
// for problems the user can fix with another turn.
func (s *SessionContext) NeedsRevision() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft != nil {
		s.state = StateCollecting
	}
}

// Confirm moves an awaiting draft into Committing. Reports false when
// nothing awaits confirmation.
func (s *SessionContext) Confirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingConfirmation || s.draft == nil {
		return false
	}
	s.state = StateCommitting
	return true
}

// CommitSucceeded clears the draft and returns to Idle.
func (s *SessionContext) CommitSucceeded() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = nil
	s.action = ""
	s.conflicts = nil
	s.override = false
	s.utterance = ""
	s.state = StateIdle
}

// CommitFailed returns to Idle but preserves the draft so the user's input
// survives a failed API call. The next CREATE/EDIT intent merges into it or
// discards it.
func (s *SessionContext) CommitFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conflicts = nil
	s.state = StateIdle
}

// Cancel discards the draft and returns to Idle.
func (s *SessionContext) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.draft = nil
	s.action = ""
	s.conflicts = nil
	s.override = false
	s.utterance = ""
	s.state = StateIdle
}

// RemoveAttendees drops the named attendee tokens from the live draft.
// Used when bare names fail address validation: the rejected tokens leave
// the draft so the resolved addresses merged in next round replace rather
// than join them.
func (s *SessionContext) RemoveAttendees(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil || len(names) == 0 {
		return
	}
	kept := s.draft.Attendees[:0]
	for _, a := range s.draft.Attendees {
		drop := false
		for _, n := range names {
			if strings.EqualFold(a, n) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, a)
		}
	}
	s.draft.Attendees = kept
}

// Reset atomically discards everything. Invoked on sign-out so a stale
// operation can never complete against a revoked session.
func (s *SessionContext) Reset() {
	s.Cancel()
}
