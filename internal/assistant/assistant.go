// Package assistant implements the conversation-to-action orchestration
// core: it turns user utterances into validated calendar operations through
// the interpreter, the draft state machine, the conflict checker, and the
// dispatcher.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/calbot-ai/calbot/internal/bus"
	"github.com/calbot-ai/calbot/internal/dispatch"
	"github.com/calbot-ai/calbot/internal/draft"
	"github.com/calbot-ai/calbot/internal/intent"
	"github.com/calbot-ai/calbot/internal/provider"
	"github.com/calbot-ai/calbot/internal/schedule"
	"github.com/calbot-ai/calbot/internal/transcript"
)

// maxInterpretRounds bounds the automatic re-interpretation loop used for
// contact resolution, so a confused model cannot spin.
const maxInterpretRounds = 3

// IntentInterpreter is the interpretation boundary the orchestrator
// depends on; tests substitute a fake.
type IntentInterpreter interface {
	Interpret(ctx context.Context, turns []transcript.Turn, images []provider.ImagePart, aux *intent.Aux) (*intent.Intent, error)
}

var affirmatives = map[string]bool{
	"yes": true, "y": true, "yep": true, "yeah": true, "sure": true,
	"ok": true, "okay": true, "confirm": true, "go ahead": true, "do it": true,
}

var negatives = map[string]bool{
	"no": true, "n": true, "nope": true, "cancel": true, "stop": true,
	"never mind": true, "nevermind": true, "abort": true,
}

// overrideHints match an answer to the conflict warning's "should I book it
// anyway?" question anywhere in the utterance.
var overrideHints = []string{"anyway", "book it", "double book", "double-book", "override"}

// wantsOverride reports whether the utterance accepts the pending
// double-booking.
func wantsOverride(text string) bool {
	phrase := strings.ToLower(strings.TrimSpace(strings.TrimRight(text, ".!")))
	if affirmatives[phrase] {
		return true
	}
	for _, hint := range overrideHints {
		if strings.Contains(phrase, hint) {
			return true
		}
	}
	return false
}

// Options wires an Assistant.
type Options struct {
	Bus                *bus.MessageBus
	Interpreter        IntentInterpreter
	Dispatcher         *dispatch.Dispatcher
	Checker            *schedule.Checker
	Service            schedule.Service
	Session            *draft.SessionContext
	Log                *transcript.Log
	Location           *time.Location
	TimeZone           string
	DefaultCalendarID  string
	DefaultDuration    time.Duration
	ConferenceKeywords []string
	Logger             *slog.Logger
	Now                func() time.Time
}

// Assistant is the orchestration core. It consumes utterances strictly one
// at a time; a new utterance is never interpreted while a previous cycle is
// in flight.
type Assistant struct {
	bus       *bus.MessageBus
	interp    IntentInterpreter
	disp      *dispatch.Dispatcher
	checker   *schedule.Checker
	svc       schedule.Service
	session   *draft.SessionContext
	log       *transcript.Log
	loc       *time.Location
	timeZone  string
	calID     string
	duration  time.Duration
	keywords  []string
	logger    *slog.Logger
	now       func() time.Time
	calendars []schedule.CalendarInfo
}

// New creates the orchestrator.
func New(opts Options) *Assistant {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	duration := opts.DefaultDuration
	if duration == 0 {
		duration = time.Hour
	}
	calID := opts.DefaultCalendarID
	if calID == "" {
		calID = "primary"
	}
	sess := opts.Session
	if sess == nil {
		sess = draft.NewSessionContext()
	}
	logArg := opts.Log
	if logArg == nil {
		logArg = transcript.NewLog(0)
	}
	return &Assistant{
		bus:      opts.Bus,
		interp:   opts.Interpreter,
		disp:     opts.Dispatcher,
		checker:  opts.Checker,
		svc:      opts.Service,
		session:  sess,
		log:      logArg,
		loc:      loc,
		timeZone: opts.TimeZone,
		calID:    calID,
		duration: duration,
		keywords: opts.ConferenceKeywords,
		logger:   logger,
		now:      now,
	}
}

// Session exposes the owned session context (for the view layer's status
// line and for tests).
func (a *Assistant) Session() *draft.SessionContext { return a.session }

// Transcript exposes the owned conversation log.
func (a *Assistant) Transcript() *transcript.Log { return a.log }

// Run consumes utterances from the bus until the context is cancelled.
func (a *Assistant) Run(ctx context.Context) error {
	for {
		u, err := a.bus.ConsumeUtterance(ctx)
		if err != nil {
			return err
		}
		a.HandleUtterance(ctx, u)
	}
}

// SignOut atomically discards the pending draft and the transcript.
func (a *Assistant) SignOut() {
	a.session.Reset()
	a.log.Clear()
	a.logger.Info("session reset")
}

// HandleUtterance processes one user input end to end: record, interpret,
// advance the draft machine, and dispatch when the machine allows it.
func (a *Assistant) HandleUtterance(ctx context.Context, u *bus.Utterance) {
	images, err := loadImages(u.ImagePath)
	if err != nil {
		a.emit(bus.KindError, u.TraceID, fmt.Sprintf("Assistant error: %v", err))
		return
	}

	a.log.AppendUser(u.Text)

	if a.session.State() == draft.StateAwaitingConfirmation {
		phrase := strings.ToLower(strings.TrimSpace(strings.TrimRight(u.Text, ".!")))
		if affirmatives[phrase] {
			a.commit(ctx, u.TraceID, 0)
			return
		}
		if negatives[phrase] {
			a.session.Cancel()
			a.reply(u.TraceID, "Okay, I won't schedule it.")
			return
		}
		// Anything else is treated as a change of plan; the interpreter
		// sees the pending draft and merges or replaces it.
	}

	// The conflict warning asked "should I book it anyway?"; consent skips
	// the re-check and moves the unchanged draft on to confirmation.
	if len(a.session.Conflicts()) > 0 && wantsOverride(u.Text) && a.session.OverrideConflicts() {
		a.advanceDraft(ctx, u.TraceID, &intent.Intent{})
		return
	}

	a.interpretAndRoute(ctx, u.TraceID, u.Text, images, 0)
}

// interpretAndRoute runs one interpretation round and routes the intent.
func (a *Assistant) interpretAndRoute(ctx context.Context, traceID, utterance string, images []provider.ImagePart, round int) {
	if round >= maxInterpretRounds {
		a.emit(bus.KindError, traceID, "Assistant error: I could not settle on an action for that request.")
		return
	}

	in, err := a.interp.Interpret(ctx, a.log.Context(), images, a.buildAux(ctx))
	if err != nil {
		a.surfaceInterpretError(traceID, err)
		return
	}

	switch in.Action {
	case intent.ActionCreateEvent:
		a.routeDraftIntent(ctx, traceID, intent.ActionCreateEvent, in, utterance)
	case intent.ActionEditEvent:
		a.routeDraftIntent(ctx, traceID, intent.ActionEditEvent, in, utterance)
	case intent.ActionListEvents:
		a.routeList(ctx, traceID, in)
	case intent.ActionCreateTask:
		a.routeTask(ctx, traceID, in)
	case intent.ActionDeleteEvent:
		a.routeDelete(ctx, traceID, in)
	case intent.ActionFindContacts:
		a.routeContacts(ctx, traceID, in, utterance, round)
	case intent.ActionGeneralQuery:
		reply := in.Reply
		if reply == "" {
			reply = "I'm here to help with your calendar."
		}
		a.reply(traceID, reply)
	default:
		a.surfaceInterpretError(traceID, &intent.MalformedResponseError{Reason: fmt.Sprintf("unhandled action %q", in.Action)})
	}
}

// surfaceInterpretError turns interpreter failures into apologetic turns.
// Draft state is never touched on these paths, so the user can retry.
func (a *Assistant) surfaceInterpretError(traceID string, err error) {
	var provErr *intent.ProviderError
	var malErr *intent.MalformedResponseError
	switch {
	case errors.As(err, &provErr):
		a.emit(bus.KindError, traceID, fmt.Sprintf("Assistant error: the language model call failed (%v). Please try again.", provErr.Err))
	case errors.As(err, &malErr):
		a.logger.Warn("malformed model response", "reason", malErr.Reason)
		a.emit(bus.KindError, traceID, "Assistant error: I couldn't make sense of the model's reply. Please try rephrasing.")
	default:
		a.emit(bus.KindError, traceID, fmt.Sprintf("Assistant error: %v", err))
	}
}

// routeDraftIntent feeds a CREATE_EVENT or EDIT_EVENT intent into the
// state machine and advances it.
func (a *Assistant) routeDraftIntent(ctx context.Context, traceID string, action intent.Action, in *intent.Intent, utterance string) {
	fields := in.Event
	if fields == nil {
		fields = &intent.EventFields{}
	}

	current := a.session.Draft()
	switch {
	case action == intent.ActionEditEvent && fields.EventID != "" &&
		(current == nil || current.SourceEventID != fields.EventID):
		// A fresh edit target: seed the draft from the authoritative event.
		calID := fields.CalendarID
		if calID == "" {
			calID = a.calID
		}
		ev, err := a.svc.GetEvent(ctx, calID, fields.EventID)
		if err != nil {
			a.emit(bus.KindError, traceID, fmt.Sprintf("Calendar error: %v", err))
			return
		}
		a.session.Begin(action, draft.FromEvent(ev, calID), fields, utterance)
	case current != nil && a.session.Action() == action:
		// Continuation of the live draft.
		a.session.Apply(fields, utterance)
	default:
		// New topic: last writer wins, the previous draft is discarded.
		a.session.Begin(action, nil, fields, utterance)
	}

	a.advanceDraft(ctx, traceID, in)
}

// advanceDraft decides between follow-up, conflict check, and confirmation
// for the live draft.
func (a *Assistant) advanceDraft(ctx context.Context, traceID string, in *intent.Intent) {
	a.session.EnsureEnd(a.duration, a.loc)

	if a.session.Decide(in.FollowUpQuestion) == draft.StepAskFollowUp {
		question := in.FollowUpQuestion
		if question == "" {
			question = a.cannedFollowUp()
		}
		a.log.AppendModel(question)
		a.emitEvent(&bus.Event{Kind: bus.KindFollowUp, TraceID: traceID, Content: question})
		return
	}

	dr := a.session.Draft()
	start, end, err := dr.TimeRange(a.loc)
	if err != nil {
		// The draft survives; only the times need restating.
		a.session.NeedsRevision()
		question := fmt.Sprintf("I couldn't work out the event's times (%v). When should it start and end?", err)
		a.log.AppendModel(question)
		a.emitEvent(&bus.Event{Kind: bus.KindFollowUp, TraceID: traceID, Content: question})
		return
	}

	calID := dr.CalendarID
	if calID == "" {
		calID = a.calID
	}
	var conflicts schedule.ConflictSet
	if !a.session.ConflictsOverridden() {
		conflicts = a.checker.FindConflicts(ctx, calID, start, end, dr.SourceEventID)
	}

	if !a.session.RecordConflicts(conflicts) {
		warning := formatConflicts(conflicts)
		a.log.AppendModel(warning)
		a.emitEvent(&bus.Event{Kind: bus.KindReply, TraceID: traceID, Content: warning})
		return
	}

	card := formatConfirmation(dr, a.session.Action(), a.loc)
	a.log.AppendModel(card)
	a.emitEvent(&bus.Event{Kind: bus.KindConfirmation, TraceID: traceID, Content: card})
}

// commit executes the confirmed draft through the dispatcher.
func (a *Assistant) commit(ctx context.Context, traceID string, round int) {
	if !a.session.Confirm() {
		a.emit(bus.KindError, traceID, "Assistant error: there is nothing to confirm.")
		return
	}

	dr := a.session.Draft()
	wording := a.session.Utterance()

	var (
		ev  *schedule.Event
		err error
	)
	if a.session.Action() == intent.ActionEditEvent {
		ev, err = a.disp.UpdateEvent(ctx, dr, wording)
	} else {
		ev, err = a.disp.CreateEvent(ctx, dr, wording)
	}

	var unresolved *dispatch.UnresolvedAttendeeError
	switch {
	case errors.As(err, &unresolved):
		a.session.CommitFailed()
		a.session.RemoveAttendees(unresolved.Names)
		a.resolveAttendees(ctx, traceID, unresolved.Names, round)
	case err != nil:
		a.session.CommitFailed()
		a.emit(bus.KindError, traceID, fmt.Sprintf("Calendar error: %v. Your draft is kept; say it again to retry.", err))
	default:
		a.session.CommitSucceeded()
		msg := fmt.Sprintf("Done, %q is on the calendar.", ev.Summary)
		if ev.HangoutLink != "" {
			msg += " Meeting link: " + ev.HangoutLink
		}
		if ev.HTMLLink != "" {
			msg += " (" + ev.HTMLLink + ")"
		}
		a.reply(traceID, msg)
	}
}

// resolveAttendees runs the FIND_CONTACTS round trip for bare attendee
// names, records the results as a tool turn, and re-interprets so the model
// can substitute resolved addresses before any insert happens.
func (a *Assistant) resolveAttendees(ctx context.Context, traceID string, names []string, round int) {
	for _, name := range names {
		contacts, err := a.disp.FindContacts(ctx, name, 5)
		result := formatContacts(name, contacts)
		if err != nil {
			result = fmt.Sprintf("lookup for %q failed: %v", name, err)
		}
		a.log.AppendTool("find_contacts", map[string]any{"name": name}, result)
	}
	a.interpretAndRoute(ctx, traceID, "", nil, round+1)
}

func (a *Assistant) routeList(ctx context.Context, traceID string, in *intent.Intent) {
	params := in.List
	if params == nil {
		params = &intent.ListParams{}
	}
	events, err := a.disp.ListEvents(ctx, params)
	if err != nil {
		a.emit(bus.KindError, traceID, fmt.Sprintf("Calendar error: %v", err))
		return
	}
	text := formatEventList(events, a.loc)
	a.log.AppendTool("list_events", map[string]any{"calendarId": params.CalendarID, "query": params.Query}, text)
	a.reply(traceID, text)
}

func (a *Assistant) routeTask(ctx context.Context, traceID string, in *intent.Intent) {
	if in.NeedsFollowUp() || in.Task == nil {
		question := in.FollowUpQuestion
		if question == "" {
			question = "What should the task say?"
		}
		a.log.AppendModel(question)
		a.emitEvent(&bus.Event{Kind: bus.KindFollowUp, TraceID: traceID, Content: question})
		return
	}
	task, err := a.disp.CreateTask(ctx, in.Task)
	if err != nil {
		a.emit(bus.KindError, traceID, fmt.Sprintf("Calendar error: %v", err))
		return
	}
	a.reply(traceID, fmt.Sprintf("Task %q added to your list.", task.Title))
}

func (a *Assistant) routeDelete(ctx context.Context, traceID string, in *intent.Intent) {
	if in.Delete == nil {
		a.emit(bus.KindError, traceID, "Assistant error: I don't know which event to delete.")
		return
	}
	warning, err := a.disp.DeleteEvent(ctx, in.Delete.CalendarID, in.Delete.EventID)
	if err != nil {
		a.emit(bus.KindError, traceID, fmt.Sprintf("Calendar error: %v", err))
		return
	}
	msg := "The event is deleted."
	if warning != "" {
		msg = "All clear: " + warning + "."
	}
	a.reply(traceID, msg)
}

func (a *Assistant) routeContacts(ctx context.Context, traceID string, in *intent.Intent, utterance string, round int) {
	if in.Contacts == nil || in.Contacts.Name == "" {
		a.emit(bus.KindError, traceID, "Assistant error: whose contact details should I look up?")
		return
	}
	contacts, err := a.disp.FindContacts(ctx, in.Contacts.Name, in.Contacts.PageSize)
	if err != nil {
		a.emit(bus.KindError, traceID, fmt.Sprintf("Calendar error: %v", err))
		return
	}
	result := formatContacts(in.Contacts.Name, contacts)
	a.log.AppendTool("find_contacts", map[string]any{"name": in.Contacts.Name}, result)

	if a.session.Draft() != nil {
		// The lookup belongs to a pending draft; let the model continue
		// with the resolved addresses.
		a.interpretAndRoute(ctx, traceID, utterance, nil, round+1)
		return
	}
	a.reply(traceID, result)
}

// buildAux assembles the auxiliary context for one interpretation.
func (a *Assistant) buildAux(ctx context.Context) *intent.Aux {
	aux := &intent.Aux{
		Now:                a.now().In(a.loc),
		TimeZone:           a.timeZone,
		Calendars:          a.availableCalendars(ctx),
		Conflicts:          a.session.Conflicts(),
		ConferenceKeywords: a.keywords,
	}
	if dr := a.session.Draft(); dr != nil {
		aux.Draft = dr
		aux.EditEventID = dr.SourceEventID
	}
	return aux
}

// availableCalendars caches the calendar list after the first successful
// fetch; a failure just means the model goes without the list this turn.
func (a *Assistant) availableCalendars(ctx context.Context) []schedule.CalendarInfo {
	if a.calendars != nil || a.svc == nil {
		return a.calendars
	}
	cals, err := a.svc.ListCalendars(ctx)
	if err != nil {
		a.logger.Warn("calendar list unavailable", "error", err)
		return nil
	}
	a.calendars = cals
	return cals
}

// cannedFollowUp asks for the first missing required field when the model
// forgot to supply its own question.
func (a *Assistant) cannedFollowUp() string {
	dr := a.session.Draft()
	switch {
	case dr == nil || dr.Summary == "":
		return "What should the event be called?"
	case dr.Start.IsZero():
		return "When should it start?"
	default:
		return "Could you give me the missing details?"
	}
}

func (a *Assistant) reply(traceID, content string) {
	a.log.AppendModel(content)
	a.emitEvent(&bus.Event{Kind: bus.KindReply, TraceID: traceID, Content: content})
}

func (a *Assistant) emit(kind, traceID, content string) {
	a.log.AppendModel(content)
	a.emitEvent(&bus.Event{Kind: kind, TraceID: traceID, Content: content})
}

func (a *Assistant) emitEvent(e *bus.Event) {
	if a.bus != nil {
		a.bus.PublishEvent(e)
	}
}

// loadImages reads an attached image file into inline parts.
func loadImages(path string) ([]provider.ImagePart, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "image/png"
	}
	return []provider.ImagePart{{MIMEType: mimeType, Data: data}}, nil
}
