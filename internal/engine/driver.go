package engine

import (
	"context"
	"errors"
	"log"

	"github.com/xiaot623/trialogue/internal/domain"
)

// Mode selects the driver strategy for one session.
type Mode string

const (
	// ModeAction pauses after every reply and waits for an explicit user
	// action (continue, intervene, exit).
	ModeAction Mode = "action"
	// ModeAuto runs one full round with no user intervention: each model
	// speaks once, in shuffled order with mention promotion.
	ModeAuto Mode = "auto"
)

// State is the driver's position in the turn cycle.
type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingFirstSpeaker State = "awaiting_first_speaker"
	StateSpeakerActive        State = "speaker_active"
	StateAwaitingUserAction   State = "awaiting_user_action"
	StateRoundComplete        State = "round_complete"
)

// ErrNoPendingDiscussion is returned for continue/intervene/exit when the
// driver is not waiting for a user action.
var ErrNoPendingDiscussion = errors.New("no discussion awaiting user action")

// Invoker calls one model with a message context and thread id.
type Invoker interface {
	Invoke(ctx context.Context, model domain.ModelID, contextTurns []domain.Turn, threadID string, phase domain.DiscussionPhase) (string, error)
}

// ThreadBackend is the persistence collaborator the driver needs: thread
// creation on first submission and the one-shot title side call.
type ThreadBackend interface {
	CreateThread(ctx context.Context) (*domain.Thread, error)
	GenerateTitle(ctx context.Context, threadID string, turns []domain.Turn) error
}

// Observer receives the driver's side effects. Implementations must be
// non-blocking; none of these calls is awaited for correctness.
type Observer interface {
	// SpeakerPending fires when a model has been selected and its call is in
	// flight. It backs the transient loading marker, which is never part of
	// the conversation log.
	SpeakerPending(threadID string, model domain.ModelID)
	// TurnAppended fires after every appended turn, user or assistant,
	// success or fault.
	TurnAppended(threadID string, turn domain.Turn)
	// ThreadListChanged fires after every reply so observers can refresh the
	// thread list, best effort.
	ThreadListChanged(threadID string)
}

// Driver runs the sequential turn cycle for one session. At most one model
// call is in flight at any time; the two strategies share all turn-count and
// spoken-set bookkeeping through the session.
type Driver struct {
	mode     Mode
	sess     *Session
	selector *Selector
	invoker  Invoker
	threads  ThreadBackend
	observer Observer
	state    State
}

// NewDriver creates a driver for sess in the given mode.
func NewDriver(mode Mode, sess *Session, selector *Selector, invoker Invoker, threads ThreadBackend, observer Observer) *Driver {
	return &Driver{
		mode:     mode,
		sess:     sess,
		selector: selector,
		invoker:  invoker,
		threads:  threads,
		observer: observer,
		state:    StateIdle,
	}
}

// Session returns the driver's session.
func (d *Driver) Session() *Session {
	return d.sess
}

// Mode returns the driver's strategy.
func (d *Driver) Mode() Mode {
	return d.mode
}

// State returns the driver's current state.
func (d *Driver) State() State {
	return d.state
}

// Submit appends the user's text and runs the turn cycle: one reply in action
// mode, a full round in auto mode. A thread is created first if the session
// has none; a thread-create fault fails the submission with no turn appended.
// Submitting while the driver awaits a user action counts as an implicit
// intervene: the pending cycle is abandoned and the new text takes the floor.
// It returns the turns appended during the call.
func (d *Driver) Submit(ctx context.Context, text string) ([]domain.Turn, error) {
	if d.sess.ThreadID == "" {
		thread, err := d.threads.CreateThread(ctx)
		if err != nil {
			return nil, err
		}
		d.sess.ThreadID = thread.ThreadID
	}

	d.state = StateAwaitingFirstSpeaker
	userTurn := d.sess.AppendUser(text)
	d.observer.TurnAppended(d.sess.ThreadID, userTurn)

	appended := []domain.Turn{userTurn}

	switch d.mode {
	case ModeAuto:
		turns := d.runRound(ctx)
		appended = append(appended, turns...)
		d.state = StateIdle
	default:
		turn := d.runStep(ctx, "")
		appended = append(appended, turn)
		d.state = StateAwaitingUserAction
	}
	return appended, nil
}

// Continue re-enters the selector/invoker cycle in action mode, first checking
// whether the opinion phase is now exhausted.
func (d *Driver) Continue(ctx context.Context) ([]domain.Turn, error) {
	if d.state != StateAwaitingUserAction {
		return nil, ErrNoPendingDiscussion
	}
	d.sess.State.AdvancePhase()

	turn := d.runStep(ctx, d.lastReply())
	d.state = StateAwaitingUserAction
	return []domain.Turn{turn}, nil
}

// Intervene ends automatic cycling and returns the floor to the user.
func (d *Driver) Intervene() error {
	if d.state != StateAwaitingUserAction {
		return ErrNoPendingDiscussion
	}
	d.state = StateIdle
	return nil
}

// Exit terminates the cycle without further replies.
func (d *Driver) Exit() error {
	if d.state != StateAwaitingUserAction {
		return ErrNoPendingDiscussion
	}
	d.state = StateIdle
	return nil
}

// runStep selects one speaker, invokes it, and appends the outcome. A fault
// from the invoker is recorded inline and never halts the cycle.
func (d *Driver) runStep(ctx context.Context, lastReply string) domain.Turn {
	model := d.selector.Select(lastReply, d.sess.State)
	return d.invokeSpeaker(ctx, model)
}

// runRound runs the automatic variant: every model speaks once, taken from a
// shuffled queue, with a mentioned not-yet-spoken model promoted to the front.
func (d *Driver) runRound(ctx context.Context) []domain.Turn {
	queue := d.selector.ShuffledRound()
	var turns []domain.Turn
	lastReply := ""

	for len(queue) > 0 {
		d.sess.State.AdvancePhase()

		idx := 0
		if lastReply != "" {
			if mentioned, ok := LastMention(lastReply); ok {
				for i, m := range queue {
					if m == mentioned {
						idx = i
						break
					}
				}
			}
		}
		model := queue[idx]
		queue = append(queue[:idx], queue[idx+1:]...)

		turn := d.invokeSpeaker(ctx, model)
		turns = append(turns, turn)

		lastReply = ""
		if !turn.Faulted() {
			lastReply = turn.Content
		}
	}

	d.state = StateRoundComplete
	return turns
}

// invokeSpeaker performs one model call and all the per-reply bookkeeping:
// append, title side call, thread list refresh.
func (d *Driver) invokeSpeaker(ctx context.Context, model domain.ModelID) domain.Turn {
	d.state = StateSpeakerActive
	d.observer.SpeakerPending(d.sess.ThreadID, model)

	content, err := d.invoker.Invoke(ctx, model, d.sess.ContextTurns(), d.sess.ThreadID, d.sess.State.Phase)

	var turn domain.Turn
	if err != nil {
		log.Printf("WARN: model %s call failed: %v", model, err)
		turn = d.sess.AppendFault(model, err.Error())
	} else {
		turn = d.sess.AppendReply(model, content)
	}
	d.observer.TurnAppended(d.sess.ThreadID, turn)

	d.maybeGenerateTitle(ctx)
	d.observer.ThreadListChanged(d.sess.ThreadID)
	return turn
}

// maybeGenerateTitle issues the title side call exactly once per session,
// after the very first assistant reply. Failures are logged and ignored.
func (d *Driver) maybeGenerateTitle(ctx context.Context) {
	if d.sess.TitleGenerated() || d.sess.ReplyCount() == 0 {
		return
	}
	d.sess.MarkTitleGenerated()
	if err := d.threads.GenerateTitle(ctx, d.sess.ThreadID, d.sess.Turns); err != nil {
		log.Printf("WARN: title generation failed for thread %s: %v", d.sess.ThreadID, err)
	}
}

// lastReply returns the content of the most recent successful assistant turn.
func (d *Driver) lastReply() string {
	for i := len(d.sess.Turns) - 1; i >= 0; i-- {
		t := d.sess.Turns[i]
		if t.Role == domain.RoleAssistant && !t.Faulted() {
			return t.Content
		}
		if t.Role == domain.RoleUser {
			return ""
		}
	}
	return ""
}
