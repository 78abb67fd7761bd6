package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/trialogue/internal/domain"
)

type invocation struct {
	model   domain.ModelID
	context []domain.Turn
	phase   domain.DiscussionPhase
}

// scriptedInvoker delegates to fn and records every call.
type scriptedInvoker struct {
	fn    func(model domain.ModelID, contextTurns []domain.Turn) (string, error)
	calls []invocation
}

func (s *scriptedInvoker) Invoke(_ context.Context, model domain.ModelID, contextTurns []domain.Turn, _ string, phase domain.DiscussionPhase) (string, error) {
	s.calls = append(s.calls, invocation{model: model, context: contextTurns, phase: phase})
	if s.fn != nil {
		return s.fn(model, contextTurns)
	}
	return "reply from " + string(model), nil
}

type fakeBackend struct {
	createErr  error
	titleErr   error
	created    int
	titleCalls int
	titleTurns []domain.Turn
}

func (f *fakeBackend) CreateThread(context.Context) (*domain.Thread, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created++
	return &domain.Thread{ThreadID: fmt.Sprintf("thr_%d", f.created)}, nil
}

func (f *fakeBackend) GenerateTitle(_ context.Context, _ string, turns []domain.Turn) error {
	f.titleCalls++
	f.titleTurns = turns
	return f.titleErr
}

type recordingObserver struct {
	pending  []domain.ModelID
	appended []domain.Turn
	listHits int
}

func (r *recordingObserver) SpeakerPending(_ string, model domain.ModelID) {
	r.pending = append(r.pending, model)
}

func (r *recordingObserver) TurnAppended(_ string, turn domain.Turn) {
	r.appended = append(r.appended, turn)
}

func (r *recordingObserver) ThreadListChanged(string) {
	r.listHits++
}

func newTestDriver(mode Mode, invoker Invoker, backend ThreadBackend, obs Observer, seed int64) *Driver {
	sess := NewSession("")
	selector := NewSelector(rand.New(rand.NewSource(seed)))
	return NewDriver(mode, sess, selector, invoker, backend, obs)
}

func TestSubmitActionMode(t *testing.T) {
	invoker := &scriptedInvoker{}
	backend := &fakeBackend{}
	obs := &recordingObserver{}
	d := newTestDriver(ModeAction, invoker, backend, obs, 1)

	turns, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	require.Len(t, turns, 2)
	assert.Equal(t, domain.RoleUser, turns[0].Role)
	assert.Equal(t, domain.RoleAssistant, turns[1].Role)
	assert.Equal(t, StateAwaitingUserAction, d.State())
	assert.Equal(t, 1, backend.created)
	assert.NotEmpty(t, d.Session().ThreadID)

	total := 0
	for _, c := range d.Session().State.TurnCount {
		total += c
	}
	assert.Equal(t, 1, total)
	assert.True(t, d.Session().State.Spoken[turns[1].Model])

	// One title side call, carrying the two-turn log.
	assert.Equal(t, 1, backend.titleCalls)
	assert.Len(t, backend.titleTurns, 2)

	assert.Equal(t, []domain.ModelID{turns[1].Model}, obs.pending)
	assert.Len(t, obs.appended, 2)
}

func TestSubmitThreadCreateFaultIsFatal(t *testing.T) {
	invoker := &scriptedInvoker{}
	backend := &fakeBackend{createErr: errors.New("database is locked")}
	obs := &recordingObserver{}
	d := newTestDriver(ModeAction, invoker, backend, obs, 1)

	_, err := d.Submit(context.Background(), "Hello")
	require.Error(t, err)

	assert.Empty(t, d.Session().Turns, "a failed thread create must append nothing")
	assert.Empty(t, obs.appended)
	assert.Empty(t, invoker.calls)
}

func TestModelFaultIsRecordedAndExcluded(t *testing.T) {
	fail := true
	invoker := &scriptedInvoker{
		fn: func(model domain.ModelID, _ []domain.Turn) (string, error) {
			if fail {
				fail = false
				return "", errors.New("upstream timeout")
			}
			return "recovered", nil
		},
	}
	backend := &fakeBackend{}
	d := newTestDriver(ModeAction, invoker, backend, &recordingObserver{}, 1)

	turns, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.True(t, turns[1].Faulted())
	assert.Equal(t, "upstream timeout", turns[1].Fault)
	assert.Equal(t, StateAwaitingUserAction, d.State(), "a model fault must not halt the cycle")

	faulted := turns[1].Model
	assert.Equal(t, 0, d.Session().State.TurnCount[faulted])
	assert.False(t, d.Session().State.Spoken[faulted])

	_, err = d.Continue(context.Background())
	require.NoError(t, err)

	second := invoker.calls[1]
	for _, turn := range second.context {
		assert.False(t, turn.Faulted(), "faulted turns must not reach the model context")
	}
	require.Len(t, second.context, 1)
	assert.Equal(t, domain.RoleUser, second.context[0].Role)
}

func TestContinueCycleTransitionsPhase(t *testing.T) {
	invoker := &scriptedInvoker{}
	backend := &fakeBackend{}
	d := newTestDriver(ModeAction, invoker, backend, &recordingObserver{}, 3)

	_, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseOpinion, invoker.calls[0].phase)

	_, err = d.Continue(context.Background())
	require.NoError(t, err)
	_, err = d.Continue(context.Background())
	require.NoError(t, err)

	// Three distinct opinions, then the floor opens.
	seen := map[domain.ModelID]bool{}
	for _, call := range invoker.calls {
		assert.Equal(t, domain.PhaseOpinion, call.phase)
		assert.False(t, seen[call.model], "each model speaks once in the opinion phase")
		seen[call.model] = true
	}
	require.Len(t, seen, 3)

	_, err = d.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseFreeTalk, invoker.calls[3].phase)
	assert.Equal(t, domain.PhaseFreeTalk, d.Session().State.Phase)
}

func TestContinueFollowsMention(t *testing.T) {
	invoker := &scriptedInvoker{
		fn: func(model domain.ModelID, _ []domain.Turn) (string, error) {
			return fmt.Sprintf("%s here. @gemini, your take?", model), nil
		},
	}
	d := newTestDriver(ModeAction, invoker, &fakeBackend{}, &recordingObserver{}, 5)

	_, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = d.Continue(context.Background())
		require.NoError(t, err)
	}
	// Opinion phase exhausted; the next selection honors the handoff.
	turns, err := d.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ModelGemini, turns[0].Model)
}

func TestContinueWithoutPendingDiscussion(t *testing.T) {
	d := newTestDriver(ModeAction, &scriptedInvoker{}, &fakeBackend{}, &recordingObserver{}, 1)

	_, err := d.Continue(context.Background())
	assert.ErrorIs(t, err, ErrNoPendingDiscussion)
	assert.ErrorIs(t, d.Intervene(), ErrNoPendingDiscussion)
	assert.ErrorIs(t, d.Exit(), ErrNoPendingDiscussion)
}

func TestSubmitWhileAwaitingActsAsIntervene(t *testing.T) {
	invoker := &scriptedInvoker{}
	d := newTestDriver(ModeAction, invoker, &fakeBackend{}, &recordingObserver{}, 1)

	_, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	require.Equal(t, StateAwaitingUserAction, d.State())

	turns, err := d.Submit(context.Background(), "Actually, new topic")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Actually, new topic", turns[0].Content)
	assert.Equal(t, StateAwaitingUserAction, d.State())
	assert.Len(t, d.Session().Turns, 4)
}

func TestInterveneAndExitReturnToIdle(t *testing.T) {
	d := newTestDriver(ModeAction, &scriptedInvoker{}, &fakeBackend{}, &recordingObserver{}, 1)
	_, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	require.NoError(t, d.Intervene())
	assert.Equal(t, StateIdle, d.State())

	_, err = d.Submit(context.Background(), "New direction")
	require.NoError(t, err)
	require.NoError(t, d.Exit())
	assert.Equal(t, StateIdle, d.State())
}

func TestAutoRoundEveryModelSpeaksOnce(t *testing.T) {
	invoker := &scriptedInvoker{}
	backend := &fakeBackend{}
	d := newTestDriver(ModeAuto, invoker, backend, &recordingObserver{}, 11)

	turns, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	require.Len(t, turns, 4)
	assert.Equal(t, StateIdle, d.State())

	seen := map[domain.ModelID]bool{}
	for _, turn := range turns[1:] {
		assert.Equal(t, domain.RoleAssistant, turn.Role)
		assert.False(t, seen[turn.Model])
		seen[turn.Model] = true
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, 1, backend.titleCalls)
}

func TestAutoRoundMentionPromotion(t *testing.T) {
	sess := NewSession("")
	// No shuffling: the round opens in the stable model order.
	selector := NewSelector(fixedRand{})
	invoker := &scriptedInvoker{
		fn: func(model domain.ModelID, _ []domain.Turn) (string, error) {
			if model == domain.ModelAnthropic {
				return "I disagree. @gemini, what do you think?", nil
			}
			return "reply from " + string(model), nil
		},
	}
	d := NewDriver(ModeAuto, sess, selector, invoker, &fakeBackend{}, &recordingObserver{})

	_, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	var order []domain.ModelID
	for _, call := range invoker.calls {
		order = append(order, call.model)
	}
	assert.Equal(t, []domain.ModelID{domain.ModelAnthropic, domain.ModelGemini, domain.ModelGPT}, order)
}

func TestAutoRoundFaultClearsHandoff(t *testing.T) {
	sess := NewSession("")
	selector := NewSelector(fixedRand{})
	invoker := &scriptedInvoker{
		fn: func(model domain.ModelID, _ []domain.Turn) (string, error) {
			if model == domain.ModelAnthropic {
				return "", errors.New("rate limited")
			}
			return "reply from " + string(model), nil
		},
	}
	d := NewDriver(ModeAuto, sess, selector, invoker, &fakeBackend{}, &recordingObserver{})

	turns, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)

	require.Len(t, turns, 4)
	assert.True(t, turns[1].Faulted())
	// The round continues through the remaining queue in order.
	assert.Equal(t, domain.ModelGPT, turns[2].Model)
	assert.Equal(t, domain.ModelGemini, turns[3].Model)
}

func TestTitleGeneratedOncePerSession(t *testing.T) {
	backend := &fakeBackend{}
	d := newTestDriver(ModeAction, &scriptedInvoker{}, backend, &recordingObserver{}, 1)

	_, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	_, err = d.Continue(context.Background())
	require.NoError(t, err)
	_, err = d.Continue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, backend.titleCalls)
}

func TestTitleFailureIsIgnored(t *testing.T) {
	backend := &fakeBackend{titleErr: errors.New("gateway unavailable")}
	d := newTestDriver(ModeAction, &scriptedInvoker{}, backend, &recordingObserver{}, 1)

	turns, err := d.Submit(context.Background(), "Hello")
	require.NoError(t, err)
	assert.False(t, turns[1].Faulted())

	_, err = d.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, backend.titleCalls, "a failed title call is not retried")
}

func TestDriverDeterministicWithSeed(t *testing.T) {
	run := func() []domain.Turn {
		d := newTestDriver(ModeAction, &scriptedInvoker{}, &fakeBackend{}, &recordingObserver{}, 99)
		_, err := d.Submit(context.Background(), "Hello")
		require.NoError(t, err)
		for i := 0; i < 4; i++ {
			_, err = d.Continue(context.Background())
			require.NoError(t, err)
		}
		return d.Session().Turns
	}

	first, second := run(), run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Role, second[i].Role)
		assert.Equal(t, first[i].Model, second[i].Model)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}
