package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/trialogue/internal/adapter/llm"
	"github.com/xiaot623/trialogue/internal/domain"
	"github.com/xiaot623/trialogue/internal/engine"
)

// DiscussionResult is the outcome of one driver call: the turns appended
// during the call and the session's position afterwards.
type DiscussionResult struct {
	ThreadID string                 `json:"thread_id"`
	Turns    []domain.Turn          `json:"turns"`
	State    engine.State           `json:"state"`
	Phase    domain.DiscussionPhase `json:"phase"`
}

// StartDiscussion submits user text to a session, creating the session (and
// thread) when threadID is empty and restoring it from storage when the
// thread exists but has no live session. The submission policy runs first.
func (s *Service) StartDiscussion(ctx context.Context, threadID, text string, mode engine.Mode) (*DiscussionResult, error) {
	if mode == "" {
		mode = engine.ModeAction
	}

	if s.guard != nil {
		decision, err := s.guard.Evaluate(ctx, map[string]interface{}{
			"content":   text,
			"thread_id": threadID,
		})
		if err != nil {
			return nil, fmt.Errorf("submission policy failed: %w", err)
		}
		if decision != "allow" {
			return nil, ErrSubmissionBlocked
		}
	}

	handle, err := s.handleFor(ctx, threadID, mode)
	if err != nil {
		return nil, err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	turns, err := handle.driver.Submit(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to start discussion: %w", err)
	}

	// A fresh session only gets its thread id during Submit.
	s.mu.Lock()
	s.sessions[handle.driver.Session().ThreadID] = handle
	s.mu.Unlock()

	return s.result(handle, turns), nil
}

// ContinueDiscussion re-enters the turn cycle for an action-mode session.
func (s *Service) ContinueDiscussion(ctx context.Context, threadID string) (*DiscussionResult, error) {
	handle, ok := s.liveHandle(threadID)
	if !ok {
		return nil, engine.ErrNoPendingDiscussion
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()

	turns, err := handle.driver.Continue(ctx)
	if err != nil {
		return nil, err
	}
	return s.result(handle, turns), nil
}

// InterveneDiscussion ends automatic cycling and returns the floor to the
// user.
func (s *Service) InterveneDiscussion(threadID string) error {
	handle, ok := s.liveHandle(threadID)
	if !ok {
		return engine.ErrNoPendingDiscussion
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return handle.driver.Intervene()
}

// ExitDiscussion terminates the cycle without further replies.
func (s *Service) ExitDiscussion(threadID string) error {
	handle, ok := s.liveHandle(threadID)
	if !ok {
		return engine.ErrNoPendingDiscussion
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return handle.driver.Exit()
}

func (s *Service) result(handle *sessionHandle, turns []domain.Turn) *DiscussionResult {
	sess := handle.driver.Session()
	return &DiscussionResult{
		ThreadID: sess.ThreadID,
		Turns:    turns,
		State:    handle.driver.State(),
		Phase:    sess.State.Phase,
	}
}

func (s *Service) liveHandle(threadID string) (*sessionHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	handle, ok := s.sessions[threadID]
	return handle, ok
}

// handleFor returns the live session handle for threadID, restoring the
// session from storage if needed. An empty threadID always yields a fresh
// session whose thread is created on first submission.
func (s *Service) handleFor(ctx context.Context, threadID string, mode engine.Mode) (*sessionHandle, error) {
	if threadID == "" {
		return &sessionHandle{driver: s.newDriver(mode, engine.NewSession(""))}, nil
	}

	s.mu.Lock()
	handle, ok := s.sessions[threadID]
	s.mu.Unlock()
	if ok {
		handle.mu.Lock()
		if handle.driver.Mode() != mode {
			handle.driver = s.newDriver(mode, handle.driver.Session())
		}
		handle.mu.Unlock()
		return handle, nil
	}

	detail, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	if detail == nil {
		return nil, ErrThreadNotFound
	}

	sess := engine.RestoreSession(threadID, detail.Turns)
	handle = &sessionHandle{driver: s.newDriver(mode, sess)}

	s.mu.Lock()
	s.sessions[threadID] = handle
	s.mu.Unlock()
	return handle, nil
}

func (s *Service) newDriver(mode engine.Mode, sess *engine.Session) *engine.Driver {
	selector := engine.NewSelector(s.newRand())
	return engine.NewDriver(mode, sess, selector, gatewayInvoker{llm: s.llm}, threadBackend{s: s}, driverObserver{s: s})
}

// gatewayInvoker adapts the LLM client to the driver's invoker contract,
// building the phase-dependent prompt from the context turns.
type gatewayInvoker struct {
	llm llm.Client
}

func (g gatewayInvoker) Invoke(ctx context.Context, model domain.ModelID, contextTurns []domain.Turn, threadID string, phase domain.DiscussionPhase) (string, error) {
	prompt := llm.BuildInstruction(model, phase, contextTurns)
	return g.llm.Complete(ctx, model, prompt)
}

// threadBackend adapts the service's thread operations to the driver's
// persistence collaborator contract.
type threadBackend struct {
	s *Service
}

func (b threadBackend) CreateThread(ctx context.Context) (*domain.Thread, error) {
	return b.s.CreateThread(ctx)
}

func (b threadBackend) GenerateTitle(ctx context.Context, threadID string, turns []domain.Turn) error {
	_, err := b.s.GenerateTitle(ctx, threadID, turns)
	return err
}

// driverObserver persists appended turns and pushes events to WebSocket
// observers. None of this blocks the turn cycle.
type driverObserver struct {
	s *Service
}

func (o driverObserver) SpeakerPending(threadID string, model domain.ModelID) {
	if o.s.hub == nil {
		return
	}
	o.s.hub.BroadcastThread(threadID, map[string]interface{}{
		"type":      "speaker_pending",
		"thread_id": threadID,
		"model":     model,
	})
}

func (o driverObserver) TurnAppended(threadID string, turn domain.Turn) {
	o.s.persistTurn(context.Background(), turn)
	if o.s.hub == nil {
		return
	}
	o.s.hub.BroadcastThread(threadID, map[string]interface{}{
		"type":      "turn",
		"thread_id": threadID,
		"turn":      turn,
	})
}

func (o driverObserver) ThreadListChanged(threadID string) {
	if o.s.hub == nil {
		return
	}
	o.s.hub.BroadcastAll(map[string]interface{}{
		"type":      "thread_list_changed",
		"thread_id": threadID,
	})
}

var _ engine.Observer = driverObserver{}
