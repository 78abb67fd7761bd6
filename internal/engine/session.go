package engine

import (
	"time"

	"github.com/xiaot623/trialogue/internal/domain"
)

// Session is the mutable aggregate owning the turn log, the discussion state,
// the thread id, and the one-shot title generation flag. A session is owned by
// exactly one driver; there is no cross-session sharing.
type Session struct {
	ThreadID string
	Turns    []domain.Turn
	State    *domain.DiscussionState

	titleGenerated bool
}

// NewSession returns an empty session. threadID may be empty; the driver
// creates a thread on the first submission.
func NewSession(threadID string) *Session {
	return &Session{
		ThreadID: threadID,
		State:    domain.NewDiscussionState(),
	}
}

// RestoreSession rebuilds a session from a stored turn log, replaying the
// discussion state from the successful assistant turns.
func RestoreSession(threadID string, turns []domain.Turn) *Session {
	sess := NewSession(threadID)
	sess.Turns = append(sess.Turns, turns...)
	for _, t := range turns {
		if t.Role == domain.RoleAssistant && !t.Faulted() {
			sess.State.RecordReply(t.Model)
		}
	}
	sess.State.AdvancePhase()
	if len(turns) > 0 {
		// A restored thread already carries a title.
		sess.titleGenerated = true
	}
	return sess
}

// AppendUser appends a user turn.
func (s *Session) AppendUser(content string) domain.Turn {
	turn := domain.Turn{
		ThreadID:  s.ThreadID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.Turns = append(s.Turns, turn)
	return turn
}

// AppendReply appends a successful assistant turn and updates the discussion
// state.
func (s *Session) AppendReply(model domain.ModelID, content string) domain.Turn {
	turn := domain.Turn{
		ThreadID:  s.ThreadID,
		Role:      domain.RoleAssistant,
		Content:   content,
		Model:     model,
		CreatedAt: time.Now(),
	}
	s.Turns = append(s.Turns, turn)
	s.State.RecordReply(model)
	return turn
}

// AppendFault appends an error-flagged assistant turn. Faulted turns do not
// count as spoken and are excluded from subsequent model context.
func (s *Session) AppendFault(model domain.ModelID, fault string) domain.Turn {
	turn := domain.Turn{
		ThreadID:  s.ThreadID,
		Role:      domain.RoleAssistant,
		Model:     model,
		Fault:     fault,
		CreatedAt: time.Now(),
	}
	s.Turns = append(s.Turns, turn)
	return turn
}

// ContextTurns returns the turns that form valid conversation context for the
// next model call: every turn except faulted ones.
func (s *Session) ContextTurns() []domain.Turn {
	out := make([]domain.Turn, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Faulted() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ReplyCount returns the number of assistant turns, faulted included.
func (s *Session) ReplyCount() int {
	n := 0
	for _, t := range s.Turns {
		if t.Role == domain.RoleAssistant {
			n++
		}
	}
	return n
}

// TitleGenerated reports whether the one-shot title generation already ran.
func (s *Session) TitleGenerated() bool {
	return s.titleGenerated
}

// MarkTitleGenerated records that the title side call was issued. The flag is
// set regardless of the call's outcome; failures are not retried.
func (s *Session) MarkTitleGenerated() {
	s.titleGenerated = true
}
