package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/trialogue/internal/adapter/llm"
	"github.com/xiaot623/trialogue/internal/domain"
	"github.com/xiaot623/trialogue/internal/engine"
)

// Chat performs a single model invocation against the supplied message
// context, outside any driver session. When a thread id is present the
// exchange is persisted server-side: the trailing user message and the reply.
// The response carries a next_model hint when the reply mentions another
// model.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if !domain.IsValidModel(req.Model) {
		return nil, ErrUnknownModel
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages are required")
	}
	phase := req.Phase
	if phase == "" {
		phase = domain.PhaseOpinion
	}

	if req.ThreadID != "" {
		last := req.Messages[len(req.Messages)-1]
		if last.Role == domain.RoleUser {
			s.persistTurn(ctx, domain.Turn{
				ThreadID:  req.ThreadID,
				Role:      domain.RoleUser,
				Content:   last.Content,
				CreatedAt: time.Now(),
			})
		}
	}

	prompt := llm.BuildInstruction(req.Model, phase, req.Messages)
	content, err := s.llm.Complete(ctx, req.Model, prompt)
	if err != nil {
		return nil, fmt.Errorf("model %s call failed: %w", req.Model, err)
	}

	if req.ThreadID != "" {
		s.persistTurn(ctx, domain.Turn{
			ThreadID:  req.ThreadID,
			Role:      domain.RoleAssistant,
			Content:   content,
			Model:     req.Model,
			CreatedAt: time.Now(),
		})
	}

	resp := &domain.ChatResponse{
		Message: domain.Turn{Role: domain.RoleAssistant, Content: content, Model: req.Model},
		Model:   req.Model,
	}
	if hint, ok := engine.MentionHint(content, req.Model); ok {
		resp.NextModel = hint
	}
	return resp, nil
}

// persistTurn stores a turn, assigning an id. Storage failure never blocks
// the call; it is logged and the cycle continues.
func (s *Service) persistTurn(ctx context.Context, turn domain.Turn) {
	if turn.TurnID == "" {
		turn.TurnID = "trn_" + uuid.New().String()[:8]
	}
	if err := s.store.AppendTurn(ctx, &turn); err != nil {
		log.Printf("ERROR: failed to save turn for thread %s: %v", turn.ThreadID, err)
	}
}
