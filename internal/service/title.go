package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/trialogue/internal/adapter/llm"
	"github.com/xiaot623/trialogue/internal/domain"
)

const maxTitleLen = 50

// GenerateTitle asks the title model for a short thread title based on the
// turn log so far and stores it.
func (s *Service) GenerateTitle(ctx context.Context, threadID string, turns []domain.Turn) (*domain.Thread, error) {
	prompt := llm.BuildTitlePrompt(turns)

	raw, err := s.llm.Complete(ctx, s.config.TitleModel, prompt)
	if err != nil {
		return nil, fmt.Errorf("title model call failed: %w", err)
	}

	title := sanitizeTitle(raw)
	if title == "" {
		return nil, fmt.Errorf("title model returned empty title")
	}

	updated, err := s.store.UpdateThreadTitle(ctx, threadID, title)
	if err != nil {
		return nil, fmt.Errorf("failed to update thread title: %w", err)
	}
	if !updated {
		return nil, ErrThreadNotFound
	}

	detail, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload thread: %w", err)
	}
	if detail == nil {
		return nil, ErrThreadNotFound
	}
	return &detail.Thread, nil
}

// sanitizeTitle trims whitespace and wrapping quotes and caps the length.
func sanitizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	runes := []rune(title)
	if len(runes) > maxTitleLen {
		runes = runes[:maxTitleLen]
	}
	return strings.TrimSpace(string(runes))
}
