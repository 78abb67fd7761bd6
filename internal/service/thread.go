package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/trialogue/internal/domain"
)

// DefaultThreadTitle is the title of a thread before the one-shot title
// generation has run.
const DefaultThreadTitle = "New discussion"

// CreateThread creates an empty thread.
func (s *Service) CreateThread(ctx context.Context) (*domain.Thread, error) {
	now := time.Now()
	thread := &domain.Thread{
		ThreadID:  "thr_" + uuid.New().String()[:8],
		Title:     DefaultThreadTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateThread(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return thread, nil
}

// ListThreads lists thread summaries, most recently updated first.
func (s *Service) ListThreads(ctx context.Context) ([]domain.Thread, error) {
	threads, err := s.store.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// GetThread retrieves a thread with its full turn log.
func (s *Service) GetThread(ctx context.Context, threadID string) (*domain.ThreadDetail, error) {
	detail, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	if detail == nil {
		return nil, ErrThreadNotFound
	}
	return detail, nil
}

// DeleteThread deletes a thread and drops any live session for it.
func (s *Service) DeleteThread(ctx context.Context, threadID string) error {
	deleted, err := s.store.DeleteThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	if !deleted {
		return ErrThreadNotFound
	}

	s.mu.Lock()
	delete(s.sessions, threadID)
	s.mu.Unlock()
	return nil
}
