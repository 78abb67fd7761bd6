// Package store defines the persistence interface and implementations for
// discussion threads.
package store

import (
	"context"

	"github.com/xiaot623/trialogue/internal/domain"
)

// Store defines the interface for thread and turn persistence.
type Store interface {
	// Thread operations
	CreateThread(ctx context.Context, thread *domain.Thread) error
	ListThreads(ctx context.Context) ([]domain.Thread, error)
	GetThread(ctx context.Context, threadID string) (*domain.ThreadDetail, error)
	DeleteThread(ctx context.Context, threadID string) (bool, error)
	UpdateThreadTitle(ctx context.Context, threadID, title string) (bool, error)

	// Turn operations
	AppendTurn(ctx context.Context, turn *domain.Turn) error
	GetTurns(ctx context.Context, threadID string) ([]domain.Turn, error)

	// Lifecycle
	Close() error
}
