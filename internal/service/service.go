// Package service wires the turn orchestrator to persistence, the LLM
// gateway, the submission policy, and the observer hub.
package service

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/xiaot623/trialogue/internal/adapter/llm"
	"github.com/xiaot623/trialogue/internal/config"
	"github.com/xiaot623/trialogue/internal/engine"
	"github.com/xiaot623/trialogue/internal/hub"
	"github.com/xiaot623/trialogue/internal/store"
	"github.com/xiaot623/trialogue/policy"
)

var (
	// ErrThreadNotFound is returned when a thread id resolves to nothing.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrSubmissionBlocked is returned when the submission policy rejects
	// the user's text.
	ErrSubmissionBlocked = errors.New("submission blocked by policy")
	// ErrUnknownModel is returned for a model tag outside the fixed set.
	ErrUnknownModel = errors.New("unknown model")
)

// Service coordinates discussions across threads. Each thread has at most one
// live session handle; calls against one handle are serialized so at most one
// model call is in flight per session.
type Service struct {
	store  store.Store
	llm    llm.Client
	guard  *policy.Engine
	hub    *hub.Hub
	config *config.Config

	newRand func() engine.RandSource

	mu       sync.Mutex
	sessions map[string]*sessionHandle
}

type sessionHandle struct {
	mu     sync.Mutex
	driver *engine.Driver
}

// New creates a service. hub may be nil when no observers are served.
func New(st store.Store, llmClient llm.Client, guard *policy.Engine, h *hub.Hub, cfg *config.Config) *Service {
	return &Service{
		store:  st,
		llm:    llmClient,
		guard:  guard,
		hub:    h,
		config: cfg,
		newRand: func() engine.RandSource {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		sessions: make(map[string]*sessionHandle),
	}
}
