// Package llm provides an abstraction over the three LLM backends, reached
// through an OpenAI-compatible gateway.
package llm

import (
	"context"

	"github.com/xiaot623/trialogue/internal/domain"
)

// Client defines the interface for model completions.
type Client interface {
	// Complete sends prompt to the backend registered for model and returns
	// the reply text.
	Complete(ctx context.Context, model domain.ModelID, prompt string) (string, error)
}

// Ensure GatewayClient implements Client interface.
var _ Client = (*GatewayClient)(nil)
