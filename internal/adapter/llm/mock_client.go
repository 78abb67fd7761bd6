package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/trialogue/internal/domain"
)

// MockClient is a mock implementation of Client for testing and for running
// the server without live provider access.
type MockClient struct{}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements Client interface.
var _ Client = (*MockClient)(nil)

// Complete returns a deterministic canned reply derived from the prompt.
func (m *MockClient) Complete(ctx context.Context, model domain.ModelID, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return fmt.Sprintf("[MOCK %s] %s", model, truncate(lastLine(prompt), 100)), nil
}

// lastLine returns the last non-empty line of the prompt, usually the latest
// conversation entry.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
