package llm

import (
	"log"
	"os"
	"time"

	"github.com/xiaot623/trialogue/internal/domain"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "TRIALOGUE_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewClient creates an LLM client based on the TRIALOGUE_MODE environment
// variable. If TRIALOGUE_MODE=MOCK, returns a MockClient; otherwise returns a
// real GatewayClient.
func NewClient(baseURL, apiKey string, modelNames map[domain.ModelID]string, timeout time.Duration) Client {
	if os.Getenv(EnvMode) == ModeMock {
		log.Println("TRIALOGUE_MODE=MOCK detected, using mock LLM client")
		return NewMockClient()
	}
	return NewGatewayClient(baseURL, apiKey, modelNames, timeout)
}
