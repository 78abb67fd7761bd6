package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/trialogue/internal/domain"
)

// GatewayClient talks to an OpenAI-compatible gateway (LiteLLM or similar)
// that fronts all three providers. The ModelID is mapped to the gateway's
// model name before dispatch.
type GatewayClient struct {
	baseURL    string
	apiKey     string
	modelNames map[domain.ModelID]string
	httpClient *http.Client
}

// NewGatewayClient creates a new gateway client. modelNames maps each backend
// tag to the upstream model name.
func NewGatewayClient(baseURL, apiKey string, modelNames map[domain.ModelID]string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		modelNames: modelNames,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message *struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a non-streaming chat completion request for model.
func (c *GatewayClient) Complete(ctx context.Context, model domain.ModelID, prompt string) (string, error) {
	upstream, ok := c.modelNames[model]
	if !ok {
		return "", fmt.Errorf("no upstream model configured for %s", model)
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:    upstream,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("gateway error (%d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("gateway error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message == nil {
		return "", fmt.Errorf("gateway returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
