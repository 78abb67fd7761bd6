// Package domain defines the core domain models for the discussion engine.
package domain

import "time"

// Role identifies the author kind of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ModelID identifies one of the three fixed LLM backends.
type ModelID string

const (
	ModelAnthropic ModelID = "anthropic"
	ModelGPT       ModelID = "gpt"
	ModelGemini    ModelID = "gemini"
)

// AllModels returns the closed set of participating models in a stable order.
func AllModels() []ModelID {
	return []ModelID{ModelAnthropic, ModelGPT, ModelGemini}
}

// IsValidModel reports whether id is one of the three known backends.
func IsValidModel(id ModelID) bool {
	switch id {
	case ModelAnthropic, ModelGPT, ModelGemini:
		return true
	}
	return false
}

// Turn is one message unit in the conversation log. Turns are immutable once
// created; the log is append-only and its order is the chronological context.
type Turn struct {
	TurnID    string    `json:"turn_id,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Model     ModelID   `json:"model,omitempty"` // set only for assistant turns
	Fault     string    `json:"fault,omitempty"` // non-empty when the model call failed
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Faulted reports whether the turn records a failed model call. Faulted turns
// never enter the context of subsequent model calls.
func (t Turn) Faulted() bool {
	return t.Fault != ""
}

// Thread is the summary of one discussion thread.
type Thread struct {
	ThreadID  string    `json:"thread_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ThreadDetail is a thread together with its full turn log, oldest first.
type ThreadDetail struct {
	Thread
	Turns []Turn `json:"turns"`
}

// ChatRequest is the wire request for a single model invocation.
type ChatRequest struct {
	Messages []Turn          `json:"messages"`
	Model    ModelID         `json:"model"`
	Phase    DiscussionPhase `json:"phase,omitempty"`
	ThreadID string          `json:"thread_id,omitempty"`
}

// ChatResponse is the wire response for a single model invocation. NextModel
// carries the server-side mention hint when the reply names another model.
type ChatResponse struct {
	Message   Turn    `json:"message"`
	Model     ModelID `json:"model"`
	NextModel ModelID `json:"next_model,omitempty"`
}
