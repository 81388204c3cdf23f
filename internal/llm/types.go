package llm

import (
	"context"
	"time"
)

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to a provider.
type Message struct {
	Role    Role
	Content string
}

func System(content string) Message    { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message      { return Message{Role: RoleUser, Content: content} }
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Request is a single completion call.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxRetries  int // 429 retries after the first attempt
	MaxTokens   int // 0 leaves the provider default
}

// Provider performs one chat completion against a concrete backend.
// HTTP failures come back as *errors.APIError so the client can see the status.
type Provider interface {
	Name() string
	// RateLimited reports whether the backend is a metered cloud API that
	// needs a pause between calls.
	RateLimited() bool
	Chat(ctx context.Context, req Request) (string, error)
}

// Completer is what the dialogue and extraction code depends on.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Observer receives call outcomes. Implemented by the metrics package.
type Observer interface {
	ObserveCompletion(provider, outcome string, elapsed time.Duration)
	ObserveRateLimit(provider string, daily bool, wait time.Duration)
}

// Completion outcomes reported to the Observer.
const (
	OutcomeOK          = "ok"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
)
