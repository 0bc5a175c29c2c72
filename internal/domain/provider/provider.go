package provider

import (
	"context"
	"errors"
)

// ErrMissingAPIKey is returned by every call of a backend configured without credentials
var ErrMissingAPIKey = errors.New("model provider API key is not configured")

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a flattened, text-only conversation entry
type Message struct {
	Role Role
	Text string
}

// Attachment is binary content exchanged with the provider
type Attachment struct {
	MediaType string
	Data      []byte
}

// Chunk is one increment of a streamed reply. A chunk carrying Err is the
// last value sent before the channel closes.
type Chunk struct {
	Text string
	Err  error
}

// GenerateRequest is a single provider call. When Image is set the image and
// the prompt travel together in one multimodal request.
type GenerateRequest struct {
	Prompt string
	Image  *Attachment
}

// Usage is the token accounting reported by the provider, when it reports any
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

type GenerateResponse struct {
	Text        string
	Attachments []Attachment
	Usage       *Usage
}

// Provider is a hosted model service
type Provider interface {
	Name() string
	// StreamChat opens a streaming completion; the channel closes when the reply ends
	StreamChat(ctx context.Context, messages []Message) (<-chan Chunk, error)
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}
