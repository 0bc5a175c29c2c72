package models

// UI message stream protocol, one JSON object per SSE data line.
const (
	StreamHeader        = "x-vercel-ai-ui-message-stream"
	StreamHeaderVersion = "v1"
	StreamDone          = "[DONE]"

	EventStart      = "start"
	EventStartStep  = "start-step"
	EventTextStart  = "text-start"
	EventTextDelta  = "text-delta"
	EventTextEnd    = "text-end"
	EventFinishStep = "finish-step"
	EventFinish     = "finish"
	EventError      = "error"
)

// StreamEvent is a single event of the UI message stream
type StreamEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Delta     string `json:"delta,omitempty"`
	ErrorText string `json:"errorText,omitempty"`
}

// ChatRequest is the body accepted by the streaming chat endpoint
type ChatRequest struct {
	ID       string    `json:"id,omitempty"`
	Messages []Message `json:"messages" validate:"required,min=1,dive"`
	Trigger  string    `json:"trigger,omitempty"`
}
