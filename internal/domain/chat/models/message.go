package models

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

const PartTypeText = "text"

// Part is a tagged fragment of a message. Only the text variant is produced;
// unknown variants sent by clients are carried through and ignored.
type Part struct {
	Type string `json:"type" validate:"required"`
	Text string `json:"text,omitempty"`
}

// Message is a single entry of a conversation
type Message struct {
	ID    string `json:"id"`
	Role  Role   `json:"role" validate:"required,oneof=system user assistant"`
	Parts []Part `json:"parts" validate:"dive"`
}

// NewTextMessage builds a message holding a single text part
func NewTextMessage(role Role, text string) Message {
	return Message{
		ID:    uuid.New().String(),
		Role:  role,
		Parts: []Part{{Type: PartTypeText, Text: text}},
	}
}

// Text concatenates the text parts of the message
func (m Message) Text() string {
	var b strings.Builder
	for _, part := range m.Parts {
		if part.Type == PartTypeText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// Clone returns a deep copy so callers cannot mutate stored parts
func (m Message) Clone() Message {
	parts := make([]Part, len(m.Parts))
	copy(parts, m.Parts)
	m.Parts = parts
	return m
}
