package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/deepgram/studio/internal/domain/provider"
	"github.com/rs/zerolog/log"
)

// ErrEmptyConversation is returned when there is nothing to send upstream
var ErrEmptyConversation = errors.New("conversation has no messages")

// Streamer produces the assistant reply for a conversation
type Streamer interface {
	Stream(ctx context.Context, history []models.Message) (<-chan provider.Chunk, error)
}

// Service streams replies from the configured provider
type Service struct {
	provider     provider.Provider
	systemPrompt string
}

func NewService(p provider.Provider, systemPrompt string) (*Service, error) {
	if p == nil {
		return nil, fmt.Errorf("a model provider is required")
	}

	return &Service{
		provider:     p,
		systemPrompt: systemPrompt,
	}, nil
}

// Provider returns the name of the backing provider
func (s *Service) Provider() string {
	return s.provider.Name()
}

// Stream converts the conversation to provider messages and opens a stream.
// System messages from the caller are appended to the configured prompt.
func (s *Service) Stream(ctx context.Context, history []models.Message) (<-chan provider.Chunk, error) {
	messages := make([]provider.Message, 0, len(history)+1)

	system := s.systemPrompt
	for _, msg := range history {
		text := msg.Text()

		if msg.Role == models.RoleSystem {
			system = strings.TrimSpace(system + "\n\n" + text)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		role := provider.RoleUser
		if msg.Role == models.RoleAssistant {
			role = provider.RoleAssistant
		}
		messages = append(messages, provider.Message{Role: role, Text: text})
	}

	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}

	if system != "" {
		messages = append([]provider.Message{{Role: provider.RoleSystem, Text: system}}, messages...)
	}

	log.Debug().
		Str("provider", s.provider.Name()).
		Int("message_count", len(messages)).
		Msg("Opening chat stream")

	chunks, err := s.provider.StreamChat(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("failed to open chat stream: %w", err)
	}

	return chunks, nil
}
