package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/google/uuid"
)

var (
	// ErrEmptyPrompt is returned for blank input; nothing is sent or recorded
	ErrEmptyPrompt = errors.New("prompt is empty")
	// ErrTurnInFlight is returned when a reply is still streaming
	ErrTurnInFlight = errors.New("a reply is already in progress")
)

// Session is one conversation: an append-only message list with at most one
// streaming turn at a time.
type Session struct {
	id       string
	streamer Streamer

	mu        sync.RWMutex
	messages  []models.Message
	streaming *models.Message
	inFlight  bool
}

func NewSession(streamer Streamer) *Session {
	return &Session{
		id:       uuid.New().String(),
		streamer: streamer,
	}
}

func (s *Session) ID() string {
	return s.id
}

// Busy reports whether a turn is in flight
func (s *Session) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight
}

// Messages returns a snapshot in submission order, including the reply that
// is currently streaming.
func (s *Session) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, 0, len(s.messages)+1)
	for _, msg := range s.messages {
		out = append(out, msg.Clone())
	}
	if s.streaming != nil {
		out = append(out, s.streaming.Clone())
	}
	return out
}

// Send appends text as a user message and streams the assistant reply,
// calling onDelta for every chunk. Text that streamed before a failure is
// kept as the assistant message. The returned message is the final reply.
func (s *Session) Send(ctx context.Context, text string, onDelta func(delta string)) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return models.Message{}, ErrTurnInFlight
	}
	s.inFlight = true
	s.messages = append(s.messages, models.NewTextMessage(models.RoleUser, text))
	history := make([]models.Message, len(s.messages))
	copy(history, s.messages)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	chunks, err := s.streamer.Stream(ctx, history)
	if err != nil {
		return models.Message{}, err
	}

	reply := models.NewTextMessage(models.RoleAssistant, "")
	var (
		text      strings.Builder
		received  bool
		streamErr error
	)

	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		if chunk.Text == "" {
			continue
		}

		text.WriteString(chunk.Text)
		received = true

		s.mu.Lock()
		reply.Parts[0].Text = text.String()
		live := reply.Clone()
		s.streaming = &live
		s.mu.Unlock()

		if onDelta != nil {
			onDelta(chunk.Text)
		}
	}

	if streamErr == nil {
		streamErr = ctx.Err()
	}

	s.mu.Lock()
	s.streaming = nil
	if received {
		s.messages = append(s.messages, reply)
	}
	s.mu.Unlock()

	return reply.Clone(), streamErr
}
