package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/deepgram/studio/internal/domain/provider"
)

// ErrStreamTruncated is returned when the body ends before the [DONE] marker
var ErrStreamTruncated = errors.New("chat stream ended before the reply was complete")

// ChatStreamer streams replies from POST /api/chat. It satisfies the
// streamer a chat.Session needs, so the session logic runs client side.
type ChatStreamer struct {
	client *Client
	chatID string
}

func NewChatStreamer(client *Client, chatID string) *ChatStreamer {
	return &ChatStreamer{client: client, chatID: chatID}
}

func (s *ChatStreamer) Stream(ctx context.Context, history []models.Message) (<-chan provider.Chunk, error) {
	body, err := json.Marshal(models.ChatRequest{ID: s.chatID, Messages: history, Trigger: "submit-message"})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.url("/api/chat"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeServerError(resp)
	}

	chunks := make(chan provider.Chunk)

	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		send := func(chunk provider.Chunk) bool {
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}
			if payload == models.StreamDone {
				return
			}

			var event models.StreamEvent
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				send(provider.Chunk{Err: fmt.Errorf("malformed stream event: %w", err)})
				return
			}

			switch event.Type {
			case models.EventTextDelta:
				if !send(provider.Chunk{Text: event.Delta}) {
					return
				}
			case models.EventError:
				send(provider.Chunk{Err: errors.New(event.ErrorText)})
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		if err := scanner.Err(); err != nil {
			send(provider.Chunk{Err: fmt.Errorf("chat stream interrupted: %w", err)})
			return
		}
		send(provider.Chunk{Err: ErrStreamTruncated})
	}()

	return chunks, nil
}
