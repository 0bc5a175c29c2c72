package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/deepgram/studio/internal/metrics"
	"github.com/deepgram/studio/internal/services/chat"
	"github.com/deepgram/studio/pkg/httpext"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const transportSSE = "sse"

// HandleChatStream answers a conversation with a UI message stream over SSE
func HandleChatStream(streamer chat.Streamer, w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed JSON request")
		httpext.JsonError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		log.Warn().Err(err).Msg("Request validation failed")
		httpext.JsonError(w, fmt.Sprintf("Invalid request: %s", httpext.Summarize(err)), http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error().Msg("Response writer does not support streaming")
		httpext.JsonError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("chat_id", req.ID).
		Int("message_count", len(req.Messages)).
		Str("client_ip", r.RemoteAddr).
		Msg("Received chat stream request")

	chunks, err := streamer.Stream(r.Context(), req.Messages)
	if err != nil {
		metrics.ChatTurns.WithLabelValues(transportSSE, metrics.OutcomeError).Inc()
		if errors.Is(err, chat.ErrEmptyConversation) {
			httpext.JsonError(w, "Messages must contain text", http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("chat_id", req.ID).Msg("Failed to open chat stream")
		httpext.JsonError(w, httpext.Summarize(err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(models.StreamHeader, models.StreamHeaderVersion)
	w.WriteHeader(http.StatusOK)

	sse := &eventWriter{w: w, flusher: flusher}
	messageID := uuid.New().String()
	textID := uuid.New().String()

	sse.event(models.StreamEvent{Type: models.EventStart, MessageID: messageID})
	sse.event(models.StreamEvent{Type: models.EventStartStep})
	sse.event(models.StreamEvent{Type: models.EventTextStart, ID: textID})

	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
			continue
		}
		if chunk.Text == "" {
			continue
		}
		metrics.StreamedChunks.WithLabelValues(transportSSE).Inc()
		sse.event(models.StreamEvent{Type: models.EventTextDelta, ID: textID, Delta: chunk.Text})
	}

	if streamErr == nil {
		streamErr = r.Context().Err()
	}

	if streamErr != nil {
		metrics.ChatTurns.WithLabelValues(transportSSE, metrics.OutcomeError).Inc()
		log.Error().Err(streamErr).Str("chat_id", req.ID).Msg("Chat stream failed")
		sse.event(models.StreamEvent{Type: models.EventError, ErrorText: httpext.Summarize(streamErr)})
		sse.done()
		return
	}

	sse.event(models.StreamEvent{Type: models.EventTextEnd, ID: textID})
	sse.event(models.StreamEvent{Type: models.EventFinishStep})
	sse.event(models.StreamEvent{Type: models.EventFinish})
	sse.done()

	metrics.ChatTurns.WithLabelValues(transportSSE, metrics.OutcomeSuccess).Inc()
	log.Info().Str("chat_id", req.ID).Msg("Chat stream completed")
}

// eventWriter frames values as SSE data lines and stops at the first write error
type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	err     error
}

func (e *eventWriter) event(event models.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to encode stream event")
		return
	}
	e.data(string(data))
}

func (e *eventWriter) done() {
	e.data(models.StreamDone)
}

func (e *eventWriter) data(payload string) {
	if e.err != nil {
		return
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", payload); err != nil {
		e.err = err
		log.Debug().Err(err).Msg("Client went away during chat stream")
		return
	}
	e.flusher.Flush()
}
