package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/deepgram/studio/internal/api/middleware"
	"github.com/deepgram/studio/internal/connections"
	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/deepgram/studio/internal/metrics"
	"github.com/deepgram/studio/internal/services/chat"
	"github.com/deepgram/studio/pkg/httpext"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const transportWebSocket = "websocket"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// frameWriter serialises writes from the read loop, the ping ticker and the reply goroutine
type frameWriter struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	writeWait time.Duration
}

func (f *frameWriter) frame(frame models.ServerFrame) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.conn.SetWriteDeadline(time.Now().Add(f.writeWait))
	return f.conn.WriteJSON(frame)
}

func (f *frameWriter) ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(f.writeWait))
}

// HandleChatWebSocket runs one conversation per connection. The conversation
// lives as long as the socket; closing it cancels the reply in progress.
func HandleChatWebSocket(streamer chat.Streamer, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Could not upgrade chat connection")
		return
	}

	timeouts := manager.GetTimeouts()
	manager.AddConnection(conn, sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	var turns sync.WaitGroup
	defer func() {
		cancel()
		turns.Wait()
		manager.RemoveConnection(conn)
		conn.Close()
	}()

	conversation := chat.NewSession(streamer)
	writer := &frameWriter{conn: conn, writeWait: timeouts.WriteWait}
	var turnActive atomic.Bool

	log.Info().
		Str("session_id", sessionID).
		Str("conversation_id", conversation.ID()).
		Msg("Chat connection opened")

	// Set up ping/pong handlers
	conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	go func() {
		ticker := time.NewTicker(timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := writer.ping(); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("Unexpected chat connection closure")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))

		var frame models.ClientFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Type != models.ClientFrameMessage {
			writer.frame(models.ServerFrame{
				RequestID: uuid.New().String(),
				Content:   "Unsupported frame",
				Status:    models.StatusError,
			})
			continue
		}

		if strings.TrimSpace(frame.Text) == "" {
			continue
		}

		requestID := uuid.New().String()
		if !turnActive.CompareAndSwap(false, true) {
			writer.frame(models.ServerFrame{
				RequestID: requestID,
				Content:   chat.ErrTurnInFlight.Error(),
				Status:    models.StatusBusy,
			})
			continue
		}

		turns.Add(1)
		go func(text string) {
			defer turns.Done()
			defer turnActive.Store(false)
			runTurn(ctx, conversation, writer, requestID, text)
		}(frame.Text)
	}

	log.Info().
		Str("session_id", sessionID).
		Str("conversation_id", conversation.ID()).
		Int("messages", len(conversation.Messages())).
		Msg("Chat connection closed")
}

func runTurn(ctx context.Context, conversation *chat.Session, writer *frameWriter, requestID, text string) {
	reply, err := conversation.Send(ctx, text, func(delta string) {
		metrics.StreamedChunks.WithLabelValues(transportWebSocket).Inc()
		writer.frame(models.ServerFrame{
			RequestID: requestID,
			Content:   delta,
			Status:    models.StatusStreaming,
		})
	})

	switch {
	case err == nil:
		metrics.ChatTurns.WithLabelValues(transportWebSocket, metrics.OutcomeSuccess).Inc()
		writer.frame(models.ServerFrame{
			RequestID: requestID,
			MessageID: reply.ID,
			Content:   reply.Text(),
			Status:    models.StatusComplete,
		})
	case errors.Is(err, chat.ErrTurnInFlight):
		metrics.ChatTurns.WithLabelValues(transportWebSocket, metrics.OutcomeRejected).Inc()
		writer.frame(models.ServerFrame{
			RequestID: requestID,
			Content:   err.Error(),
			Status:    models.StatusBusy,
		})
	case ctx.Err() != nil:
		// connection is gone
	default:
		metrics.ChatTurns.WithLabelValues(transportWebSocket, metrics.OutcomeError).Inc()
		log.Error().Err(err).Str("request_id", requestID).Msg("Chat turn failed")
		writer.frame(models.ServerFrame{
			RequestID: requestID,
			MessageID: reply.ID,
			Content:   httpext.Summarize(err),
			Status:    models.StatusError,
		})
	}
}
