package main

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deepgram/studio/internal/config"
	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/deepgram/studio/internal/domain/provider"
	"github.com/deepgram/studio/internal/services"
	"github.com/deepgram/studio/internal/services/session"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) StreamChat(ctx context.Context, messages []provider.Message) (<-chan provider.Chunk, error) {
	out := make(chan provider.Chunk, 1)
	out <- provider.Chunk{Text: "echo: " + messages[len(messages)-1].Text}
	close(out)
	return out, nil
}

func (echoProvider) Generate(ctx context.Context, req provider.GenerateRequest) (*provider.GenerateResponse, error) {
	return &provider.GenerateResponse{Text: req.Prompt}, nil
}

func TestMainServer(t *testing.T) {
	t.Cleanup(config.SetJWTSecret([]byte("test-secret")))
	t.Setenv("SESSION_COOKIE_SECURE", "false")

	sessionService := session.NewServiceWithStore(session.NewMemoryStore(), time.Hour)
	svc, err := services.NewServices(echoProvider{}, sessionService, nil)
	require.NoError(t, err)

	server := httptest.NewServer(setupRouter(svc))
	defer server.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	t.Run("image endpoint", func(t *testing.T) {
		resp, err := client.Post(server.URL+"/api/image", "application/json", strings.NewReader(`{"prompt":"a kite"}`))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Cookies(), "first request issues the session cookie")
	})

	t.Run("websocket endpoint", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"

		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer ws.Close()

		require.NoError(t, ws.WriteJSON(models.ClientFrame{Type: models.ClientFrameMessage, Text: "ping"}))

		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame models.ServerFrame
		require.NoError(t, ws.ReadJSON(&frame))
		assert.Equal(t, models.StatusStreaming, frame.Status)
		assert.Equal(t, "echo: ping", frame.Content)

		require.NoError(t, ws.ReadJSON(&frame))
		assert.Equal(t, models.StatusComplete, frame.Status)
	})

	t.Run("shutdown closes sockets", func(t *testing.T) {
		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer ws.Close()

		require.Eventually(t, func() bool {
			return svc.GetConnectionManager().GetConnectionCount() > 0
		}, time.Second, 10*time.Millisecond)

		svc.Shutdown()

		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err = ws.ReadMessage()
		assert.Error(t, err)
	})
}
