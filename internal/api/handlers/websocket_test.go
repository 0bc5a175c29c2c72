package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/deepgram/studio/internal/api/middleware"
	"github.com/deepgram/studio/internal/connections"
	"github.com/deepgram/studio/internal/domain/chat/models"
	"github.com/deepgram/studio/internal/domain/provider"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTimeouts = connections.TimeoutConfig{
	PongWait:   2 * time.Second,
	PingPeriod: time.Second,
	WriteWait:  time.Second,
}

func dialChat(t *testing.T, streamer *fakeStreamer, manager *connections.Manager) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(middleware.WithSessionID(r.Context(), "ws-session"))
		HandleChatWebSocket(streamer, manager, w, r)
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame models.ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestHandleChatWebSocket(t *testing.T) {
	t.Run("streams deltas then completes", func(t *testing.T) {
		manager := connections.NewManager(testTimeouts)
		streamer := &fakeStreamer{chunks: []provider.Chunk{{Text: "Hel"}, {Text: "lo"}}}
		conn := dialChat(t, streamer, manager)

		require.NoError(t, conn.WriteJSON(models.ClientFrame{Type: models.ClientFrameMessage, Text: "hi"}))

		first := readFrame(t, conn)
		assert.Equal(t, models.StatusStreaming, first.Status)
		assert.Equal(t, "Hel", first.Content)
		assert.NotEmpty(t, first.RequestID)

		second := readFrame(t, conn)
		assert.Equal(t, "lo", second.Content)
		assert.Equal(t, first.RequestID, second.RequestID)

		done := readFrame(t, conn)
		assert.Equal(t, models.StatusComplete, done.Status)
		assert.Equal(t, "Hello", done.Content)
		assert.NotEmpty(t, done.MessageID)
		assert.Equal(t, first.RequestID, done.RequestID)

		assert.Equal(t, 1, manager.SessionConnectionCount("ws-session"))
	})

	t.Run("history grows across turns", func(t *testing.T) {
		streamer := &fakeStreamer{chunks: []provider.Chunk{{Text: "ok"}}}
		conn := dialChat(t, streamer, connections.NewManager(testTimeouts))

		for _, text := range []string{"one", "two"} {
			require.NoError(t, conn.WriteJSON(models.ClientFrame{Type: models.ClientFrameMessage, Text: text}))
			readFrame(t, conn)
			assert.Equal(t, models.StatusComplete, readFrame(t, conn).Status)
		}

		history := streamer.lastHistory()
		require.Len(t, history, 3)
		assert.Equal(t, "one", history[0].Text())
		assert.Equal(t, "ok", history[1].Text())
		assert.Equal(t, "two", history[2].Text())
	})

	t.Run("second message while streaming is busy", func(t *testing.T) {
		streamer := &fakeStreamer{
			chunks: []provider.Chunk{{Text: "slow"}},
			gate:   make(chan struct{}),
		}
		conn := dialChat(t, streamer, connections.NewManager(testTimeouts))

		require.NoError(t, conn.WriteJSON(models.ClientFrame{Type: models.ClientFrameMessage, Text: "first"}))
		require.Eventually(t, func() bool { return streamer.lastHistory() != nil }, time.Second, 5*time.Millisecond)

		require.NoError(t, conn.WriteJSON(models.ClientFrame{Type: models.ClientFrameMessage, Text: "second"}))
		busy := readFrame(t, conn)
		assert.Equal(t, models.StatusBusy, busy.Status)

		close(streamer.gate)
		assert.Equal(t, models.StatusStreaming, readFrame(t, conn).Status)
		assert.Equal(t, models.StatusComplete, readFrame(t, conn).Status)
	})

	t.Run("failure sends first line of the error", func(t *testing.T) {
		streamer := &fakeStreamer{chunks: []provider.Chunk{{Text: "part"}, {Err: errUpstream}}}
		conn := dialChat(t, streamer, connections.NewManager(testTimeouts))

		require.NoError(t, conn.WriteJSON(models.ClientFrame{Type: models.ClientFrameMessage, Text: "hi"}))

		assert.Equal(t, "part", readFrame(t, conn).Content)
		failed := readFrame(t, conn)
		assert.Equal(t, models.StatusError, failed.Status)
		assert.Equal(t, "upstream model overloaded", failed.Content)
	})

	t.Run("unsupported frames are rejected", func(t *testing.T) {
		conn := dialChat(t, &fakeStreamer{}, connections.NewManager(testTimeouts))

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
		assert.Equal(t, models.StatusError, readFrame(t, conn).Status)

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
		assert.Equal(t, models.StatusError, readFrame(t, conn).Status)
	})

	t.Run("connection is removed on close", func(t *testing.T) {
		manager := connections.NewManager(testTimeouts)
		conn := dialChat(t, &fakeStreamer{}, manager)

		require.Eventually(t, func() bool { return manager.GetConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()

		require.Eventually(t, func() bool { return manager.GetConnectionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	})
}
