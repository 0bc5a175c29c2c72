package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deepgram/studio/internal/client"
	"github.com/deepgram/studio/internal/services/chat"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"text-delta\",\"id\":\"t\",\"delta\":\"pong\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c, err := client.New(server.URL, nil)
	require.NoError(t, err)
	session := chat.NewSession(client.NewChatStreamer(c, "test"))

	var out bytes.Buffer
	err = chatLoop(context.Background(), session, strings.NewReader("ping\n\n   \n/quit\nignored\n"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "pong")
	assert.Len(t, session.Messages(), 2, "blank lines are not sent")
}

func TestImageCommand(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"text":"A dot.","imageUrl":"data:image/jpeg;base64,AQID"}`)
	}))
	defer server.Close()

	viper.Set("server", server.URL)
	t.Cleanup(func() { viper.Set("server", nil) })

	outPath := filepath.Join(t.TempDir(), "dot.jpg")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"image", "--prompt", "a dot", "--out", outPath})

	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, out.String(), "A dot.")
	saved, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, saved)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("data:image/jpeg;base64,"))
	assert.Equal(t, ".png", extensionFor("data:image/png;base64,"))
	assert.Equal(t, ".webp", extensionFor("data:image/webp;base64,"))
}
