package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/services/websocket"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewWebsocketHandler_IdleViewerKeptAlive(t *testing.T) {
	f := newFixture(t)
	hub := websocket.NewHubService(logger.NewNop())
	hub.SetKeepalive(300*time.Millisecond, 100*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(ViewWebsocketHandler(f.manager, hub, logger.NewNop()))
	defer server.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	// The default client ping handler answers with a pong while reading.
	messages := make(chan dto.ViewerMessage, 8)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			var msg dto.ViewerMessage
			if json.Unmarshal(data, &msg) == nil {
				messages <- msg
			}
		}
	}()

	select {
	case msg := <-messages:
		assert.Equal(t, dto.MessageState, msg.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial state")
	}

	select {
	case err := <-readErr:
		t.Fatalf("idle viewer disconnected: %v", err)
	case <-time.After(1 * time.Second):
	}
	assert.Equal(t, 1, hub.GetClientCount())

	hub.Publish(dto.ViewerMessage{Type: dto.MessageSpeak, Data: dto.SpeakEvent{Text: "still here"}})
	select {
	case msg := <-messages:
		assert.Equal(t, dto.MessageSpeak, msg.Type)
	case err := <-readErr:
		t.Fatalf("viewer disconnected: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("speak event not delivered")
	}
}
