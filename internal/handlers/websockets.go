package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"
	"selfcheckout/internal/services"
	"selfcheckout/internal/services/websocket"

	gorilla "github.com/gorilla/websocket"
)

var Upgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler registers a viewer with the hub. The viewer first
// receives the current state, then every update.
func ViewWebsocketHandler(manager *services.Manager, hub *websocket.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		pongWait := hub.PongWait()
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		initial, err := json.Marshal(dto.ViewerMessage{Type: dto.MessageState, Data: manager.State()})
		if err != nil {
			logger.Error("Failed to encode initial state: %v", err)
			initial = nil
		}
		hub.Register(connection, initial)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Debug("Viewer disconnected: %v", err)
				break
			}
			connection.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}
