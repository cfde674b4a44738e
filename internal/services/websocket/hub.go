package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second

	// DefaultPongWait is how long a viewer may stay silent before its read
	// deadline expires. Pings go out at nine tenths of it.
	DefaultPongWait = 60 * time.Second
)

type registration struct {
	conn    *websocket.Conn
	initial []byte
}

// HubService fans viewer messages out to every connected kiosk or attendant
// screen. All writes, pings included, happen on the Run goroutine.
//
// State messages are coalesced: only the newest pending one is written.
// Every other message type is queued and written in order.
type HubService struct {
	clients    map[*websocket.Conn]bool
	state      chan []byte
	events     chan struct{}
	pending    [][]byte
	pendingMu  sync.Mutex
	register   chan registration
	unregister chan *websocket.Conn
	done       chan struct{}
	pongWait   time.Duration
	pingPeriod time.Duration
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		state:      make(chan []byte, 1),
		events:     make(chan struct{}, 1),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		pongWait:   DefaultPongWait,
		pingPeriod: DefaultPongWait * 9 / 10,
		logger:     logger,
	}
}

// SetKeepalive changes the read deadline and ping interval. Call it before
// Run; pingPeriod must be shorter than pongWait.
func (h *HubService) SetKeepalive(pongWait, pingPeriod time.Duration) {
	if pongWait <= 0 || pingPeriod <= 0 || pingPeriod >= pongWait {
		return
	}
	h.pongWait = pongWait
	h.pingPeriod = pingPeriod
}

// PongWait is the read deadline viewer connections should use.
func (h *HubService) PongWait() time.Duration {
	return h.pongWait
}

// Run serves registrations, messages and keepalive pings until ctx is
// cancelled, then closes every client.
func (h *HubService) Run(ctx context.Context) error {
	defer close(h.done)
	ping := time.NewTicker(h.pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return nil

		case reg := <-h.register:
			h.mutex.Lock()
			h.clients[reg.conn] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", total)
			if reg.initial != nil {
				h.write(reg.conn, reg.initial)
			}

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case <-h.events:
			for _, message := range h.takePending() {
				h.writeAll(message)
			}

		case message := <-h.state:
			h.writeAll(message)

		case <-ping.C:
			for _, client := range h.snapshot() {
				if err := client.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					h.drop(client, err)
				}
			}
		}
	}
}

func (h *HubService) snapshot() []*websocket.Conn {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *HubService) writeAll(message []byte) {
	for _, client := range h.snapshot() {
		h.write(client, message)
	}
}

func (h *HubService) write(client *websocket.Conn, message []byte) {
	client.SetWriteDeadline(time.Now().Add(writeWait))
	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		h.drop(client, err)
	}
}

func (h *HubService) drop(client *websocket.Conn, err error) {
	h.logger.Error("Error sending message: %v", err)
	h.mutex.Lock()
	delete(h.clients, client)
	h.mutex.Unlock()
	client.Close()
}

func (h *HubService) takePending() [][]byte {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	messages := h.pending
	h.pending = nil
	return messages
}

// Register adds a viewer; initial, when not nil, is sent to it first.
func (h *HubService) Register(client *websocket.Conn, initial []byte) {
	select {
	case h.register <- registration{conn: client, initial: initial}:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish encodes msg and hands it to the Run goroutine. State messages
// replace any state not yet written; speak and escalation messages are never
// dropped.
func (h *HubService) Publish(msg dto.ViewerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode %s message: %v", msg.Type, err)
		return
	}
	if msg.Type == dto.MessageState {
		h.BroadcastState(data)
		return
	}
	h.Broadcast(data)
}

// Broadcast queues a raw message for every viewer without blocking. Queued
// messages are delivered in order.
func (h *HubService) Broadcast(message []byte) {
	select {
	case <-h.done:
		return
	default:
	}
	h.pendingMu.Lock()
	h.pending = append(h.pending, message)
	h.pendingMu.Unlock()
	select {
	case h.events <- struct{}{}:
	default:
	}
}

// BroadcastState offers message as the latest state, replacing a state that
// has not been written yet.
func (h *HubService) BroadcastState(message []byte) {
	for {
		select {
		case h.state <- message:
			return
		default:
		}
		select {
		case <-h.state:
		default:
		}
	}
}

// Pending reports how many ordered messages await the Run goroutine.
func (h *HubService) Pending() int {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	return len(h.pending)
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
