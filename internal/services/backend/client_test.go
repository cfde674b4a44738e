package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"selfcheckout/internal/config"
	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend accepts one client at a time, pushes scripted messages and
// records what the client sends.
type fakeBackend struct {
	server   *httptest.Server
	upgrader websocket.Upgrader
	mu       sync.Mutex
	received []dto.Envelope
	outbound [][]byte
	conns    chan *websocket.Conn
}

func newFakeBackend(t *testing.T, outbound ...string) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{conns: make(chan *websocket.Conn, 4)}
	for _, m := range outbound {
		fb.outbound = append(fb.outbound, []byte(m))
	}
	fb.server = httptest.NewServer(http.HandlerFunc(fb.handle))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := fb.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	fb.conns <- conn
	for _, m := range fb.outbound {
		conn.WriteMessage(websocket.TextMessage, m)
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env dto.Envelope
		if json.Unmarshal(msg, &env) == nil {
			fb.mu.Lock()
			fb.received = append(fb.received, env)
			fb.mu.Unlock()
		}
	}
}

func (fb *fakeBackend) url() string {
	return "ws" + strings.TrimPrefix(fb.server.URL, "http")
}

func (fb *fakeBackend) envelopes() []dto.Envelope {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]dto.Envelope(nil), fb.received...)
}

func newTestClient(url string) *Client {
	return NewClient(&config.Config{BackendURL: url, ReconnectDelay: 20 * time.Millisecond}, logger.NewNop())
}

type recorder struct {
	mu         sync.Mutex
	detections []string
	acks       []dto.ZoneAck
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnDetection: func(data []byte, _ time.Time) {
			r.mu.Lock()
			r.detections = append(r.detections, string(data))
			r.mu.Unlock()
		},
		OnZoneAck: func(ack dto.ZoneAck) {
			r.mu.Lock()
			r.acks = append(r.acks, ack)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.detections), len(r.acks)
}

func TestClient_DispatchesEvents(t *testing.T) {
	fb := newFakeBackend(t,
		`{"event":"detection_results","data":{"tracked_objects":[]}}`,
		`not json`,
		`{"event":"ignore_zone_ack","data":{"status":"success","zone_key":"z1"}}`,
		`{"event":"zone_ignored","data":{"zone_key":"z2"}}`,
		`{"event":"heartbeat"}`,
	)
	c := newTestClient(fb.url())
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, rec.handlers()) }()

	assert.Eventually(t, func() bool {
		d, a := rec.counts()
		return d == 1 && a == 2
	}, 2*time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	assert.JSONEq(t, `{"tracked_objects":[]}`, rec.detections[0])
	assert.Equal(t, dto.ZoneAck{Status: "success", ZoneKey: "z1"}, rec.acks[0])
	assert.True(t, rec.acks[1].Succeeded())
	rec.mu.Unlock()
	assert.Equal(t, uint64(1), c.Malformed())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestClient_SendIgnoreZone(t *testing.T) {
	fb := newFakeBackend(t)
	c := newTestClient(fb.url())
	assert.ErrorIs(t, c.SendIgnoreZone("z1"), ErrNotConnected)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, Handlers{})

	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, c.SendIgnoreZone("z1"))

	assert.Eventually(t, func() bool { return len(fb.envelopes()) == 1 }, 2*time.Second, 10*time.Millisecond)
	env := fb.envelopes()[0]
	assert.Equal(t, dto.EventIgnoreZone, env.Event)
	assert.JSONEq(t, `{"zone_key":"z1"}`, string(env.Data))
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	fb := newFakeBackend(t)
	c := newTestClient(fb.url())

	var mu sync.Mutex
	var transitions []bool
	c.OnConnectionChange(func(up bool) {
		mu.Lock()
		transitions = append(transitions, up)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx, Handlers{})

	first := <-fb.conns
	first.Close()

	select {
	case <-fb.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not reconnect")
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transitions) >= 3
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []bool{true, false, true}, transitions[:3])
	mu.Unlock()
}

func TestClient_UnreachableBackendStopsOnCancel(t *testing.T) {
	c := newTestClient("ws://127.0.0.1:1/ws")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, c.Run(ctx, Handlers{}))
	assert.NotZero(t, c.Reconnects())
	assert.False(t, c.Connected())
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, backoff(1, 2*time.Second))
	assert.Equal(t, 4*time.Second, backoff(2, 2*time.Second))
	assert.Equal(t, 16*time.Second, backoff(4, 2*time.Second))
	assert.Equal(t, maxReconnectDelay, backoff(10, 2*time.Second))
}
