// Package backend maintains the websocket link to the detection backend.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"selfcheckout/internal/config"
	"selfcheckout/internal/dto"
	"selfcheckout/internal/logger"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned when a command is sent while the link is down.
var ErrNotConnected = errors.New("backend not connected")

const (
	maxReconnectDelay = 30 * time.Second
	writeTimeout      = 5 * time.Second
	maxMessageSize    = 16 << 20
)

// Handlers receive inbound backend events. OnDetection is called with the raw
// data of every detection_results message; OnZoneAck with every decoded zone
// acknowledgement.
type Handlers struct {
	OnDetection func(data []byte, receivedAt time.Time)
	OnZoneAck   func(ack dto.ZoneAck)
}

// Client dials the backend, dispatches its events and reconnects after a
// lost connection until its context is cancelled.
type Client struct {
	url          string
	retryDelay   time.Duration
	dialer       *websocket.Dialer
	logger       *logger.Logger
	now          func() time.Time
	reconnects   atomic.Uint64
	malformed    atomic.Uint64
	writeMu      sync.Mutex
	conn         *websocket.Conn
	connected    atomic.Bool
	onConnection func(connected bool)
}

func NewClient(cfg *config.Config, logger *logger.Logger) *Client {
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Client{
		url:        cfg.BackendURL,
		retryDelay: delay,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

// OnConnectionChange registers a callback fired whenever the link goes up or
// down. It must be set before Run.
func (c *Client) OnConnectionChange(fn func(connected bool)) {
	c.onConnection = fn
}

// Run connects and serves the link until ctx is cancelled.
func (c *Client) Run(ctx context.Context, handlers Handlers) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			attempt++
			c.reconnects.Add(1)
			delay := backoff(attempt, c.retryDelay)
			c.logger.Warning("Backend %s unreachable (attempt %d): %v; retrying in %s", c.url, attempt, err, delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
				continue
			}
		}

		attempt = 0
		c.logger.Info("Connected to backend %s", c.url)
		c.setConn(conn)
		err = c.serve(ctx, conn, handlers)
		c.setConn(nil)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warning("Backend connection lost: %v", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.retryDelay):
		}
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	c.connected.Store(conn != nil)
	if c.onConnection != nil {
		c.onConnection(conn != nil)
	}
}

// serve reads until the connection fails or ctx is cancelled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn, handlers Handlers) error {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.writeMu.Lock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			c.writeMu.Unlock()
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.dispatch(msg, handlers)
	}
}

func (c *Client) dispatch(msg []byte, handlers Handlers) {
	var env dto.Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.malformed.Add(1)
		c.logger.Warning("Discarding malformed backend message: %v", err)
		return
	}

	switch env.Event {
	case dto.EventDetectionResults:
		if handlers.OnDetection != nil {
			handlers.OnDetection(env.Data, c.now())
		}
	case dto.EventIgnoreZoneAck, dto.EventZoneIgnored:
		var ack dto.ZoneAck
		if err := json.Unmarshal(env.Data, &ack); err != nil || ack.ZoneKey == "" {
			c.malformed.Add(1)
			c.logger.Warning("Discarding malformed %s event", env.Event)
			return
		}
		if env.Event == dto.EventZoneIgnored && ack.Status == "" {
			ack.Status = "success"
		}
		if handlers.OnZoneAck != nil {
			handlers.OnZoneAck(ack)
		}
	default:
		c.logger.Debug("Ignoring backend event %q", env.Event)
	}
}

// SendIgnoreZone asks the backend to drop a zone.
func (c *Client) SendIgnoreZone(zoneKey string) error {
	data, err := json.Marshal(dto.IgnoreZoneCommand{ZoneKey: zoneKey})
	if err != nil {
		return err
	}
	return c.send(dto.Envelope{Event: dto.EventIgnoreZone, Data: data})
}

func (c *Client) send(env dto.Envelope) error {
	msg, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", env.Event, err)
	}
	return nil
}

// Connected reports whether the link is currently up.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Reconnects is the number of failed dial attempts so far.
func (c *Client) Reconnects() uint64 {
	return c.reconnects.Load()
}

// Malformed is the number of inbound messages that could not be decoded.
func (c *Client) Malformed() uint64 {
	return c.malformed.Load()
}

// backoff doubles base for every failed attempt, capped at maxReconnectDelay.
func backoff(attempt int, base time.Duration) time.Duration {
	delay := base
	for i := 1; i < attempt && delay < maxReconnectDelay; i++ {
		delay *= 2
	}
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}
	return delay
}
