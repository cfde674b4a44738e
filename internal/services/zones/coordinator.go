// Package zones tracks unresolved unstable zones. A zone only leaves the open
// set when the backend acknowledges it dropped the zone, never when the
// ignore request is sent.
package zones

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/model"
)

// ErrZoneNotOpen is returned when ignoring a zone that is not open.
var ErrZoneNotOpen = errors.New("zone is not open")

// CommandSender delivers the ignore command to the backend.
type CommandSender interface {
	SendIgnoreZone(zoneKey string) error
}

// Coordinator is safe for concurrent use: acknowledgements arrive on the
// backend reader while frames and user requests arrive elsewhere.
type Coordinator struct {
	mu      sync.Mutex
	open    map[string]model.UnstableZone
	order   []string
	pending map[string]time.Time
	acked   map[string]time.Time
	sender  CommandSender
	now     func() time.Time
}

func NewCoordinator(sender CommandSender) *Coordinator {
	return &Coordinator{
		open:    make(map[string]model.UnstableZone),
		pending: make(map[string]time.Time),
		acked:   make(map[string]time.Time),
		sender:  sender,
		now:     time.Now,
	}
}

// Sync refreshes the open set from a snapshot received at receivedAt. Zones
// the backend no longer reports are closed unless an ignore request for them
// is still in flight. An acknowledged zone is not reopened by snapshots
// received before its acknowledgement.
func (c *Coordinator) Sync(zones []model.UnstableZone, receivedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, at := range c.acked {
		if receivedAt.After(at) {
			delete(c.acked, key)
		}
	}

	seen := make(map[string]bool, len(zones))
	for _, z := range zones {
		if _, stale := c.acked[z.ZoneKey]; stale {
			continue
		}
		seen[z.ZoneKey] = true
		if _, ok := c.open[z.ZoneKey]; !ok {
			c.order = append(c.order, z.ZoneKey)
		}
		c.open[z.ZoneKey] = z
	}

	kept := c.order[:0]
	for _, key := range c.order {
		if seen[key] {
			kept = append(kept, key)
			continue
		}
		if _, waiting := c.pending[key]; waiting {
			kept = append(kept, key)
			continue
		}
		delete(c.open, key)
	}
	c.order = kept
}

// RequestIgnore sends the ignore command. The zone stays open until the
// acknowledgement arrives.
func (c *Coordinator) RequestIgnore(zoneKey string) error {
	c.mu.Lock()
	if _, ok := c.open[zoneKey]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrZoneNotOpen, zoneKey)
	}
	c.pending[zoneKey] = c.now()
	c.mu.Unlock()

	if err := c.sender.SendIgnoreZone(zoneKey); err != nil {
		c.mu.Lock()
		delete(c.pending, zoneKey)
		c.mu.Unlock()
		return fmt.Errorf("failed to send ignore for zone %s: %w", zoneKey, err)
	}
	return nil
}

// HandleAck applies an acknowledgement that arrived at the given time. It
// reports whether a zone was closed.
func (c *Coordinator) HandleAck(ack dto.ZoneAck, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pending, ack.ZoneKey)
	if !ack.Succeeded() {
		return false
	}
	c.acked[ack.ZoneKey] = at
	if _, ok := c.open[ack.ZoneKey]; !ok {
		return false
	}
	delete(c.open, ack.ZoneKey)
	for i, key := range c.order {
		if key == ack.ZoneKey {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// Open returns the open zones in first-seen order.
func (c *Coordinator) Open() []model.UnstableZone {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.UnstableZone, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.open[key])
	}
	return out
}

// IsOpen reports whether the zone is unresolved.
func (c *Coordinator) IsOpen(zoneKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.open[zoneKey]
	return ok
}

// Pending reports whether an ignore request awaits acknowledgement.
func (c *Coordinator) Pending(zoneKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[zoneKey]
	return ok
}
