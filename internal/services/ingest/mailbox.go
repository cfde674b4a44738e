// Package ingest hands detection payloads from the backend reader to the
// session processing loop. Only the most recent payload is kept: when the
// loop falls behind, older frames are overwritten and counted as dropped.
package ingest

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Take after Close.
var ErrClosed = errors.New("mailbox closed")

// Payload is one undecoded detection_results message.
type Payload struct {
	Data       []byte
	ReceivedAt time.Time
	Seq        uint64
}

// Stats are lifetime counters of a Mailbox.
type Stats struct {
	Published        uint64
	Consumed         uint64
	TotalDrops       uint64
	ConsecutiveDrops uint64
}

// Mailbox is a single-slot, overwrite-on-publish buffer with one consumer.
type Mailbox struct {
	mu     sync.Mutex
	slot   *Payload
	seq    uint64
	stats  Stats
	closed bool
	ready  chan struct{}
}

func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Put stores data as the latest payload. It never blocks.
func (m *Mailbox) Put(data []byte, receivedAt time.Time) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.slot != nil {
		m.stats.ConsecutiveDrops++
		m.stats.TotalDrops++
	}
	m.seq++
	m.stats.Published++
	m.slot = &Payload{Data: data, ReceivedAt: receivedAt, Seq: m.seq}
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// Take blocks until a payload is available, ctx is done, or the mailbox is
// closed. A payload published before Close is still delivered.
func (m *Mailbox) Take(ctx context.Context) (Payload, error) {
	for {
		m.mu.Lock()
		if m.slot != nil {
			p := *m.slot
			m.slot = nil
			m.stats.Consumed++
			m.stats.ConsecutiveDrops = 0
			m.mu.Unlock()
			return p, nil
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return Payload{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return Payload{}, ctx.Err()
		case <-m.ready:
		}
	}
}

// Close wakes a blocked consumer. Later Puts are ignored.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *Mailbox) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}
