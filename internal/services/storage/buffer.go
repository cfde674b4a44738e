package storage

import (
	"context"
	"sync"
	"time"

	"selfcheckout/internal/logger"
	"selfcheckout/internal/model"
	"selfcheckout/internal/repository"
)

// AuditBufferLimit caps how many adjustments are held before a flush is forced.
const AuditBufferLimit = 50

// AuditBufferCap bounds the records kept while the database is unavailable.
// Beyond it the oldest records are discarded.
const AuditBufferCap = 1000

// BufferService buffers manual adjustment records in memory and periodically
// flushes them to the repository.
type BufferService struct {
	adjustments []model.Adjustment
	mu          sync.Mutex
	logger      *logger.Logger
	repo        repository.AdjustmentRepository
	interval    time.Duration
	flushNow    chan struct{}
	capacity    int
	dropped     int64
}

// NewBufferService creates a BufferService flushing every interval.
func NewBufferService(repo repository.AdjustmentRepository, interval time.Duration, logger *logger.Logger) *BufferService {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &BufferService{
		adjustments: make([]model.Adjustment, 0),
		logger:      logger,
		repo:        repo,
		interval:    interval,
		flushNow:    make(chan struct{}, 1),
		capacity:    AuditBufferCap,
	}
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return nil
		case <-ticker.C:
			s.Flush()
		case <-s.flushNow:
			s.Flush()
		}
	}
}

// Record appends an adjustment to the in-memory buffer.
func (s *BufferService) Record(adj model.Adjustment) {
	s.mu.Lock()
	s.adjustments = append(s.adjustments, adj)
	s.trimLocked()
	full := len(s.adjustments) >= AuditBufferLimit
	s.mu.Unlock()

	if full {
		select {
		case s.flushNow <- struct{}{}:
		default:
		}
	}
}

// trimLocked drops the oldest records above capacity.
func (s *BufferService) trimLocked() {
	excess := len(s.adjustments) - s.capacity
	if excess <= 0 {
		return
	}
	s.adjustments = append(s.adjustments[:0:0], s.adjustments[excess:]...)
	s.dropped += int64(excess)
	s.logger.Warning("Audit buffer full, dropped %d oldest adjustments (%d total)", excess, s.dropped)
}

// Dropped returns how many adjustments were discarded because the buffer was full.
func (s *BufferService) Dropped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Pending returns the number of buffered adjustments.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.adjustments)
}

// Flush writes buffered adjustments to the repository. On failure the records
// stay buffered for the next attempt.
func (s *BufferService) Flush() {
	s.mu.Lock()
	if len(s.adjustments) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.adjustments
	s.adjustments = make([]model.Adjustment, 0, len(batch))
	s.mu.Unlock()

	if err := s.repo.InsertBatch(batch); err != nil {
		s.logger.Error("Error saving %d adjustments: %v", len(batch), err)
		s.mu.Lock()
		s.adjustments = append(batch, s.adjustments...)
		s.trimLocked()
		s.mu.Unlock()
		return
	}

	s.logger.Info("Flushed %d adjustments to database", len(batch))
}
