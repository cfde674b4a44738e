package repository

import (
	"errors"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// EscalationRepository defines the interface for escalation records.
type EscalationRepository interface {
	// Create operations
	Insert(esc *model.Escalation) error

	// Read operations
	GetByID(id string) (*model.Escalation, error)
	GetAll(filter *dto.EscalationFilter) ([]model.Escalation, error)
	CountPending() (int, error)

	// Update operations
	Resolve(id string, at time.Time) error
}

// AdjustmentRepository defines the interface for the manual adjustment audit trail.
type AdjustmentRepository interface {
	// Create operations
	Insert(adj *model.Adjustment) (int64, error)
	InsertBatch(adjustments []model.Adjustment) error

	// Read operations
	GetAll(filter *dto.AdjustmentFilter) ([]model.Adjustment, error)
}
