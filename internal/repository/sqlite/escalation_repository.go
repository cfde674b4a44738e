package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/model"
	"selfcheckout/internal/repository"
)

// EscalationRepository implements repository.EscalationRepository for SQLite.
type EscalationRepository struct {
	db *DB
}

// NewEscalationRepository creates a new SQLite escalation repository.
func NewEscalationRepository(db *DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

const escalationColumns = `id, session_id, item_name, current_quantity, requested_quantity,
	unit_price, decrease_amount, reason, status, created_at, resolved_at`

// Insert adds a new escalation record.
func (r *EscalationRepository) Insert(esc *model.Escalation) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO escalations (`+escalationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, esc.ID, esc.SessionID, esc.ItemName, esc.CurrentQuantity, esc.RequestedQuantity,
		esc.UnitPrice, esc.DecreaseAmount, esc.Reason, esc.Status, esc.CreatedAt, nullTime(esc.ResolvedAt))
	if err != nil {
		return fmt.Errorf("failed to insert escalation: %w", err)
	}
	return nil
}

// GetByID retrieves an escalation by its ID.
func (r *EscalationRepository) GetByID(id string) (*model.Escalation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`SELECT `+escalationColumns+` FROM escalations WHERE id = ?`, id)
	esc, err := scanEscalation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("escalation %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation: %w", err)
	}
	return esc, nil
}

// GetAll returns escalations, newest first.
func (r *EscalationRepository) GetAll(filter *dto.EscalationFilter) ([]model.Escalation, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var conditions []string
	var args []interface{}
	limit := 100
	if filter != nil {
		if filter.PendingOnly {
			conditions = append(conditions, "status = ?")
			args = append(args, model.EscalationPending)
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
	}

	query := `SELECT ` + escalationColumns + ` FROM escalations`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalations: %w", err)
	}
	defer rows.Close()

	var escalations []model.Escalation
	for rows.Next() {
		esc, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, *esc)
	}
	return escalations, rows.Err()
}

// CountPending returns the number of unresolved escalations.
func (r *EscalationRepository) CountPending() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM escalations WHERE status = ?`, model.EscalationPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count escalations: %w", err)
	}
	return count, nil
}

// Resolve marks a pending escalation as resolved.
func (r *EscalationRepository) Resolve(id string, at time.Time) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE escalations SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, model.EscalationResolved, at, id, model.EscalationPending)
	if err != nil {
		return fmt.Errorf("failed to resolve escalation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to resolve escalation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pending escalation %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEscalation(s scanner) (*model.Escalation, error) {
	var esc model.Escalation
	var resolvedAt sql.NullTime
	if err := s.Scan(&esc.ID, &esc.SessionID, &esc.ItemName, &esc.CurrentQuantity, &esc.RequestedQuantity,
		&esc.UnitPrice, &esc.DecreaseAmount, &esc.Reason, &esc.Status, &esc.CreatedAt, &resolvedAt); err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		esc.ResolvedAt = &t
	}
	esc.ReasonThresholdExceeded = esc.Reason == model.ReasonThresholdExceeded
	return &esc, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
