package sqlite

import (
	"fmt"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/model"
)

// AdjustmentRepository implements repository.AdjustmentRepository for SQLite.
type AdjustmentRepository struct {
	db *DB
}

// NewAdjustmentRepository creates a new SQLite adjustment repository.
func NewAdjustmentRepository(db *DB) *AdjustmentRepository {
	return &AdjustmentRepository{db: db}
}

const insertAdjustment = `
	INSERT INTO adjustments (session_id, item_name, kind, previous_quantity, requested_quantity, unit_price, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Insert adds a new adjustment record.
func (r *AdjustmentRepository) Insert(adj *model.Adjustment) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertAdjustment,
		adj.SessionID, adj.ItemName, adj.Kind, adj.PreviousQuantity, adj.RequestedQuantity, adj.UnitPrice, adj.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert adjustment: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple adjustments in a single transaction.
func (r *AdjustmentRepository) InsertBatch(adjustments []model.Adjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertAdjustment)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, adj := range adjustments {
		if _, err := stmt.Exec(adj.SessionID, adj.ItemName, adj.Kind, adj.PreviousQuantity,
			adj.RequestedQuantity, adj.UnitPrice, adj.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert adjustment: %w", err)
		}
	}

	return tx.Commit()
}

// GetAll returns adjustments, newest first.
func (r *AdjustmentRepository) GetAll(filter *dto.AdjustmentFilter) ([]model.Adjustment, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT id, session_id, item_name, kind, previous_quantity, requested_quantity, unit_price, created_at
		FROM adjustments`
	var args []interface{}
	limit := 100
	if filter != nil {
		if filter.ItemName != "" {
			query += " WHERE item_name = ?"
			args = append(args, filter.ItemName)
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	var adjustments []model.Adjustment
	for rows.Next() {
		var adj model.Adjustment
		if err := rows.Scan(&adj.ID, &adj.SessionID, &adj.ItemName, &adj.Kind, &adj.PreviousQuantity,
			&adj.RequestedQuantity, &adj.UnitPrice, &adj.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adjustments = append(adjustments, adj)
	}

	return adjustments, rows.Err()
}
