package model

import "time"

// Escalation reasons.
const (
	ReasonThresholdExceeded = "threshold_exceeded"
	ReasonHelpRequested     = "help_requested"
)

// Escalation statuses.
const (
	EscalationPending  = "pending"
	EscalationResolved = "resolved"
)

// Escalation routes a refused self-service action to an attendant.
type Escalation struct {
	ID                      string     `json:"id"`
	SessionID               string     `json:"session_id"`
	ItemName                string     `json:"item_name"`
	CurrentQuantity         int        `json:"current_quantity"`
	RequestedQuantity       int        `json:"requested_quantity"`
	UnitPrice               float64    `json:"unit_price"`
	DecreaseAmount          float64    `json:"decrease_amount"`
	Reason                  string     `json:"reason"`
	ReasonThresholdExceeded bool       `json:"reason_threshold_exceeded"`
	Status                  string     `json:"status"`
	CreatedAt               time.Time  `json:"created_at"`
	ResolvedAt              *time.Time `json:"resolved_at,omitempty"`
}
