package model

import "time"

// CartLine is one row of the shopping cart, keyed by item name.
type CartLine struct {
	ItemName         string  `json:"item_name"`
	Quantity         int     `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	ImagePath        string  `json:"image_path"`
	ManuallyAdjusted bool    `json:"manually_adjusted"`
	PreviousQuantity int     `json:"previous_quantity"`
}

// LineTotal is quantity times unit price; an unknown price counts as zero.
func (l CartLine) LineTotal() float64 {
	if l.UnitPrice <= 0 {
		return 0
	}
	return float64(l.Quantity) * l.UnitPrice
}

// Adjustment kinds recorded in the audit trail.
const (
	AdjustmentSet   = "set"
	AdjustmentReset = "reset"
)

// Adjustment is an applied manual quantity change or override reset.
type Adjustment struct {
	ID                int64     `json:"id"`
	SessionID         string    `json:"session_id"`
	ItemName          string    `json:"item_name"`
	Kind              string    `json:"kind"`
	PreviousQuantity  int       `json:"previous_quantity"`
	RequestedQuantity int       `json:"requested_quantity"`
	UnitPrice         float64   `json:"unit_price"`
	CreatedAt         time.Time `json:"created_at"`
}
