package dto

import "selfcheckout/internal/model"

type AdjustRequest struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// AdjustResponse outcome values.
const (
	OutcomeApplied   = "applied"
	OutcomeEscalated = "escalated"
	OutcomeNotFound  = "not_found"
)

type AdjustResponse struct {
	Outcome    string            `json:"outcome"`
	Line       *model.CartLine   `json:"line,omitempty"`
	Escalation *model.Escalation `json:"escalation,omitempty"`
	Total      float64           `json:"total"`
}

type ResetRequest struct {
	ItemName string `json:"item_name"`
}

type IgnoreZoneRequest struct {
	ZoneKey string `json:"zone_key"`
}

type HelpRequest struct {
	Note string `json:"note"`
}

// EscalationFilter narrows escalation listings.
type EscalationFilter struct {
	PendingOnly bool
	Limit       int
}

// AdjustmentFilter narrows adjustment listings.
type AdjustmentFilter struct {
	ItemName string
	Limit    int
}
