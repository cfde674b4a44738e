// Package assistance decides when a self-service cart edit must go to an
// attendant and keeps the resulting escalation records.
package assistance

import (
	"math"

	"selfcheckout/internal/model"
)

// DefaultThreshold is the largest decrease amount, in currency units, a
// customer may apply without an attendant.
const DefaultThreshold = 5.0

// DecreaseAmount is the monetary value removed by lowering current to
// requested. Increases yield a negative amount.
func DecreaseAmount(currentQuantity, requestedQuantity int, unitPrice float64) float64 {
	return float64(currentQuantity-requestedQuantity) * unitPrice
}

// Evaluate returns an escalation record when the decrease amount exceeds the
// threshold, or nil. Amounts are compared in whole cents so 5.00 against a
// threshold of 5 is not escalated while 5.01 is.
func Evaluate(itemName string, currentQuantity, requestedQuantity int, unitPrice, threshold float64) *model.Escalation {
	amount := DecreaseAmount(currentQuantity, requestedQuantity, unitPrice)
	if toCents(amount) <= toCents(threshold) {
		return nil
	}
	return &model.Escalation{
		ItemName:                itemName,
		CurrentQuantity:         currentQuantity,
		RequestedQuantity:       requestedQuantity,
		UnitPrice:               unitPrice,
		DecreaseAmount:          math.Round(amount*100) / 100,
		Reason:                  model.ReasonThresholdExceeded,
		ReasonThresholdExceeded: true,
		Status:                  model.EscalationPending,
	}
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}
