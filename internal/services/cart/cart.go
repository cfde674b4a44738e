// Package cart merges automatic detection counts with manual quantity
// overrides into the session's cart lines.
package cart

import (
	"errors"
	"fmt"
	"sort"

	"selfcheckout/internal/model"
	"selfcheckout/internal/services/assistance"
)

var (
	// ErrItemNotFound is returned when an item has no cart line.
	ErrItemNotFound = errors.New("item not in cart")
	// ErrInvalidQuantity is returned for negative requested quantities.
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// Outcome of a manual adjustment.
type Outcome int

const (
	Applied Outcome = iota
	Escalated
)

func (o Outcome) String() string {
	if o == Escalated {
		return "escalated"
	}
	return "applied"
}

// AdjustResult describes an applied or refused manual adjustment.
type AdjustResult struct {
	Outcome    Outcome
	Line       model.CartLine
	Escalation *model.Escalation
}

type line struct {
	model.CartLine
	autoQuantity int
	override     int
	overridden   bool
}

// Cart holds the session cart. It is not safe for concurrent use.
type Cart struct {
	lines     map[string]*line
	threshold float64
}

// New creates an empty cart escalating decreases above threshold.
func New(threshold float64) *Cart {
	return &Cart{lines: make(map[string]*line), threshold: threshold}
}

// Reconcile folds one snapshot into the cart. Lines of items that left the
// frame are kept; each confirmed object adds one unit to its class unless a
// manual override is active, in which case the override value wins.
func (c *Cart) Reconcile(snap *model.Snapshot) {
	for _, obj := range snap.TrackedObjects {
		if !obj.Confirmed() || obj.Class == "" {
			continue
		}
		l, ok := c.lines[obj.Class]
		if !ok {
			c.lines[obj.Class] = &line{
				CartLine:     model.CartLine{ItemName: obj.Class, Quantity: 1},
				autoQuantity: 1,
			}
			continue
		}
		if l.overridden {
			continue
		}
		l.autoQuantity++
		l.Quantity = l.autoQuantity
	}

	for _, l := range c.lines {
		if l.overridden {
			l.Quantity = l.override
		}
	}

	for name, seed := range snap.ConfirmedObjects {
		l, ok := c.lines[name]
		if !ok {
			continue
		}
		if seed.UnitPrice > 0 {
			l.UnitPrice = seed.UnitPrice
		}
		if seed.ImagePath != "" {
			l.ImagePath = seed.ImagePath
		}
	}
}

// Adjust applies a manual quantity for itemName. Decreases below the
// automatically counted quantity whose value exceeds the threshold are refused
// and returned as an escalation without touching the cart.
func (c *Cart) Adjust(itemName string, requested int) (AdjustResult, error) {
	if requested < 0 {
		return AdjustResult{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, requested)
	}
	l, ok := c.lines[itemName]
	if !ok {
		return AdjustResult{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemName)
	}

	if requested < l.autoQuantity {
		if esc := assistance.Evaluate(itemName, l.Quantity, requested, l.UnitPrice, c.threshold); esc != nil {
			return AdjustResult{Outcome: Escalated, Line: l.CartLine, Escalation: esc}, nil
		}
	}

	l.PreviousQuantity = l.Quantity
	l.Quantity = requested
	l.ManuallyAdjusted = true
	l.override = requested
	l.overridden = true

	return AdjustResult{Outcome: Applied, Line: l.CartLine}, nil
}

// ResetOverride removes the manual override of itemName. Automatic counting
// resumes from the current quantity; missed detections are not replayed.
func (c *Cart) ResetOverride(itemName string) (model.CartLine, error) {
	l, ok := c.lines[itemName]
	if !ok {
		return model.CartLine{}, fmt.Errorf("%w: %s", ErrItemNotFound, itemName)
	}
	if l.overridden {
		l.autoQuantity = l.Quantity
		l.overridden = false
		l.ManuallyAdjusted = false
	}
	return l.CartLine, nil
}

// HasOverride reports whether a manual override is active for itemName.
func (c *Cart) HasOverride(itemName string) bool {
	l, ok := c.lines[itemName]
	return ok && l.overridden
}

// Line returns the cart line for itemName.
func (c *Cart) Line(itemName string) (model.CartLine, bool) {
	l, ok := c.lines[itemName]
	if !ok {
		return model.CartLine{}, false
	}
	return l.CartLine, true
}

// Lines returns all lines sorted by item name.
func (c *Cart) Lines() []model.CartLine {
	out := make([]model.CartLine, 0, len(c.lines))
	for _, l := range c.lines {
		out = append(out, l.CartLine)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemName < out[j].ItemName })
	return out
}

// Total is the sum of quantity times unit price over all lines.
func (c *Cart) Total() float64 {
	total := 0.0
	for _, l := range c.lines {
		total += l.LineTotal()
	}
	return total
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}
