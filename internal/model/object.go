package model

// Object statuses reported by the detection backend.
const (
	StatusConfirmed    = "confirmed"
	StatusUndetermined = "undetermined"
)

// BBox is a rectangle in image space: x1, y1, x2, y2.
type BBox [4]float64

// Width of the box, never negative.
func (b BBox) Width() float64 {
	if b[2] < b[0] {
		return 0
	}
	return b[2] - b[0]
}

// Height of the box, never negative.
func (b BBox) Height() float64 {
	if b[3] < b[1] {
		return 0
	}
	return b[3] - b[1]
}

// TrackedObject is one candidate item visible in the current frame.
type TrackedObject struct {
	ID               int     `json:"id"`
	Class            string  `json:"class"`
	BBox             BBox    `json:"bbox"`
	Confidence       float64 `json:"confidence"`
	Status           string  `json:"status"`
	Progress         float64 `json:"progress"`
	Stability        float64 `json:"stability,omitempty"`
	IsValid          bool    `json:"is_valid"`
	HistoryLength    int     `json:"history_length"`
	LocationHash     string  `json:"location_hash,omitempty"`
	UnstableDuration float64 `json:"unstable_duration,omitempty"`
}

// Confirmed reports whether the object counts toward the cart.
func (o TrackedObject) Confirmed() bool {
	return o.Status == StatusConfirmed
}

// Pending reports whether the object is a real, still undetermined candidate
// that has been seen for at least minHistory frames.
func (o TrackedObject) Pending(minHistory int) bool {
	return o.Status != StatusConfirmed && o.IsValid && o.HistoryLength >= minHistory
}

// FrameStatus describes whether the scanning area is empty.
type FrameStatus struct {
	IsEmpty         bool    `json:"is_empty"`
	EmptyConfidence float64 `json:"empty_confidence"`
}

// UnstableZone is a location the detector cannot classify consistently.
type UnstableZone struct {
	ZoneKey  string         `json:"zone_key"`
	Classes  map[string]int `json:"classes"`
	Duration float64        `json:"unstable_duration,omitempty"`
}
