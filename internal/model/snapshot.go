package model

import "time"

// SeedLine is the partial cart line the backend sends for a confirmed item.
// It only enriches existing lines with price and image.
type SeedLine struct {
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	ImagePath string  `json:"image_path"`
}

// Snapshot is the canonical form of one processed frame.
type Snapshot struct {
	Frame               []byte
	TrackedObjects      []TrackedObject
	ConfirmedObjects    map[string]SeedLine
	UndeterminedObjects []TrackedObject
	FrameStatus         FrameStatus
	UnstableZones       []UnstableZone
	ReceivedAt          time.Time
}

// ConfirmedCount returns the number of confirmed objects in frame.
func (s *Snapshot) ConfirmedCount() int {
	n := 0
	for _, obj := range s.TrackedObjects {
		if obj.Confirmed() {
			n++
		}
	}
	return n
}

// PendingCount returns the number of undetermined-valid objects in frame.
func (s *Snapshot) PendingCount(minHistory int) int {
	n := 0
	for _, obj := range s.TrackedObjects {
		if obj.Pending(minHistory) {
			n++
		}
	}
	return n
}

// HasCandidates reports whether any valid or confirmed object is present.
func (s *Snapshot) HasCandidates() bool {
	for _, obj := range s.TrackedObjects {
		if obj.Confirmed() || obj.IsValid {
			return true
		}
	}
	return false
}
