package dto

import "encoding/json"

// Backend event names.
const (
	EventDetectionResults = "detection_results"
	EventIgnoreZone       = "ignore_zone"
	EventIgnoreZoneAck    = "ignore_zone_ack"
	EventZoneIgnored      = "zone_ignored"
)

// Envelope wraps every message exchanged with the detection backend.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ZoneAck confirms (or refuses) a zone-ignore request.
type ZoneAck struct {
	Status  string `json:"status"`
	ZoneKey string `json:"zone_key"`
}

// Succeeded reports whether the backend dropped the zone.
func (a ZoneAck) Succeeded() bool {
	return a.Status == "success"
}

// IgnoreZoneCommand asks the backend to stop tracking a zone.
type IgnoreZoneCommand struct {
	ZoneKey string `json:"zone_key"`
}

// RawTrackedObject is a tracked object as sent by the backend. Optional fields
// are pointers so absence can be told apart from zero.
type RawTrackedObject struct {
	ID               int       `json:"id"`
	Class            string    `json:"class"`
	BBox             []float64 `json:"bbox"`
	Confidence       float64   `json:"confidence"`
	Status           string    `json:"status"`
	Progress         float64   `json:"progress"`
	Stability        *float64  `json:"stability"`
	IsValid          *bool     `json:"is_valid"`
	HistoryLength    *int      `json:"history_length"`
	LocationHash     string    `json:"location_hash"`
	UnstableDuration *float64  `json:"unstable_duration"`
}

// RawFrameStatus is the backend's frame_status field.
type RawFrameStatus struct {
	IsEmpty         *bool    `json:"is_empty"`
	EmptyConfidence *float64 `json:"empty_confidence"`
}

// RawUnstableZone is the object form of an unstable zone. Older backends send
// the key as location_hash.
type RawUnstableZone struct {
	ZoneKey          string         `json:"zone_key"`
	LocationHash     string         `json:"location_hash"`
	Classes          map[string]int `json:"classes"`
	UnstableDuration float64        `json:"unstable_duration"`
}
