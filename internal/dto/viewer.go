package dto

import "selfcheckout/internal/model"

// Viewer message types.
const (
	MessageState      = "state"
	MessageSpeak      = "speak"
	MessageEscalation = "escalation"
)

// ViewerMessage is pushed to kiosk viewers over the websocket.
type ViewerMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// ViewerCartLine is a cart line as rendered by the kiosk.
type ViewerCartLine struct {
	model.CartLine
	LineTotal float64 `json:"line_total"`
	ImageURL  string  `json:"image_url,omitempty"`
}

// ViewerState is the derived state consumed by rendering surfaces.
type ViewerState struct {
	SessionID       string                `json:"session_id"`
	Instruction     string                `json:"instruction"`
	Cart            []ViewerCartLine      `json:"cart"`
	Total           float64               `json:"total"`
	OpenZones       []model.UnstableZone  `json:"open_zones"`
	TrackedObjects  []model.TrackedObject `json:"tracked_objects"`
	FPS             int                   `json:"fps"`
	CheckoutEnabled bool                  `json:"checkout_enabled"`
	Frame           []byte                `json:"frame,omitempty"`
}

// SpeakEvent asks viewers to read an instruction aloud.
type SpeakEvent struct {
	Text string `json:"text"`
}
