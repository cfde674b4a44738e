package normalize

import (
	"testing"
	"time"

	"selfcheckout/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNormalize_EmptyObjectDefaults(t *testing.T) {
	snap, issues := Normalize([]byte(`{}`), t0)

	assert.Empty(t, issues)
	assert.NotNil(t, snap.TrackedObjects)
	assert.Empty(t, snap.TrackedObjects)
	assert.NotNil(t, snap.ConfirmedObjects)
	assert.NotNil(t, snap.UndeterminedObjects)
	assert.NotNil(t, snap.UnstableZones)
	assert.Equal(t, model.FrameStatus{IsEmpty: true, EmptyConfidence: 1.0}, snap.FrameStatus)
	assert.Equal(t, t0, snap.ReceivedAt)
}

func TestNormalize_MalformedPayloadNeverFails(t *testing.T) {
	for _, payload := range []string{``, `null`, `[1,2]`, `{"tracked_objects": 5`, `"text"`} {
		snap, issues := Normalize([]byte(payload), t0)
		require.NotNil(t, snap, payload)
		assert.NotEmpty(t, issues, payload)
		assert.True(t, snap.FrameStatus.IsEmpty, payload)
		assert.Empty(t, snap.TrackedObjects, payload)
	}
}

func TestNormalize_TrackedObjects(t *testing.T) {
	payload := `{
		"tracked_objects": [
			{"id": 1, "class": "apple", "bbox": [10, 20, 110, 220], "confidence": 0.93, "status": "confirmed", "progress": 80, "history_length": 7},
			{"id": 2, "class": "pear", "bbox": [0, 0, 5], "confidence": 1.7, "status": "UNDETERMINED", "progress": 140, "is_valid": false},
			"garbage"
		],
		"frame_status": {"is_empty": false, "empty_confidence": 0.1}
	}`

	snap, issues := Normalize([]byte(payload), t0)

	require.Len(t, snap.TrackedObjects, 2)
	assert.Len(t, issues, 1)

	apple := snap.TrackedObjects[0]
	assert.Equal(t, model.StatusConfirmed, apple.Status)
	assert.Equal(t, model.BBox{10, 20, 110, 220}, apple.BBox)
	assert.Equal(t, 7, apple.HistoryLength)
	assert.True(t, apple.IsValid)
	assert.Equal(t, 100.0, apple.Progress)

	pear := snap.TrackedObjects[1]
	assert.Equal(t, model.StatusUndetermined, pear.Status)
	assert.Equal(t, model.BBox{}, pear.BBox)
	assert.Equal(t, 1.0, pear.Confidence)
	assert.Equal(t, 100.0, pear.Progress)
	assert.False(t, pear.IsValid)
	assert.Equal(t, 1, pear.HistoryLength)

	assert.False(t, snap.FrameStatus.IsEmpty)
	assert.Equal(t, 0.1, snap.FrameStatus.EmptyConfidence)
}

func TestNormalize_MissingFrameStatusWithObjects(t *testing.T) {
	snap, _ := Normalize([]byte(`{"tracked_objects": [{"id": 3, "class": "milk", "status": "confirmed"}]}`), t0)

	assert.False(t, snap.FrameStatus.IsEmpty)
}

func TestNormalize_ConfirmedSeed(t *testing.T) {
	payload := `{"confirmed_objects": {"apple": {"quantity": 3, "unit_price": 0.5, "image_path": "/srv/Assets/apple.png"}}}`

	snap, issues := Normalize([]byte(payload), t0)

	assert.Empty(t, issues)
	assert.Equal(t, model.SeedLine{Quantity: 3, UnitPrice: 0.5, ImagePath: "/srv/Assets/apple.png"}, snap.ConfirmedObjects["apple"])
}

func TestNormalize_FrameBase64(t *testing.T) {
	snap, issues := Normalize([]byte(`{"frame": "/9j/"}`), t0)

	assert.Empty(t, issues)
	assert.Equal(t, []byte{0xFF, 0xD8, 0xFF}, snap.Frame)

	snap, issues = Normalize([]byte(`{"frame": 12}`), t0)
	assert.Len(t, issues, 1)
	assert.Nil(t, snap.Frame)
}

func TestNormalize_UnstableZoneShapes(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected []model.UnstableZone
	}{
		{
			name:    "bare hashes",
			payload: `{"unstable_objects": ["h1", "h2"]}`,
			expected: []model.UnstableZone{
				{ZoneKey: "h1", Classes: map[string]int{}},
				{ZoneKey: "h2", Classes: map[string]int{}},
			},
		},
		{
			name:    "zone objects",
			payload: `{"unstable_zones": [{"zone_key": "z1", "classes": {"apple": 3, "pear": 2}}, {"location_hash": "z2", "classes": {"kiwi": 1}, "unstable_duration": 2.5}]}`,
			expected: []model.UnstableZone{
				{ZoneKey: "z1", Classes: map[string]int{"apple": 3, "pear": 2}},
				{ZoneKey: "z2", Classes: map[string]int{"kiwi": 1}, Duration: 2.5},
			},
		},
		{
			name:    "keyed objects",
			payload: `{"unstable_zones": {"b": {"apple": 1}, "a": {"classes": {"pear": 4}}}}`,
			expected: []model.UnstableZone{
				{ZoneKey: "a", Classes: map[string]int{"pear": 4}},
				{ZoneKey: "b", Classes: map[string]int{"apple": 1}},
			},
		},
		{
			name:    "both fields merged",
			payload: `{"unstable_zones": [{"zone_key": "z1", "classes": {"apple": 1}}], "unstable_objects": ["z1", "z3"]}`,
			expected: []model.UnstableZone{
				{ZoneKey: "z1", Classes: map[string]int{"apple": 1}},
				{ZoneKey: "z3", Classes: map[string]int{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, issues := Normalize([]byte(tt.payload), t0)
			assert.Empty(t, issues)
			assert.Equal(t, tt.expected, snap.UnstableZones)
		})
	}
}

func TestNormalize_BadZoneElementsSkipped(t *testing.T) {
	snap, issues := Normalize([]byte(`{"unstable_zones": ["ok", 4, {"classes": {"x": 1}}, ""]}`), t0)

	assert.Len(t, issues, 3)
	require.Len(t, snap.UnstableZones, 1)
	assert.Equal(t, "ok", snap.UnstableZones[0].ZoneKey)
}
