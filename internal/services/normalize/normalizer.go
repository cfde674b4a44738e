// Package normalize turns raw detection_results payloads into canonical
// snapshots. It never fails: anything missing or malformed is defaulted to
// "nothing observed" and reported back as an advisory issue.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"selfcheckout/internal/dto"
	"selfcheckout/internal/model"
)

// Empty returns the canonical snapshot for a frame where nothing was observed.
func Empty(receivedAt time.Time) *model.Snapshot {
	return &model.Snapshot{
		TrackedObjects:      []model.TrackedObject{},
		ConfirmedObjects:    map[string]model.SeedLine{},
		UndeterminedObjects: []model.TrackedObject{},
		FrameStatus:         model.FrameStatus{IsEmpty: true, EmptyConfidence: 1.0},
		UnstableZones:       []model.UnstableZone{},
		ReceivedAt:          receivedAt,
	}
}

// Normalize decodes one snapshot payload field by field. Issues describe the
// fields that had to be defaulted.
func Normalize(data []byte, receivedAt time.Time) (*model.Snapshot, []error) {
	snap := Empty(receivedAt)
	var issues []error

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		if err == nil {
			err = fmt.Errorf("payload is null")
		}
		return snap, []error{fmt.Errorf("snapshot: %w", err)}
	}

	if raw, ok := present(fields, "frame"); ok {
		if err := json.Unmarshal(raw, &snap.Frame); err != nil {
			snap.Frame = nil
			issues = append(issues, fmt.Errorf("frame: %w", err))
		}
	}

	if raw, ok := present(fields, "tracked_objects"); ok {
		objects, errs := decodeObjects(raw)
		snap.TrackedObjects = objects
		issues = append(issues, prefix("tracked_objects", errs)...)
	}

	if raw, ok := present(fields, "undetermined_objects"); ok {
		objects, errs := decodeObjects(raw)
		snap.UndeterminedObjects = objects
		issues = append(issues, prefix("undetermined_objects", errs)...)
	}

	if raw, ok := present(fields, "confirmed_objects"); ok {
		seeds := map[string]model.SeedLine{}
		if err := json.Unmarshal(raw, &seeds); err != nil {
			issues = append(issues, fmt.Errorf("confirmed_objects: %w", err))
		} else {
			snap.ConfirmedObjects = seeds
		}
	}

	status, err := decodeFrameStatus(fields, len(snap.TrackedObjects))
	if err != nil {
		issues = append(issues, fmt.Errorf("frame_status: %w", err))
	}
	snap.FrameStatus = status

	zones := newZoneSet()
	for _, key := range []string{"unstable_zones", "unstable_objects"} {
		raw, ok := present(fields, key)
		if !ok {
			continue
		}
		decoded, errs := decodeZones(raw)
		issues = append(issues, prefix(key, errs)...)
		for _, z := range decoded {
			zones.add(z)
		}
	}
	snap.UnstableZones = zones.list()

	return snap, issues
}

// present returns the raw field when it exists and is not JSON null.
func present(fields map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := fields[key]
	if !ok {
		return nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false
	}
	return trimmed, true
}

func prefix(field string, errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		out = append(out, fmt.Errorf("%s: %w", field, err))
	}
	return out
}

// decodeObjects decodes a list of tracked objects, skipping bad elements.
func decodeObjects(raw json.RawMessage) ([]model.TrackedObject, []error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return []model.TrackedObject{}, []error{err}
	}

	objects := make([]model.TrackedObject, 0, len(elements))
	var errs []error
	for i, el := range elements {
		var ro dto.RawTrackedObject
		if err := json.Unmarshal(el, &ro); err != nil {
			errs = append(errs, fmt.Errorf("element %d: %w", i, err))
			continue
		}
		objects = append(objects, canonicalObject(ro))
	}
	return objects, errs
}

func canonicalObject(ro dto.RawTrackedObject) model.TrackedObject {
	obj := model.TrackedObject{
		ID:            ro.ID,
		Class:         strings.TrimSpace(ro.Class),
		Confidence:    clamp(ro.Confidence, 0, 1),
		Status:        canonicalStatus(ro.Status),
		Progress:      clamp(ro.Progress, 0, 100),
		IsValid:       true,
		HistoryLength: 1,
		LocationHash:  ro.LocationHash,
	}
	if len(ro.BBox) == 4 {
		copy(obj.BBox[:], ro.BBox)
	}
	if ro.Stability != nil {
		obj.Stability = clamp(*ro.Stability, 0, 1)
	}
	if ro.IsValid != nil {
		obj.IsValid = *ro.IsValid
	}
	if ro.HistoryLength != nil && *ro.HistoryLength >= 0 {
		obj.HistoryLength = *ro.HistoryLength
	}
	if ro.UnstableDuration != nil && *ro.UnstableDuration > 0 {
		obj.UnstableDuration = *ro.UnstableDuration
	}
	if obj.Status == model.StatusConfirmed {
		obj.Progress = 100
	}
	return obj
}

func canonicalStatus(s string) string {
	if strings.EqualFold(strings.TrimSpace(s), model.StatusConfirmed) {
		return model.StatusConfirmed
	}
	return model.StatusUndetermined
}

// decodeFrameStatus defaults an absent frame_status to "empty" only when no
// objects were tracked; older backends omit it while reporting objects.
func decodeFrameStatus(fields map[string]json.RawMessage, trackedCount int) (model.FrameStatus, error) {
	status := model.FrameStatus{IsEmpty: true, EmptyConfidence: 1.0}
	if trackedCount > 0 {
		status = model.FrameStatus{IsEmpty: false, EmptyConfidence: 0}
	}

	raw, ok := present(fields, "frame_status")
	if !ok {
		return status, nil
	}

	var rs dto.RawFrameStatus
	if err := json.Unmarshal(raw, &rs); err != nil {
		return status, err
	}
	if rs.IsEmpty != nil {
		status.IsEmpty = *rs.IsEmpty
		if rs.EmptyConfidence == nil {
			status.EmptyConfidence = 1.0
			if !status.IsEmpty {
				status.EmptyConfidence = 0
			}
		}
	}
	if rs.EmptyConfidence != nil {
		status.EmptyConfidence = clamp(*rs.EmptyConfidence, 0, 1)
	}
	return status, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
