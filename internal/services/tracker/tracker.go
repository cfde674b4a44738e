// Package tracker keeps the session timers derived from successive snapshots.
package tracker

import (
	"time"

	"selfcheckout/internal/model"
)

// Tracker owns the per-object and per-session timers. It is not safe for
// concurrent use; the manager serializes access.
type Tracker struct {
	scanStart      time.Time
	lastConfirmed  map[int]time.Time
	confirmedSince map[int]time.Time
	zoneDurations  map[string]float64
	zoneShown      map[string]bool
}

func New() *Tracker {
	t := &Tracker{}
	t.Reset()
	return t
}

// Reset clears every timer and flag.
func (t *Tracker) Reset() {
	t.scanStart = time.Time{}
	t.lastConfirmed = make(map[int]time.Time)
	t.confirmedSince = make(map[int]time.Time)
	t.zoneDurations = make(map[string]float64)
	t.zoneShown = make(map[string]bool)
}

// Update folds one normalized snapshot into the timers.
func (t *Tracker) Update(snap *model.Snapshot, now time.Time) {
	if len(snap.TrackedObjects) == 0 {
		t.clearScan()
	} else if t.scanStart.IsZero() {
		t.scanStart = now
	}

	inFrame := make(map[int]bool, len(snap.TrackedObjects))
	for _, obj := range snap.TrackedObjects {
		if !obj.Confirmed() {
			continue
		}
		inFrame[obj.ID] = true
		t.lastConfirmed[obj.ID] = now
		if _, ok := t.confirmedSince[obj.ID]; !ok {
			t.confirmedSince[obj.ID] = now
		}
	}
	for id := range t.confirmedSince {
		if !inFrame[id] {
			delete(t.confirmedSince, id)
		}
	}
	for id := range t.lastConfirmed {
		if !inFrame[id] {
			delete(t.lastConfirmed, id)
		}
	}

	durations := make(map[string]float64, len(snap.UnstableZones))
	for _, z := range snap.UnstableZones {
		durations[z.ZoneKey] = z.Duration
	}
	for _, obj := range snap.TrackedObjects {
		if obj.LocationHash == "" || obj.UnstableDuration <= 0 {
			continue
		}
		if _, ok := durations[obj.LocationHash]; ok && obj.UnstableDuration > durations[obj.LocationHash] {
			durations[obj.LocationHash] = obj.UnstableDuration
		}
	}
	t.zoneDurations = durations
}

// clearScan is idempotent.
func (t *Tracker) clearScan() {
	t.scanStart = time.Time{}
	if len(t.confirmedSince) > 0 {
		t.confirmedSince = make(map[int]time.Time)
	}
	if len(t.lastConfirmed) > 0 {
		t.lastConfirmed = make(map[int]time.Time)
	}
}

// ScanStart returns the start of the current scan, if one is running.
func (t *Tracker) ScanStart() (time.Time, bool) {
	return t.scanStart, !t.scanStart.IsZero()
}

// ScanElapsed returns how long the current scan has been running.
func (t *Tracker) ScanElapsed(now time.Time) (time.Duration, bool) {
	if t.scanStart.IsZero() {
		return 0, false
	}
	return nonNegative(now.Sub(t.scanStart)), true
}

// LastConfirmed returns when the object was last observed confirmed.
func (t *Tracker) LastConfirmed(id int) (time.Time, bool) {
	ts, ok := t.lastConfirmed[id]
	return ts, ok
}

// OldestConfirmationAge returns the age of the earliest confirmation among the
// confirmed objects of the snapshot. Age counts from when each object became
// confirmed in its current continuous stretch in frame.
func (t *Tracker) OldestConfirmationAge(snap *model.Snapshot, now time.Time) (time.Duration, bool) {
	var oldest time.Time
	for _, obj := range snap.TrackedObjects {
		if !obj.Confirmed() {
			continue
		}
		since, ok := t.confirmedSince[obj.ID]
		if !ok {
			continue
		}
		if oldest.IsZero() || since.Before(oldest) {
			oldest = since
		}
	}
	if oldest.IsZero() {
		return 0, false
	}
	return nonNegative(now.Sub(oldest)), true
}

// ZoneDuration returns how long (seconds) the zone has been flagged unstable.
func (t *Tracker) ZoneDuration(zoneKey string) float64 {
	return t.zoneDurations[zoneKey]
}

// NextUnannounced returns the first zone that has not been announced yet.
func (t *Tracker) NextUnannounced(zones []model.UnstableZone) (model.UnstableZone, bool) {
	for _, z := range zones {
		if !t.zoneShown[z.ZoneKey] {
			return z, true
		}
	}
	return model.UnstableZone{}, false
}

// MarkShown records that the zone's instability message was announced.
func (t *Tracker) MarkShown(zoneKey string) {
	t.zoneShown[zoneKey] = true
}

// Shown reports whether the zone was already announced.
func (t *Tracker) Shown(zoneKey string) bool {
	return t.zoneShown[zoneKey]
}

// ForgetZone drops the announcement flag once the zone is resolved, so a new
// instability at the same location is announced again.
func (t *Tracker) ForgetZone(zoneKey string) {
	delete(t.zoneShown, zoneKey)
	delete(t.zoneDurations, zoneKey)
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
