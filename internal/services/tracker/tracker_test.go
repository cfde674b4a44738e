package tracker

import (
	"testing"
	"time"

	"selfcheckout/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func snapshot(objects ...model.TrackedObject) *model.Snapshot {
	if objects == nil {
		objects = []model.TrackedObject{}
	}
	return &model.Snapshot{TrackedObjects: objects}
}

func confirmed(id int, class string) model.TrackedObject {
	return model.TrackedObject{ID: id, Class: class, Status: model.StatusConfirmed, IsValid: true, HistoryLength: 1}
}

func undetermined(id int, class string) model.TrackedObject {
	return model.TrackedObject{ID: id, Class: class, Status: model.StatusUndetermined, IsValid: true, HistoryLength: 1}
}

func TestUpdate_ScanStartSetAndCleared(t *testing.T) {
	tr := New()

	tr.Update(snapshot(undetermined(1, "apple")), t0)
	start, ok := tr.ScanStart()
	require.True(t, ok)
	assert.Equal(t, t0, start)

	tr.Update(snapshot(undetermined(1, "apple")), t0.Add(2*time.Second))
	start, _ = tr.ScanStart()
	assert.Equal(t, t0, start, "scan start must not move while items stay in the area")

	tr.Update(snapshot(), t0.Add(3*time.Second))
	_, ok = tr.ScanStart()
	assert.False(t, ok)

	tr.Update(snapshot(), t0.Add(4*time.Second))
	_, ok = tr.ScanStart()
	assert.False(t, ok, "clearing is idempotent")

	tr.Update(snapshot(confirmed(2, "pear")), t0.Add(5*time.Second))
	start, ok = tr.ScanStart()
	require.True(t, ok)
	assert.Equal(t, t0.Add(5*time.Second), start)
}

func TestScanElapsed_NeverNegative(t *testing.T) {
	tr := New()
	tr.Update(snapshot(undetermined(1, "apple")), t0)

	elapsed, ok := tr.ScanElapsed(t0.Add(-time.Second))
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), elapsed)

	elapsed, _ = tr.ScanElapsed(t0.Add(11 * time.Second))
	assert.Equal(t, 11*time.Second, elapsed)
}

func TestUpdate_ConfirmationTimers(t *testing.T) {
	tr := New()

	tr.Update(snapshot(confirmed(1, "apple"), undetermined(2, "pear")), t0)
	tr.Update(snapshot(confirmed(1, "apple"), confirmed(2, "pear")), t0.Add(2*time.Second))

	last, ok := tr.LastConfirmed(1)
	require.True(t, ok)
	assert.Equal(t, t0.Add(2*time.Second), last)

	snap := snapshot(confirmed(1, "apple"), confirmed(2, "pear"))
	age, ok := tr.OldestConfirmationAge(snap, t0.Add(4*time.Second))
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, age)
}

func TestUpdate_ConfirmationRestartsWhenObjectLeaves(t *testing.T) {
	tr := New()

	tr.Update(snapshot(confirmed(1, "apple")), t0)
	tr.Update(snapshot(undetermined(3, "kiwi")), t0.Add(time.Second))
	tr.Update(snapshot(confirmed(1, "apple")), t0.Add(5*time.Second))

	age, ok := tr.OldestConfirmationAge(snapshot(confirmed(1, "apple")), t0.Add(6*time.Second))
	require.True(t, ok)
	assert.Equal(t, time.Second, age)
}

func TestOldestConfirmationAge_NoConfirmed(t *testing.T) {
	tr := New()
	tr.Update(snapshot(undetermined(1, "apple")), t0)

	_, ok := tr.OldestConfirmationAge(snapshot(undetermined(1, "apple")), t0.Add(time.Minute))
	assert.False(t, ok)
}

func TestZones_AnnouncementFlags(t *testing.T) {
	tr := New()
	zones := []model.UnstableZone{{ZoneKey: "z1"}, {ZoneKey: "z2"}}

	z, ok := tr.NextUnannounced(zones)
	require.True(t, ok)
	assert.Equal(t, "z1", z.ZoneKey)

	tr.MarkShown("z1")
	z, ok = tr.NextUnannounced(zones)
	require.True(t, ok)
	assert.Equal(t, "z2", z.ZoneKey)

	tr.MarkShown("z2")
	_, ok = tr.NextUnannounced(zones)
	assert.False(t, ok)

	tr.ForgetZone("z1")
	z, ok = tr.NextUnannounced(zones)
	require.True(t, ok)
	assert.Equal(t, "z1", z.ZoneKey)
}

func TestUpdate_ZoneDurations(t *testing.T) {
	tr := New()
	snap := snapshot(model.TrackedObject{ID: 4, Class: "apple", LocationHash: "z1", UnstableDuration: 4.5})
	snap.UnstableZones = []model.UnstableZone{{ZoneKey: "z1", Duration: 2}, {ZoneKey: "z2", Duration: 1}}

	tr.Update(snap, t0)

	assert.Equal(t, 4.5, tr.ZoneDuration("z1"))
	assert.Equal(t, 1.0, tr.ZoneDuration("z2"))

	tr.Update(snapshot(), t0.Add(time.Second))
	assert.Equal(t, 0.0, tr.ZoneDuration("z1"))
}

func TestReset(t *testing.T) {
	tr := New()
	tr.Update(snapshot(confirmed(1, "apple")), t0)
	tr.MarkShown("z1")

	tr.Reset()

	_, ok := tr.ScanStart()
	assert.False(t, ok)
	_, ok = tr.LastConfirmed(1)
	assert.False(t, ok)
	assert.False(t, tr.Shown("z1"))
}

func TestUpdate_ConfirmationTimersPruned(t *testing.T) {
	tr := New()

	for id := 1; id <= 1000; id++ {
		now := t0.Add(time.Duration(id) * time.Second)
		tr.Update(snapshot(confirmed(id, "apple")), now)
		tr.Update(snapshot(), now.Add(time.Millisecond))
	}
	assert.Empty(t, tr.lastConfirmed)
	assert.Empty(t, tr.confirmedSince)

	tr.Update(snapshot(confirmed(1, "apple"), confirmed(2, "pear")), t0)
	tr.Update(snapshot(confirmed(2, "pear"), undetermined(3, "kiwi")), t0.Add(time.Second))

	_, ok := tr.LastConfirmed(1)
	assert.False(t, ok, "object 1 left the frame")
	_, ok = tr.LastConfirmed(2)
	assert.True(t, ok)
	assert.Len(t, tr.lastConfirmed, 1)
}
