package instruction

import (
	"testing"
	"time"

	"selfcheckout/internal/model"
	"selfcheckout/internal/services/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func obj(id int, class, status string) model.TrackedObject {
	return model.TrackedObject{ID: id, Class: class, Status: status, IsValid: true, HistoryLength: 1}
}

func snap(objects ...model.TrackedObject) *model.Snapshot {
	s := &model.Snapshot{TrackedObjects: objects}
	if len(objects) == 0 {
		s.TrackedObjects = []model.TrackedObject{}
		s.FrameStatus = model.FrameStatus{IsEmpty: true, EmptyConfidence: 1}
	}
	return s
}

// run feeds the snapshot through the tracker first, as the manager does.
func run(c *Classifier, tr *tracker.Tracker, s *model.Snapshot, zones []model.UnstableZone, now time.Time) Decision {
	tr.Update(s, now)
	return c.Classify(s, tr, zones, now)
}

func TestClassify_EmptyFrame(t *testing.T) {
	c := NewClassifier(DefaultSettings())

	d := run(c, tracker.New(), snap(), nil, t0)

	assert.Equal(t, RuleEmpty, d.Rule)
	assert.Equal(t, MessagePlaceItems, d.Text)
}

func TestClassify_OnlyInvalidObjectsCountAsEmpty(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	noise := obj(1, "apple", model.StatusUndetermined)
	noise.IsValid = false

	d := run(c, tracker.New(), snap(noise), nil, t0)

	assert.Equal(t, RuleEmpty, d.Rule)
}

func TestClassify_IsEmptyFlagWins(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	s := snap(obj(1, "apple", model.StatusConfirmed))
	s.FrameStatus = model.FrameStatus{IsEmpty: true, EmptyConfidence: 0.9}

	d := run(c, tracker.New(), s, nil, t0)

	assert.Equal(t, RuleEmpty, d.Rule)
}

func TestClassify_UnstableZoneAnnouncedOnce(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	tr := tracker.New()
	zones := []model.UnstableZone{{ZoneKey: "z1", Classes: map[string]int{"apple": 3, "pear": 5, "kiwi": 1}}}

	d := run(c, tr, snap(), zones, t0)
	require.Equal(t, RuleUnstableZone, d.Rule)
	assert.Equal(t, "z1", d.ZoneKey)
	assert.Equal(t, "We can't tell if this item is pear or apple. Please reposition it or tap Ignore.", d.Text)

	d = run(c, tr, snap(), zones, t0.Add(time.Second))
	assert.Equal(t, RuleEmpty, d.Rule)
}

func TestClassify_UnstableZoneGenericText(t *testing.T) {
	c := NewClassifier(DefaultSettings())

	d := run(c, tracker.New(), snap(), []model.UnstableZone{{ZoneKey: "h1", Classes: map[string]int{}}}, t0)

	assert.Equal(t, MessageUnstable, d.Text)
}

func TestClassify_Stalled(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	tr := tracker.New()
	pending := snap(obj(1, "apple", model.StatusUndetermined))

	d := run(c, tr, pending, nil, t0)
	assert.Equal(t, RuleScanning, d.Rule)

	d = run(c, tr, pending, nil, t0.Add(10*time.Second))
	assert.Equal(t, RuleScanning, d.Rule, "exactly the timeout is not yet stalled")

	d = run(c, tr, pending, nil, t0.Add(10*time.Second+time.Millisecond))
	assert.Equal(t, RuleStalled, d.Rule)
	assert.Equal(t, MessageStalled, d.Text)
}

func TestClassify_StalledResetsAfterEmptyFrame(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	tr := tracker.New()
	pending := snap(obj(1, "apple", model.StatusUndetermined))

	run(c, tr, pending, nil, t0)
	run(c, tr, snap(), nil, t0.Add(9*time.Second))
	d := run(c, tr, pending, nil, t0.Add(12*time.Second))

	assert.Equal(t, RuleScanning, d.Rule)
}

func TestClassify_Backlog(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	tr := tracker.New()
	mixed := snap(obj(1, "apple", model.StatusConfirmed), obj(2, "pear", model.StatusUndetermined))

	d := run(c, tr, mixed, nil, t0)
	assert.Equal(t, RuleScanning, d.Rule)

	d = run(c, tr, mixed, nil, t0.Add(3*time.Second))
	assert.Equal(t, RuleScanning, d.Rule)

	d = run(c, tr, mixed, nil, t0.Add(3*time.Second+time.Millisecond))
	assert.Equal(t, RuleBacklog, d.Rule)
	assert.Equal(t, MessageBacklog, d.Text)
}

func TestClassify_AllConfirmed(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	invalid := obj(2, "pear", model.StatusUndetermined)
	invalid.IsValid = false

	d := run(c, tracker.New(), snap(obj(1, "apple", model.StatusConfirmed), invalid), nil, t0)

	assert.Equal(t, RuleAllConfirmed, d.Rule)
	assert.Equal(t, MessageAllConfirmed, d.Text)
}

func TestClassify_MinHistoryGate(t *testing.T) {
	c := NewClassifier(Settings{StallTimeout: 10 * time.Second, BacklogAge: 3 * time.Second, MinHistoryLength: 5})
	fresh := obj(2, "pear", model.StatusUndetermined)
	fresh.HistoryLength = 2

	d := run(c, tracker.New(), snap(obj(1, "apple", model.StatusConfirmed), fresh), nil, t0)

	assert.Equal(t, RuleAllConfirmed, d.Rule)
}

func TestClassify_InstabilityOutranksOthers(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	tr := tracker.New()
	zones := []model.UnstableZone{{ZoneKey: "z1"}}

	d := run(c, tr, snap(obj(1, "apple", model.StatusConfirmed)), zones, t0)
	assert.Equal(t, RuleUnstableZone, d.Rule, "instability outranks everything")

	d = run(c, tr, snap(obj(1, "apple", model.StatusConfirmed)), zones, t0.Add(time.Second))
	assert.Equal(t, RuleAllConfirmed, d.Rule)
}

func TestAnnouncer_DeDuplicates(t *testing.T) {
	var spoken []string
	a := NewAnnouncer(SpeakerFunc(func(text string) { spoken = append(spoken, text) }))

	assert.True(t, a.Announce(MessagePlaceItems))
	assert.False(t, a.Announce(MessagePlaceItems))
	assert.True(t, a.Announce(MessageScanning))
	assert.True(t, a.Announce(MessagePlaceItems))

	assert.Equal(t, []string{MessagePlaceItems, MessageScanning, MessagePlaceItems}, spoken)
	assert.Equal(t, MessagePlaceItems, a.Last())
}

func TestClassify_IdempotentForSameState(t *testing.T) {
	c := NewClassifier(DefaultSettings())
	tr := tracker.New()
	count := 0
	a := NewAnnouncer(SpeakerFunc(func(string) { count++ }))
	s := snap(obj(1, "apple", model.StatusConfirmed))

	first := run(c, tr, s, nil, t0)
	a.Announce(first.Text)
	second := run(c, tr, s, nil, t0.Add(100*time.Millisecond))
	a.Announce(second.Text)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, count)
}
