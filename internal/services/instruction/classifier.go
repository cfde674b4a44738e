// Package instruction picks the single guidance message for a reconciliation
// cycle and decides whether it needs to be announced.
package instruction

import (
	"time"

	"selfcheckout/internal/model"
	"selfcheckout/internal/services/tracker"
)

// Rule identifies which rule produced an instruction.
type Rule int

const (
	RuleUnstableZone Rule = iota + 1
	RuleEmpty
	RuleStalled
	RuleBacklog
	RuleAllConfirmed
	RuleScanning
)

var ruleNames = map[Rule]string{
	RuleUnstableZone: "unstable_zone",
	RuleEmpty:        "empty",
	RuleStalled:      "stalled",
	RuleBacklog:      "backlog",
	RuleAllConfirmed: "all_confirmed",
	RuleScanning:     "scanning",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// Settings are the timing knobs of the rule set.
type Settings struct {
	StallTimeout     time.Duration
	BacklogAge       time.Duration
	MinHistoryLength int
}

// DefaultSettings returns the stock thresholds: help after 10s without any
// confirmation, bagging reminder once a confirmation is older than 3s.
func DefaultSettings() Settings {
	return Settings{StallTimeout: 10 * time.Second, BacklogAge: 3 * time.Second}
}

// Decision is the outcome of one classification.
type Decision struct {
	Rule    Rule
	Text    string
	ZoneKey string
}

type Classifier struct {
	settings Settings
}

func NewClassifier(settings Settings) *Classifier {
	return &Classifier{settings: settings}
}

// Classify evaluates the rules in order; the first match wins. Announcing an
// unstable zone marks it shown on the tracker so it is reported once.
func (c *Classifier) Classify(snap *model.Snapshot, tr *tracker.Tracker, openZones []model.UnstableZone, now time.Time) Decision {
	if z, ok := tr.NextUnannounced(openZones); ok {
		tr.MarkShown(z.ZoneKey)
		return Decision{Rule: RuleUnstableZone, Text: unstableMessage(z), ZoneKey: z.ZoneKey}
	}

	if snap.FrameStatus.IsEmpty || !snap.HasCandidates() {
		return Decision{Rule: RuleEmpty, Text: MessagePlaceItems}
	}

	confirmed := snap.ConfirmedCount()
	pending := snap.PendingCount(c.settings.MinHistoryLength)

	if elapsed, ok := tr.ScanElapsed(now); ok && elapsed > c.settings.StallTimeout && confirmed == 0 {
		return Decision{Rule: RuleStalled, Text: MessageStalled}
	}

	if confirmed > 0 && pending > 0 {
		if age, ok := tr.OldestConfirmationAge(snap, now); ok && age > c.settings.BacklogAge {
			return Decision{Rule: RuleBacklog, Text: MessageBacklog}
		}
	}

	if pending == 0 && confirmed > 0 {
		return Decision{Rule: RuleAllConfirmed, Text: MessageAllConfirmed}
	}

	return Decision{Rule: RuleScanning, Text: MessageScanning}
}
