package instruction

import (
	"fmt"
	"sort"
	"strings"

	"selfcheckout/internal/model"
)

const (
	MessagePlaceItems   = "Please place items in the scanning area."
	MessageStalled      = "This is taking longer than usual. Please reposition your items or request assistance."
	MessageBacklog      = "Please put the confirmed items in the bagging area first and reposition the yellow-boxed items."
	MessageAllConfirmed = "All items confirmed. You can add more items or proceed to checkout."
	MessageScanning     = "Scanning in progress..."
	MessageUnstable     = "We can't identify one of your items. Please reposition it or tap Ignore."
)

// unstableMessage names the competing candidates when the backend reported
// them, most frequent first.
func unstableMessage(z model.UnstableZone) string {
	type candidate struct {
		name  string
		count int
	}
	candidates := make([]candidate, 0, len(z.Classes))
	for name, count := range z.Classes {
		candidates = append(candidates, candidate{name, count})
	}
	if len(candidates) < 2 {
		return MessageUnstable
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].name < candidates[j].name
	})

	names := make([]string, 0, 2)
	for _, c := range candidates[:2] {
		names = append(names, c.name)
	}
	return fmt.Sprintf("We can't tell if this item is %s. Please reposition it or tap Ignore.", strings.Join(names, " or "))
}
