package tickets

import (
	"strings"

	"golang.org/x/text/cases"
)

// BadgeKind classifies a status label for display.
type BadgeKind int

const (
	BadgeOther BadgeKind = iota
	BadgeOpen
	BadgeClosed
)

var fold = cases.Fold()

// Badge classifies a status label. "Open" and "Opened" are open, "Closed"
// is closed, matched without regard to case; the returned text is the
// canonical spelling, or the label itself for anything else.
func Badge(status string) (BadgeKind, string) {
	switch fold.String(strings.TrimSpace(status)) {
	case "open", "opened":
		return BadgeOpen, "Open"
	case "closed":
		return BadgeClosed, "Closed"
	}
	return BadgeOther, status
}
