package attendance

import "fmt"

// Fingerprint is an opaque token identifying a snapshot for change detection.
type Fingerprint string

// EmptyFingerprint is the fingerprint of a snapshot with no events.
const EmptyFingerprint Fingerprint = "empty"

// FingerprintOf derives the token from the event count and the latest
// parseable timestamp. It is a cheap heuristic, not an equality check: two
// snapshots with the same count and the same latest timestamp get the same
// fingerprint even if other events differ, and the poller treats them as
// unchanged.
func FingerprintOf(events []Event) Fingerprint {
	if len(events) == 0 {
		return EmptyFingerprint
	}
	var latest int64
	found := false
	for _, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		if ms := e.Timestamp.UnixMilli(); !found || ms > latest {
			latest, found = ms, true
		}
	}
	if !found {
		return Fingerprint(fmt.Sprintf("count-%d", len(events)))
	}
	return Fingerprint(fmt.Sprintf("count-%d-time-%d", len(events), latest))
}
