package attendance

import "slices"

// HistoryEntry is one raw scan annotated for the history table.
type HistoryEntry struct {
	Event        Event
	Completeness Completeness
	// Punctuality is only meaningful when the scan did not fail.
	Punctuality Punctuality
}

// Failed reports whether the station rejected the scan.
func (h HistoryEntry) Failed() bool { return h.Event.Outcome == OutcomeFailure }

// History returns every event, newest timestamp first. Failed scans are kept
// and flagged rather than dropped.
func History(events []Event, policy Policy) []HistoryEntry {
	ordered := slices.Clone(events)
	slices.SortStableFunc(ordered, func(a, b Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	out := make([]HistoryEntry, 0, len(ordered))
	for _, e := range ordered {
		entry := HistoryEntry{Event: e, Completeness: e.Attributes.Completeness()}
		if e.Outcome != OutcomeFailure {
			entry.Punctuality = policy.Punctuality(e.AttendedAt)
		}
		out = append(out, entry)
	}
	return out
}
