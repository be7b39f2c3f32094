package attendance

import (
	"encoding/json"
	"slices"
	"time"
)

// AnyDate disables the date restriction in Reconcile and Criteria.
const AnyDate = ""

// Record is the reconciled state of one credential: the latest successful
// scan on the target date.
type Record struct {
	CredentialID     string
	PersonName       string
	Department       string
	Cohort           string
	Date             string
	Timestamp        time.Time
	AttendedAt       time.Time
	Outcome          Outcome
	Attributes       AttributeSet
	ConfidenceScores json.RawMessage
}

func recordFrom(e Event) Record {
	return Record{
		CredentialID:     e.CredentialID,
		PersonName:       e.PersonName,
		Department:       e.Department,
		Cohort:           e.Cohort,
		Date:             e.Date,
		Timestamp:        e.Timestamp,
		AttendedAt:       e.AttendedAt,
		Outcome:          e.Outcome,
		Attributes:       e.Attributes,
		ConfidenceScores: e.ConfidenceScores,
	}
}

// Reconcile keeps, per credential, the event with the greatest Timestamp
// among the events attributed to targetDate. The date match is on the
// event's Date field, not on its parsed timestamp. Ties keep the event that
// came first in the input. Events missing required fields are skipped and
// reported; failed scans are skipped silently. Unparseable timestamps sort
// as oldest. With targetDate == AnyDate every date is eligible.
func Reconcile(events []Event, targetDate string) (map[string]Record, []Warning) {
	var warnings []Warning
	candidates := make([]int, 0, len(events))
	for i, e := range events {
		if err := e.Validate(); err != nil {
			warnings = append(warnings, Warning{Index: i, CredentialID: e.CredentialID, Reason: err.Error()})
			continue
		}
		if e.Outcome == OutcomeFailure {
			continue
		}
		if targetDate != AnyDate && e.Date != targetDate {
			continue
		}
		candidates = append(candidates, i)
	}

	slices.SortStableFunc(candidates, func(a, b int) int {
		return events[b].Timestamp.Compare(events[a].Timestamp)
	})

	out := make(map[string]Record, len(candidates))
	for _, i := range candidates {
		e := events[i]
		if _, seen := out[e.CredentialID]; seen {
			continue
		}
		out[e.CredentialID] = recordFrom(e)
	}
	return out, warnings
}
