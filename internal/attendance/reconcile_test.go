package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, ok := ParseTime(s, time.UTC)
	require.True(t, ok, "parse %q", s)
	return ts
}

func event(t *testing.T, id, date, ts string) Event {
	t.Helper()
	return Event{
		CredentialID: id,
		PersonName:   "Siswa " + id,
		Department:   "Mekatronika",
		Cohort:       "2023",
		Date:         date,
		Timestamp:    at(t, ts),
		AttendedAt:   at(t, ts),
		Outcome:      OutcomeSuccess,
	}
}

func TestReconcileKeepsLatestPerCredential(t *testing.T) {
	events := []Event{
		event(t, "A", "2024-01-10", "2024-01-10T06:30:00"),
		event(t, "A", "2024-01-10", "2024-01-10T07:10:00"),
		event(t, "A", "2024-01-10", "2024-01-10T06:50:00"),
		event(t, "B", "2024-01-10", "2024-01-10T06:40:00"),
	}

	got, warnings := Reconcile(events, "2024-01-10")

	assert.Empty(t, warnings)
	require.Len(t, got, 2)
	assert.Equal(t, at(t, "2024-01-10T07:10:00"), got["A"].Timestamp)
	assert.Equal(t, at(t, "2024-01-10T06:40:00"), got["B"].Timestamp)
}

func TestReconcileTieKeepsFirstInInput(t *testing.T) {
	first := event(t, "A", "2024-01-10", "2024-01-10T06:30:00")
	first.PersonName = "first"
	second := event(t, "A", "2024-01-10", "2024-01-10T06:30:00")
	second.PersonName = "second"

	got, _ := Reconcile([]Event{first, second}, "2024-01-10")
	require.Len(t, got, 1)
	assert.Equal(t, "first", got["A"].PersonName)

	got, _ = Reconcile([]Event{second, first}, "2024-01-10")
	assert.Equal(t, "second", got["A"].PersonName)
}

func TestReconcileRestrictsToTargetDate(t *testing.T) {
	events := []Event{
		event(t, "A", "2024-01-09", "2024-01-09T06:30:00"),
		event(t, "A", "2024-01-10", "2024-01-10T06:20:00"),
		event(t, "B", "2024-01-11", "2024-01-11T06:00:00"),
		// Tagged with the previous day although recorded after midnight.
		event(t, "C", "2024-01-09", "2024-01-10T00:05:00"),
	}

	got, _ := Reconcile(events, "2024-01-10")

	require.Len(t, got, 1)
	for _, r := range got {
		assert.Equal(t, "2024-01-10", r.Date)
	}
	assert.Equal(t, at(t, "2024-01-10T06:20:00"), got["A"].Timestamp)
}

func TestReconcileAnyDate(t *testing.T) {
	events := []Event{
		event(t, "A", "2024-01-09", "2024-01-09T06:30:00"),
		event(t, "A", "2024-01-10", "2024-01-10T06:20:00"),
		event(t, "B", "2024-01-11", "2024-01-11T06:00:00"),
	}

	got, _ := Reconcile(events, AnyDate)

	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-10", got["A"].Date)
	assert.Equal(t, "2024-01-11", got["B"].Date)
}

func TestReconcileEmptyInput(t *testing.T) {
	got, warnings := Reconcile(nil, "2024-01-10")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, warnings)
}

func TestReconcileSkipsMalformedWithWarning(t *testing.T) {
	noName := event(t, "A", "2024-01-10", "2024-01-10T06:30:00")
	noName.PersonName = ""
	noCard := event(t, "", "2024-01-10", "2024-01-10T06:30:00")
	ok := event(t, "B", "2024-01-10", "2024-01-10T06:30:00")

	got, warnings := Reconcile([]Event{noName, noCard, ok}, "2024-01-10")

	require.Len(t, got, 1)
	assert.Contains(t, got, "B")
	require.Len(t, warnings, 2)
	assert.Equal(t, 0, warnings[0].Index)
	assert.Equal(t, "A", warnings[0].CredentialID)
	assert.Equal(t, "missing nama", warnings[0].Reason)
	assert.Equal(t, 1, warnings[1].Index)
	assert.Equal(t, "missing card_id", warnings[1].Reason)
}

func TestReconcileExcludesFailedScans(t *testing.T) {
	ok := event(t, "A", "2024-01-10", "2024-01-10T06:30:00")
	failed := event(t, "A", "2024-01-10", "2024-01-10T06:40:00")
	failed.Outcome = OutcomeFailure
	onlyFailed := event(t, "B", "2024-01-10", "2024-01-10T06:40:00")
	onlyFailed.Outcome = OutcomeFailure
	noStatus := event(t, "C", "2024-01-10", "2024-01-10T06:41:00")
	noStatus.Outcome = OutcomeUnknown

	got, warnings := Reconcile([]Event{ok, failed, onlyFailed, noStatus}, "2024-01-10")

	assert.Empty(t, warnings)
	require.Len(t, got, 2)
	assert.Equal(t, at(t, "2024-01-10T06:30:00"), got["A"].Timestamp)
	assert.Contains(t, got, "C")
}

func TestReconcileUnparseableTimestampIsOldest(t *testing.T) {
	broken := event(t, "A", "2024-01-10", "2024-01-10T06:30:00")
	broken.Timestamp = time.Time{}
	broken.PersonName = "broken"
	valid := event(t, "A", "2024-01-10", "2024-01-10T05:00:00")

	got, _ := Reconcile([]Event{broken, valid}, "2024-01-10")
	assert.Equal(t, "Siswa A", got["A"].PersonName)

	got, _ = Reconcile([]Event{broken}, "2024-01-10")
	assert.Equal(t, "broken", got["A"].PersonName)
}

func TestReconcileCarriesDisplayFields(t *testing.T) {
	e := event(t, "A", "2024-01-10", "2024-01-10T06:30:00")
	e.Attributes = NewAttributeSet([]string{"NAME TAG"})
	e.ConfidenceScores = []byte(`{"NAME TAG":0.91}`)

	got, _ := Reconcile([]Event{e}, "2024-01-10")

	r := got["A"]
	assert.Equal(t, "A", r.CredentialID)
	assert.Equal(t, "Mekatronika", r.Department)
	assert.Equal(t, "2023", r.Cohort)
	assert.Equal(t, OutcomeSuccess, r.Outcome)
	assert.True(t, r.Attributes.Has(NameTag))
	assert.JSONEq(t, `{"NAME TAG":0.91}`, string(r.ConfidenceScores))
}
