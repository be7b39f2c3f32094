package attendance

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshot = `[
  {
    "card_id": "584190326617",
    "nama": "Budi",
    "jurusan": "Mekatronika",
    "angkatan": "2023",
    "waktu_presensi": "2024-01-10 06:40:12",
    "status": "BERHASIL",
    "atribut_terdeteksi": ["NAME TAG", "PIN CITA CITA", "ID CARD"],
    "atribut_tidak_terdeteksi": [],
    "confidence_scores": {"NAME TAG": 0.91, "ID CARD": 0.77},
    "timestamp": "2024-01-10T06:40:15.123456",
    "tanggal": "2024-01-10"
  },
  {
    "card_id": 1234,
    "nama": "Sari",
    "jurusan": "Animasi",
    "angkatan": 2024,
    "waktu_presensi": "2024-01-10 06:50:00",
    "status": "GAGAL",
    "atribut_terdeteksi": ["NAME TAG"],
    "timestamp": "2024-01-10T06:50:02",
    "tanggal": "2024-01-10"
  },
  {"card_id": {"nested": true}, "nama": "broken"},
  {"nama": "", "angkatan": null, "timestamp": "yesterday"}
]`

func TestParseEvents(t *testing.T) {
	events, warnings, err := ParseEvents([]byte(snapshot), time.UTC)
	require.NoError(t, err)

	require.Len(t, events, 3)
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].Index)

	budi := events[0]
	assert.Equal(t, "584190326617", budi.CredentialID)
	assert.Equal(t, "Budi", budi.PersonName)
	assert.Equal(t, "2023", budi.Cohort)
	assert.Equal(t, OutcomeSuccess, budi.Outcome)
	assert.True(t, budi.Attributes.Complete())
	assert.Equal(t, time.Date(2024, 1, 10, 6, 40, 12, 0, time.UTC), budi.AttendedAt)
	assert.Equal(t, time.Date(2024, 1, 10, 6, 40, 15, 123456000, time.UTC), budi.Timestamp)
	assert.JSONEq(t, `{"NAME TAG": 0.91, "ID CARD": 0.77}`, string(budi.ConfidenceScores))

	sari := events[1]
	assert.Equal(t, "1234", sari.CredentialID)
	assert.Equal(t, "2024", sari.Cohort)
	assert.Equal(t, OutcomeFailure, sari.Outcome)

	blank := events[2]
	assert.True(t, blank.Timestamp.IsZero())
	assert.Equal(t, OutcomeUnknown, blank.Outcome)
	assert.Error(t, blank.Validate())
}

func TestParseEventsRejectsNonArray(t *testing.T) {
	for _, body := range []string{`{"data": []}`, `null`, `"x"`, `not json`} {
		_, _, err := ParseEvents([]byte(body), nil)
		assert.True(t, errors.Is(err, ErrNotArray), body)
	}
}

func TestParseEventsEmptyArray(t *testing.T) {
	events, warnings, err := ParseEvents([]byte(`[]`), nil)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, warnings)
}

func TestParseTimeLayouts(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-10T06:40:15", time.Date(2024, 1, 10, 6, 40, 15, 0, wib)},
		{"2024-01-10T06:40:15.5", time.Date(2024, 1, 10, 6, 40, 15, 500000000, wib)},
		{"2024-01-10 06:40:15", time.Date(2024, 1, 10, 6, 40, 15, 0, wib)},
		{"2024-01-10 06:40", time.Date(2024, 1, 10, 6, 40, 0, 0, wib)},
		{"2024-01-09T23:40:15Z", time.Date(2024, 1, 9, 23, 40, 15, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in, wib)
		require.True(t, ok, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %s", tt.in, got)
	}

	_, ok := ParseTime("", wib)
	assert.False(t, ok)
	_, ok = ParseTime("10/01/2024", wib)
	assert.False(t, ok)
}

func TestParseTimeConvertsZonedToLocation(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)

	got, ok := ParseTime("2024-01-09T23:30:00Z", wib)
	require.True(t, ok)
	assert.Equal(t, wib, got.Location())
	assert.Equal(t, "2024-01-10 06:30", got.Format("2006-01-02 15:04"))

	got, ok = ParseTime("2024-01-10T06:30:00+07:00", nil)
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, 23, got.Hour())
}

func TestParseEventsKeepsLargeNumericCardIDs(t *testing.T) {
	body := `[
		{"card_id": 9007199254740993, "nama": "A", "tanggal": "2024-01-10", "timestamp": "2024-01-10T06:00:00", "status": "BERHASIL"},
		{"card_id": 9007199254740992, "nama": "B", "tanggal": "2024-01-10", "timestamp": "2024-01-10T06:01:00", "status": "BERHASIL"},
		{"card_id": -42, "nama": "C", "angkatan": 2023.0, "tanggal": "2024-01-10", "timestamp": "2024-01-10T06:02:00", "status": "BERHASIL"},
		{"card_id": 1e3, "nama": "D", "angkatan": 2024, "tanggal": "2024-01-10", "timestamp": "2024-01-10T06:03:00", "status": "BERHASIL"}
	]`
	events, warnings, err := ParseEvents([]byte(body), time.UTC)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, events, 4)

	assert.Equal(t, "9007199254740993", events[0].CredentialID)
	assert.Equal(t, "9007199254740992", events[1].CredentialID)
	assert.Equal(t, "-42", events[2].CredentialID)
	assert.Equal(t, "2023", events[2].Cohort)
	assert.Equal(t, "1000", events[3].CredentialID)
	assert.Equal(t, "2024", events[3].Cohort)

	got, _ := Reconcile(events, "2024-01-10")
	assert.Len(t, got, 4)
}

func TestParseOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, ParseOutcome("BERHASIL"))
	assert.Equal(t, OutcomeSuccess, ParseOutcome(" berhasil "))
	assert.Equal(t, OutcomeFailure, ParseOutcome("GAGAL"))
	assert.Equal(t, OutcomeUnknown, ParseOutcome(""))
}

func TestWarningString(t *testing.T) {
	assert.Equal(t, "event #3 (A) skipped: missing nama", Warning{Index: 3, CredentialID: "A", Reason: "missing nama"}.String())
	assert.Equal(t, "event #0 skipped: bad", Warning{Reason: "bad"}.String())
}
