package attendance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrNotArray is returned when a snapshot payload is not a JSON array.
var ErrNotArray = errors.New("attendance payload is not a json array")

var validate = validator.New()

// Outcome is the result the scanner station recorded for a scan.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeUnknown marks events written without a status.
	OutcomeUnknown Outcome = "unknown"
)

// ParseOutcome maps the wire status ("BERHASIL", "GAGAL", ...) to an Outcome.
func ParseOutcome(status string) Outcome {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "":
		return OutcomeUnknown
	case "BERHASIL", "SUCCESS":
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}

// Event is one physical scan as read from the snapshot. Events are values;
// nothing in this package mutates one after decoding.
type Event struct {
	CredentialID string `validate:"required"`
	PersonName   string `validate:"required"`
	Department   string
	Cohort       string
	// Timestamp orders events; zero when the wire value was unparseable.
	Timestamp time.Time
	// Date is the calendar day the station attributed the scan to.
	Date string
	// AttendedAt drives the on-time computation; zero when unparseable.
	AttendedAt       time.Time
	Outcome          Outcome
	Attributes       AttributeSet
	ConfidenceScores json.RawMessage
}

// Validate reports whether the event carries the fields reconciliation needs.
func (e Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("missing %s", wireNames[verrs[0].StructField()])
		}
		return err
	}
	return nil
}

// Warning describes an event that was skipped instead of failing the batch.
type Warning struct {
	Index        int
	CredentialID string
	Reason       string
}

func (w Warning) String() string {
	if w.CredentialID == "" {
		return fmt.Sprintf("event #%d skipped: %s", w.Index, w.Reason)
	}
	return fmt.Sprintf("event #%d (%s) skipped: %s", w.Index, w.CredentialID, w.Reason)
}

var wireNames = map[string]string{
	"CredentialID": "card_id",
	"PersonName":   "nama",
}

// wireEvent mirrors one element of presensi.json.
type wireEvent struct {
	CardID           flexString      `json:"card_id"`
	Name             string          `json:"nama"`
	Department       string          `json:"jurusan"`
	Cohort           flexString      `json:"angkatan"`
	Timestamp        string          `json:"timestamp"`
	Date             string          `json:"tanggal"`
	AttendedAt       string          `json:"waktu_presensi"`
	Status           string          `json:"status"`
	Detected         []string        `json:"atribut_terdeteksi"`
	ConfidenceScores json.RawMessage `json:"confidence_scores"`
}

// flexString accepts a JSON string, number or null. Integer literals keep
// their digits verbatim so long card numbers never lose precision; other
// numbers take their shortest decimal form, so 2023.0 decodes as "2023".
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case isIntegerLiteral(data):
		*f = flexString(data)
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*f = flexString(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return nil
}

func isIntegerLiteral(data []byte) bool {
	digits := bytes.TrimPrefix(data, []byte("-"))
	if len(digits) == 0 {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ParseEvents decodes a snapshot payload. Only a payload that is not a JSON
// array is an error; elements that cannot be decoded are skipped and
// reported as warnings. Zone-less times are read in loc (UTC when nil).
func ParseEvents(data []byte, loc *time.Location) ([]Event, []Warning, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if raw == nil {
		return nil, nil, ErrNotArray
	}
	if loc == nil {
		loc = time.UTC
	}

	events := make([]Event, 0, len(raw))
	var warnings []Warning
	for i, item := range raw {
		var w wireEvent
		if err := json.Unmarshal(item, &w); err != nil {
			warnings = append(warnings, Warning{Index: i, Reason: err.Error()})
			continue
		}
		events = append(events, w.toEvent(loc))
	}
	return events, warnings, nil
}

func (w wireEvent) toEvent(loc *time.Location) Event {
	ts, _ := ParseTime(w.Timestamp, loc)
	at, _ := ParseTime(w.AttendedAt, loc)
	return Event{
		CredentialID:     string(w.CardID),
		PersonName:       strings.TrimSpace(w.Name),
		Department:       strings.TrimSpace(w.Department),
		Cohort:           string(w.Cohort),
		Timestamp:        ts,
		Date:             strings.TrimSpace(w.Date),
		AttendedAt:       at,
		Outcome:          ParseOutcome(w.Status),
		Attributes:       NewAttributeSet(w.Detected),
		ConfidenceScores: w.ConfidenceScores,
	}
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseTime reads the timestamp shapes the scanner station writes: RFC 3339,
// ISO-8601 without zone (fractional seconds optional) and "YYYY-MM-DD HH:MM:SS".
// The result is always expressed in loc (UTC when nil), so its wall clock is
// the one the punctuality cutoff applies to.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
