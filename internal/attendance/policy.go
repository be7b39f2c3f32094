package attendance

import (
	"fmt"
	"time"
)

// DefaultCutoff is the latest time of day that still counts as on time.
const DefaultCutoff = 6*time.Hour + 45*time.Minute

// Policy holds the punctuality rule. The zero value uses DefaultCutoff.
type Policy struct {
	Cutoff time.Duration
}

// DefaultPolicy returns the 06:45:00 policy.
func DefaultPolicy() Policy { return Policy{Cutoff: DefaultCutoff} }

func (p Policy) cutoff() time.Duration {
	if p.Cutoff <= 0 {
		return DefaultCutoff
	}
	return p.Cutoff
}

// ParseCutoff reads a time of day in "HH:MM" or "HH:MM:SS" form.
func ParseCutoff(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid cutoff %q, want HH:MM[:SS]", s)
}

// Punctuality is the on-time verdict for one attendance time.
type Punctuality struct {
	// Known is false when the attendance time could not be parsed; such
	// records count as late.
	Known  bool
	OnTime bool
	// OffsetMinutes is whole minutes from the cutoff: positive when late,
	// zero or negative when on time.
	OffsetMinutes int
}

// Punctuality compares the time of day of at against the cutoff on the same
// calendar day. The boundary itself is on time.
func (p Policy) Punctuality(at time.Time) Punctuality {
	if at.IsZero() {
		return Punctuality{}
	}
	y, m, d := at.Date()
	target := time.Date(y, m, d, 0, 0, 0, 0, at.Location()).Add(p.cutoff())
	diff := at.Sub(target)
	if diff <= 0 {
		return Punctuality{Known: true, OnTime: true, OffsetMinutes: -int(-diff / time.Minute)}
	}
	return Punctuality{Known: true, OffsetMinutes: int(diff / time.Minute)}
}

// OnTime is shorthand for Punctuality(at).OnTime.
func (p Policy) OnTime(at time.Time) bool { return p.Punctuality(at).OnTime }

// Percent is n/total as a whole percentage, rounding halves up. A zero
// total yields zero.
func Percent(n, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*n + total) / (2 * total)
}
