package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	base := []Event{
		event(t, "A", "2024-01-10", "2024-01-10T06:30:00"),
		event(t, "B", "2024-01-10", "2024-01-10T06:50:00"),
	}
	fp := FingerprintOf(base)

	t.Run("stable", func(t *testing.T) {
		assert.Equal(t, fp, FingerprintOf(base))
		assert.Equal(t, Fingerprint("count-2-time-1704869400000"), fp)
	})

	t.Run("count change", func(t *testing.T) {
		more := append(append([]Event{}, base...), event(t, "C", "2024-01-10", "2024-01-10T06:10:00"))
		assert.NotEqual(t, fp, FingerprintOf(more))
	})

	t.Run("latest timestamp change", func(t *testing.T) {
		later := []Event{base[0], event(t, "B", "2024-01-10", "2024-01-10T06:51:00")}
		assert.NotEqual(t, fp, FingerprintOf(later))
	})

	t.Run("same count and latest timestamp is indistinguishable", func(t *testing.T) {
		replaced := []Event{event(t, "Z", "2024-01-10", "2024-01-10T06:50:00"), base[0]}
		assert.Equal(t, fp, FingerprintOf(replaced))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, EmptyFingerprint, FingerprintOf(nil))
	})

	t.Run("no parseable timestamps", func(t *testing.T) {
		assert.Equal(t, Fingerprint("count-2"), FingerprintOf([]Event{{}, {Timestamp: time.Time{}}}))
	})
}
