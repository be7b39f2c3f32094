package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"presensi/internal/attendance"
	"presensi/internal/logger"
	"presensi/internal/poller"
	"presensi/internal/queue"
	"presensi/internal/store"
)

// Report is what the notifier announces for one snapshot change.
type Report struct {
	Change poller.Change
	Date   string
	// Stats are today's figures; zero when no persisted snapshot exists.
	Stats      attendance.Counts
	HasDetails bool
}

// Notifier turns snapshot.changed messages into daily summaries.
type Notifier struct {
	kv     store.KV
	policy attendance.Policy
	loc    *time.Location
	log    *logrus.Entry
	now    func() time.Time
}

// New creates a notifier reading the persisted snapshot from kv.
func New(kv store.KV, policy attendance.Policy, loc *time.Location, log *logrus.Logger) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	return &Notifier{
		kv:     kv,
		policy: policy,
		loc:    loc,
		log:    logger.Component(log, "notifier", "worker"),
		now:    time.Now,
	}
}

// Run consumes q until ctx is done. Bad messages are logged and skipped.
func (n *Notifier) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}
	n.log.Info("waiting for snapshot changes")
	for msg := range messages {
		if msg.Type != poller.MessageSnapshotChanged {
			n.log.WithField("type", msg.Type).Debug("ignoring message")
			continue
		}
		if _, err := n.Handle(ctx, msg); err != nil {
			n.log.WithError(err).Warn("handle snapshot change")
		}
	}
	return nil
}

// Handle summarizes one change against today's records.
func (n *Notifier) Handle(ctx context.Context, msg queue.Message) (Report, error) {
	change, err := poller.DecodeChange(msg)
	if err != nil {
		return Report{}, err
	}
	report := Report{Change: change, Date: n.now().In(n.loc).Format(time.DateOnly)}

	raw, err := n.kv.Get(ctx, store.KeySnapshot)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return report, fmt.Errorf("read snapshot: %w", err)
	default:
		events, _, err := attendance.ParseEvents(raw, n.loc)
		if err != nil {
			return report, fmt.Errorf("parse snapshot: %w", err)
		}
		sum := attendance.Summarize(events, attendance.AllCriteria(report.Date), n.policy)
		report.Stats = sum.Stats.Counts
		report.HasDetails = true
	}

	entry := n.log.WithFields(logrus.Fields{
		"fingerprint": change.Fingerprint,
		"events":      change.Count,
		"new":         change.NewRecords,
	})
	if report.HasDetails {
		entry = entry.WithFields(logrus.Fields{
			"date":     report.Date,
			"present":  report.Stats.Total,
			"on_time":  report.Stats.OnTimePercent(),
			"complete": report.Stats.CompletePercent(),
		})
	}
	entry.Infof("%d data baru", change.NewRecords)
	return report, nil
}
