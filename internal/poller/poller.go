package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"presensi/internal/attendance"
	"presensi/internal/logger"
	"presensi/internal/metrics"
	"presensi/internal/queue"
	"presensi/internal/store"
)

// ErrNoSnapshot is returned when neither the feed nor the store can provide
// a snapshot.
var ErrNoSnapshot = errors.New("no attendance snapshot available")

// MessageSnapshotChanged is the queue message type published on change.
const MessageSnapshotChanged = "snapshot.changed"

const publishTimeout = 2 * time.Second

// Source tells whether a snapshot came from the feed just now or from a
// previously kept copy.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
)

// Fetcher returns the raw snapshot document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Snapshot is an immutable view of one fetched document.
type Snapshot struct {
	Events      []attendance.Event
	Warnings    []attendance.Warning
	Fingerprint attendance.Fingerprint
	// FetchedAt is zero for a snapshot restored from the store.
	FetchedAt  time.Time
	Source     Source
	FetchError string
}

// Change describes a snapshot transition.
type Change struct {
	Fingerprint attendance.Fingerprint `json:"fingerprint"`
	Count       int                    `json:"count"`
	NewRecords  int                    `json:"new_records"`
	FetchedAt   time.Time              `json:"fetched_at"`
}

// Config wires a Poller. Fetcher is required; everything else is optional.
type Config struct {
	Fetcher  Fetcher
	Store    store.KV
	Queue    queue.Queue
	Metrics  *metrics.Metrics
	Logger   *logrus.Logger
	Location *time.Location
	Interval time.Duration
	// OnChange is called synchronously after every applied change.
	OnChange func(Change)
	Now      func() time.Time
}

// Poller owns the last known snapshot.
type Poller struct {
	cfg   Config
	log   *logrus.Entry
	group singleflight.Group
	seq   atomic.Uint64

	mu      sync.RWMutex
	current *Snapshot
	applied uint64
}

// New creates a poller. A zero Interval defaults to 30 seconds.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(nil)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Poller{
		cfg: cfg,
		log: logger.Component(cfg.Logger, "poller", "service"),
	}
}

// Snapshot returns the current snapshot.
func (p *Poller) Snapshot() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return Snapshot{}, false
	}
	return *p.current, true
}

// Load forces a refresh. On fetch failure it falls back to the kept or
// persisted snapshot and only fails when there is none.
func (p *Poller) Load(ctx context.Context) (Snapshot, error) {
	v, err, _ := p.group.Do("load", func() (any, error) {
		return p.load(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Check fetches and applies the document only when its fingerprint differs
// from the current one. It reports whether the snapshot changed.
func (p *Poller) Check(ctx context.Context) (bool, error) {
	v, err, _ := p.group.Do("check", func() (any, error) {
		return p.check(ctx)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Run loads once and then checks every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	if _, err := p.Load(ctx); err != nil {
		p.log.WithError(err).Warn("initial snapshot load failed")
	}
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Check(ctx); err != nil && ctx.Err() == nil {
				p.log.WithError(err).Warn("snapshot check failed")
			}
		}
	}
}

func (p *Poller) load(ctx context.Context) (Snapshot, error) {
	seq := p.seq.Add(1)
	snap, raw, err := p.fetch(ctx)
	if err != nil {
		p.cfg.Metrics.Polls.WithLabelValues(metrics.ResultFailed).Inc()
		return p.fallback(ctx, seq, err)
	}
	change, applied := p.apply(seq, snap, true)
	if applied {
		p.persist(ctx, raw)
	}
	if change != nil {
		p.notify(ctx, *change)
	} else if applied {
		p.cfg.Metrics.Polls.WithLabelValues(metrics.ResultUnchanged).Inc()
	}
	cur, _ := p.Snapshot()
	return cur, nil
}

func (p *Poller) check(ctx context.Context) (bool, error) {
	seq := p.seq.Add(1)
	snap, raw, err := p.fetch(ctx)
	if err != nil {
		p.cfg.Metrics.Polls.WithLabelValues(metrics.ResultFailed).Inc()
		p.markStale(seq, err)
		return false, err
	}
	change, applied := p.apply(seq, snap, false)
	if change == nil {
		if applied {
			p.cfg.Metrics.Polls.WithLabelValues(metrics.ResultUnchanged).Inc()
		}
		return false, nil
	}
	p.persist(ctx, raw)
	p.notify(ctx, *change)
	return true, nil
}

func (p *Poller) fetch(ctx context.Context) (Snapshot, []byte, error) {
	raw, err := p.cfg.Fetcher.Fetch(ctx)
	if err != nil {
		return Snapshot{}, nil, err
	}
	snap, err := p.decode(raw)
	if err != nil {
		return Snapshot{}, nil, err
	}
	snap.FetchedAt = p.cfg.Now()
	snap.Source = SourceLive
	return snap, raw, nil
}

func (p *Poller) decode(raw []byte) (Snapshot, error) {
	events, warnings, err := attendance.ParseEvents(raw, p.cfg.Location)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if len(warnings) > 0 {
		p.cfg.Metrics.SkippedEvents.Add(float64(len(warnings)))
		p.log.WithField("count", len(warnings)).Debug("skipped malformed snapshot elements")
	}
	return Snapshot{
		Events:      events,
		Warnings:    warnings,
		Fingerprint: attendance.FingerprintOf(events),
	}, nil
}

// apply installs snap when seq is not older than the applied one. With force
// unset, an equal fingerprint only refreshes the metadata. The returned
// change is nil when the content did not change.
func (p *Poller) apply(seq uint64, snap Snapshot, force bool) (*Change, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seq < p.applied {
		p.log.WithField("seq", seq).Debug("discarding stale fetch")
		return nil, false
	}
	p.applied = seq

	prev := p.current
	if prev != nil && prev.Fingerprint == snap.Fingerprint {
		if force {
			p.current = &snap
		} else {
			updated := *prev
			updated.FetchedAt = snap.FetchedAt
			updated.Source = SourceLive
			updated.FetchError = ""
			p.current = &updated
		}
		return nil, true
	}

	p.current = &snap
	change := Change{
		Fingerprint: snap.Fingerprint,
		Count:       len(snap.Events),
		FetchedAt:   snap.FetchedAt,
	}
	if prev != nil {
		change.NewRecords = max(0, len(snap.Events)-len(prev.Events))
	} else {
		change.NewRecords = len(snap.Events)
	}
	p.cfg.Metrics.Polls.WithLabelValues(metrics.ResultChanged).Inc()
	p.cfg.Metrics.SnapshotEvents.Set(float64(change.Count))
	p.cfg.Metrics.SnapshotAge.Set(float64(snap.FetchedAt.Unix()))
	p.log.WithFields(logrus.Fields{
		"fingerprint": snap.Fingerprint,
		"count":       change.Count,
		"new":         change.NewRecords,
	}).Info("attendance snapshot changed")
	return &change, true
}

func (p *Poller) fallback(ctx context.Context, seq uint64, cause error) (Snapshot, error) {
	if cur, ok := p.markStale(seq, cause); ok {
		p.cfg.Metrics.Polls.WithLabelValues(metrics.ResultFallback).Inc()
		return cur, nil
	}
	if p.cfg.Store == nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrNoSnapshot, cause)
	}
	raw, err := p.cfg.Store.Get(ctx, store.KeySnapshot)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.log.WithError(err).Warn("read persisted snapshot")
		}
		return Snapshot{}, fmt.Errorf("%w: %v", ErrNoSnapshot, cause)
	}
	snap, err := p.decode(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: persisted copy unusable: %v", ErrNoSnapshot, err)
	}
	snap.Source = SourceCache
	snap.FetchError = cause.Error()

	p.mu.Lock()
	if seq >= p.applied && p.current == nil {
		p.applied = seq
		p.current = &snap
		p.cfg.Metrics.SnapshotEvents.Set(float64(len(snap.Events)))
	}
	cur := *p.current
	p.mu.Unlock()

	p.cfg.Metrics.Polls.WithLabelValues(metrics.ResultFallback).Inc()
	p.log.WithError(cause).WithField("count", len(cur.Events)).Warn("serving persisted snapshot")
	return cur, nil
}

// markStale flags the current snapshot as served from cache. A failure of a
// fetch older than the applied one leaves the snapshot untouched.
func (p *Poller) markStale(seq uint64, cause error) (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Snapshot{}, false
	}
	if seq < p.applied {
		return *p.current, true
	}
	stale := *p.current
	stale.Source = SourceCache
	stale.FetchError = cause.Error()
	p.current = &stale
	return stale, true
}

func (p *Poller) persist(ctx context.Context, raw []byte) {
	if p.cfg.Store == nil {
		return
	}
	if err := p.cfg.Store.Set(ctx, store.KeySnapshot, raw); err != nil {
		p.log.WithError(err).Warn("persist snapshot")
	}
}

func (p *Poller) notify(ctx context.Context, change Change) {
	if p.cfg.OnChange != nil {
		p.cfg.OnChange(change)
	}
	if p.cfg.Queue == nil {
		return
	}
	body, err := json.Marshal(change)
	if err != nil {
		p.log.WithError(err).Error("encode change")
		return
	}
	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	msg := queue.Message{Type: MessageSnapshotChanged, Body: body}
	if err := p.cfg.Queue.Publish(pctx, msg); err != nil {
		p.log.WithError(err).Warn("publish snapshot change")
	}
}

// DecodeChange parses the body of a snapshot.changed message.
func DecodeChange(msg queue.Message) (Change, error) {
	if msg.Type != MessageSnapshotChanged {
		return Change{}, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	var c Change
	if err := json.Unmarshal(msg.Body, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}
