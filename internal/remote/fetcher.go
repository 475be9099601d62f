// Package remote fetches the read-only remote catalog and keeps a local
// snapshot of the last good copy.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/metrics"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

// FetchTimeout is the budget of one remote catalog request.
const FetchTimeout = 10 * time.Second

// SnapshotStore persists the last catalog fetched successfully.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, c *models.Catalog, fetchedAt time.Time) error
	LoadSnapshot(ctx context.Context) (*models.Catalog, time.Time, error)
}

// Fetcher loads the remote catalog, falling back to the snapshot when the
// source is unreachable or returns garbage.
type Fetcher struct {
	source    Source
	snapshots SnapshotStore
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// WithTimeout overrides FetchTimeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher creates a Fetcher.
func NewFetcher(source Source, snapshots SnapshotStore, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:    source,
		snapshots: snapshots,
		timeout:   FetchTimeout,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the remote catalog. It performs exactly one request and on
// any failure reads the snapshot once. With neither available it returns a
// network error.
func (f *Fetcher) Fetch(ctx context.Context) (*models.Catalog, error) {
	c, err := f.fetchRemote(ctx)
	if err == nil {
		metrics.RemoteCatalogFetches.WithLabelValues("ok").Inc()
		if serr := f.snapshots.SaveSnapshot(ctx, c, f.now()); serr != nil {
			f.log.Warn("failed to save remote catalog snapshot", zap.Error(serr))
		}
		return c, nil
	}

	f.log.Warn("remote catalog unavailable", zap.Error(err))
	snap, fetchedAt, serr := f.snapshots.LoadSnapshot(ctx)
	if serr != nil {
		metrics.RemoteCatalogFetches.WithLabelValues("error").Inc()
		if !apperr.Is(serr, apperr.KindNotFound) {
			f.log.Error("failed to read remote catalog snapshot", zap.Error(serr))
		}
		return nil, apperr.Network("remote catalog unavailable", err)
	}

	metrics.RemoteCatalogFetches.WithLabelValues("snapshot").Inc()
	f.log.Info("serving remote catalog snapshot", zap.Time("fetched_at", fetchedAt))
	return snap, nil
}

func (f *Fetcher) fetchRemote(ctx context.Context) (*models.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	data, err := f.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	var c models.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode remote catalog: %w", err)
	}

	kept := make([]models.Talent, 0, len(c.Talents))
	for _, t := range c.Talents {
		if !models.ValidID(t.ID) {
			f.log.Warn("dropping remote talent with invalid id", zap.String("id", t.ID))
			continue
		}
		kept = append(kept, t)
	}
	c.Talents = kept
	return &c, nil
}
