package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"github.com/jonboulle/clockwork"
)

// ErrNotLoaded is reported by CheckReadiness until the first snapshot loads.
var ErrNotLoaded = errors.New("catalog snapshot has not been loaded")

// SnapshotOptions tunes a Snapshotter. Zero values take defaults.
type SnapshotOptions struct {
	TTL   time.Duration   // default 5m
	Limit int             // default DefaultSnapshotLimit
	Clock clockwork.Clock // default real clock
}

// Snapshotter serves the reference set as an immutable snapshot and reloads it
// from the catalog once it is older than the TTL.
//
// Slices returned by Snapshot are shared between callers and must not be
// modified. A reload swaps in a new slice, so callers holding an older
// snapshot keep a consistent view for the rest of their batch.
type Snapshotter struct {
	reader  domain.CatalogReader
	ttl     time.Duration
	limit   int
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	refs     []domain.InternalVenueRef
	loadedAt time.Time
	loaded   bool
	stale    bool
}

// NewSnapshotter creates a Snapshotter reading from reader.
func NewSnapshotter(reader domain.CatalogReader, opts SnapshotOptions, logger *slog.Logger, metrics *observability.Metrics) *Snapshotter {
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSnapshotLimit
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Snapshotter{
		reader:  reader,
		ttl:     opts.TTL,
		limit:   opts.Limit,
		clock:   opts.Clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Snapshot returns the current reference set, reloading it first if it is
// missing, stale, or invalidated. If a reload fails and an older snapshot
// exists, the older snapshot is returned and the failure is logged.
func (s *Snapshotter) Snapshot(ctx context.Context) ([]domain.InternalVenueRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && !s.stale && s.clock.Since(s.loadedAt) < s.ttl {
		return s.refs, nil
	}

	refs, err := s.load(ctx)
	if err != nil {
		if s.loaded {
			s.logger.Warn("catalog snapshot refresh failed, serving previous snapshot",
				"error", err,
				"age", s.clock.Since(s.loadedAt).String(),
				"size", len(s.refs),
			)
			return s.refs, nil
		}
		return nil, err
	}
	return refs, nil
}

// Refresh reloads the snapshot unconditionally.
func (s *Snapshotter) Refresh(ctx context.Context) ([]domain.InternalVenueRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Invalidate marks the snapshot stale so the next Snapshot call reloads it.
func (s *Snapshotter) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// CheckReadiness returns nil once a snapshot has been loaded.
func (s *Snapshotter) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	return nil
}

// load must be called with s.mu held.
func (s *Snapshotter) load(ctx context.Context) ([]domain.InternalVenueRef, error) {
	refs, err := s.reader.ListVenueRefs(ctx, s.limit)
	if err != nil {
		s.metrics.SnapshotRefreshes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load catalog snapshot: %w", err)
	}

	s.refs = refs
	s.loadedAt = s.clock.Now()
	s.loaded = true
	s.stale = false

	s.metrics.SnapshotRefreshes.WithLabelValues("success").Inc()
	s.metrics.SnapshotSize.Set(float64(len(refs)))
	s.logger.Debug("catalog snapshot loaded", "size", len(refs), "limit", s.limit)
	if len(refs) == s.limit {
		s.logger.Warn("catalog snapshot truncated at limit", "limit", s.limit)
	}
	return refs, nil
}
