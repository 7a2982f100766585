// Package search runs place searches across providers and partitions the
// results against the internal catalog.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/venue-dedup/internal/catalog"
	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidQuery is returned for malformed search or import input.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrAllProvidersFailed is returned when every provider errored.
	ErrAllProvidersFailed = errors.New("all providers failed")
	// ErrDuplicateVenue is returned by Import when the candidate is already catalogued.
	ErrDuplicateVenue = errors.New("venue already in catalog")
)

// DuplicateError carries the catalog venue an import collided with.
type DuplicateError struct {
	Match domain.Match
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s: matches %s by %s", ErrDuplicateVenue, e.Match.Venue.ID, e.Match.Rule)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateVenue }

// Snapshots serves the reference set.
type Snapshots interface {
	Snapshot(ctx context.Context) ([]domain.InternalVenueRef, error)
	Refresh(ctx context.Context) ([]domain.InternalVenueRef, error)
	Invalidate()
	CheckReadiness(ctx context.Context) error
}

// VenueWriter inserts venues into the catalog.
type VenueWriter interface {
	InsertVenue(ctx context.Context, ref domain.InternalVenueRef) error
}

// DecisionPublisher forwards per-candidate decisions downstream.
type DecisionPublisher interface {
	PublishDecisions(ctx context.Context, decisions []domain.Decision) error
}

// Options tunes a Service. Zero values take defaults.
type Options struct {
	Policy       domain.IDPolicy
	MaxAttempts  int               // per provider call, default 3
	RetryBackoff time.Duration     // first retry delay, default 200ms
	Publisher    DecisionPublisher // nil disables publishing
	Clock        clockwork.Clock
}

// Result is the outcome of one search or partition session.
type Result struct {
	SessionID  string                  `json:"session_id"`
	Unique     []domain.CandidateVenue `json:"unique"`
	Duplicates []domain.Duplicate      `json:"duplicates"`
	Errors     map[string]string       `json:"errors,omitempty"`
}

// Service orchestrates provider searches, deduplication and imports.
type Service struct {
	providers    []domain.PlaceSearcher
	snapshots    Snapshots
	store        VenueWriter
	policy       domain.IDPolicy
	maxAttempts  int
	retryBackoff time.Duration
	publisher    DecisionPublisher
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
}

const maxBackoff = 5 * time.Second

// New creates a Service. Providers are queried concurrently but their results
// are reported in the order given here.
func New(providers []domain.PlaceSearcher, snapshots Snapshots, store VenueWriter, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 200 * time.Millisecond
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	metrics.ProvidersEnabled.Set(float64(len(providers)))
	return &Service{
		providers:    providers,
		snapshots:    snapshots,
		store:        store,
		policy:       opts.Policy,
		maxAttempts:  opts.MaxAttempts,
		retryBackoff: opts.RetryBackoff,
		publisher:    opts.Publisher,
		clock:        opts.Clock,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once the catalog snapshot has loaded.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.snapshots.CheckReadiness(ctx)
}

// ValidateQuery checks the text and coordinates of a search query.
func ValidateQuery(q domain.SearchQuery) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidQuery)
	}
	if err := validateCoords(q.Lat, q.Lng); err != nil {
		return err
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: limit must not be negative", ErrInvalidQuery)
	}
	return nil
}

func validateCoords(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidQuery, lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidQuery, lng)
	}
	return nil
}

// Search queries every provider and partitions each provider's batch against
// one catalog snapshot. Provider failures are reported in Result.Errors; the
// call only fails when the snapshot cannot be loaded or every provider failed.
func (s *Service) Search(ctx context.Context, q domain.SearchQuery) (Result, error) {
	if err := ValidateQuery(q); err != nil {
		return Result{}, err
	}

	refs, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		s.metrics.SearchesTotal.WithLabelValues("failed").Inc()
		return Result{}, err
	}

	res := Result{
		SessionID:  uuid.NewString(),
		Unique:     []domain.CandidateVenue{},
		Duplicates: []domain.Duplicate{},
	}
	logger := s.logger.With("session_id", res.SessionID)

	partitions := make([]domain.Partition, len(s.providers))
	errs := make([]error, len(s.providers))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range s.providers {
		g.Go(func() error {
			candidates, err := s.searchWithRetry(gctx, p, q)
			if err != nil {
				errs[i] = err
				return nil
			}
			partitions[i] = s.partition(p.Provider(), candidates, refs)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, p := range s.providers {
		if errs[i] != nil {
			failed++
			if res.Errors == nil {
				res.Errors = make(map[string]string)
			}
			res.Errors[p.Provider()] = errs[i].Error()
			logger.Warn("provider search failed", "provider", p.Provider(), "error", errs[i])
			continue
		}
		res.Unique = append(res.Unique, partitions[i].Unique...)
		res.Duplicates = append(res.Duplicates, partitions[i].Duplicates...)
	}

	switch {
	case len(s.providers) > 0 && failed == len(s.providers):
		s.metrics.SearchesTotal.WithLabelValues("failed").Inc()
		return res, fmt.Errorf("%w: %d providers", ErrAllProvidersFailed, failed)
	case failed > 0:
		s.metrics.SearchesTotal.WithLabelValues("partial").Inc()
	default:
		s.metrics.SearchesTotal.WithLabelValues("ok").Inc()
	}

	logger.Info("search complete",
		"query", q.Text,
		"unique", len(res.Unique),
		"duplicates", len(res.Duplicates),
		"failed_providers", failed,
		"snapshot_size", len(refs),
	)
	s.publish(ctx, res)
	return res, nil
}

// Partition checks caller-supplied candidates against the catalog.
func (s *Service) Partition(ctx context.Context, candidates []domain.CandidateVenue) (Result, error) {
	refs, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}

	p := s.partition("", candidates, refs)
	res := Result{
		SessionID:  uuid.NewString(),
		Unique:     p.Unique,
		Duplicates: p.Duplicates,
	}
	s.logger.Info("partition complete",
		"session_id", res.SessionID,
		"candidate_count", len(candidates),
		"unique", len(res.Unique),
		"duplicates", len(res.Duplicates),
	)
	s.publish(ctx, res)
	return res, nil
}

// Import adds candidate to the catalog unless it resolves to an existing venue,
// in which case the returned error is a *DuplicateError.
func (s *Service) Import(ctx context.Context, c domain.CandidateVenue) (domain.InternalVenueRef, error) {
	if strings.TrimSpace(c.Name) == "" {
		return domain.InternalVenueRef{}, fmt.Errorf("%w: name is required", ErrInvalidQuery)
	}
	if err := validateCoords(c.Lat, c.Lng); err != nil {
		return domain.InternalVenueRef{}, err
	}

	refs, err := s.snapshots.Refresh(ctx)
	if err != nil {
		s.metrics.Imports.WithLabelValues("error").Inc()
		return domain.InternalVenueRef{}, err
	}

	extID := s.policy.ExternalID(c)
	if m, ok := domain.ResolveMatch(c.Name, c.Lat, c.Lng, extID, refs); ok {
		s.metrics.Imports.WithLabelValues("duplicate").Inc()
		s.logger.Info("import refused, venue already catalogued",
			"candidate", c.Name, "matched_venue_id", m.Venue.ID, "rule", m.Rule)
		return domain.InternalVenueRef{}, &DuplicateError{Match: m}
	}

	ref := domain.InternalVenueRef{
		ID:         uuid.NewString(),
		Name:       c.Name,
		Lat:        c.Lat,
		Lng:        c.Lng,
		ExternalID: extID,
	}
	if err := s.store.InsertVenue(ctx, ref); err != nil {
		if errors.Is(err, catalog.ErrVenueExists) {
			s.metrics.Imports.WithLabelValues("duplicate").Inc()
			return domain.InternalVenueRef{}, fmt.Errorf("%w: %w", ErrDuplicateVenue, err)
		}
		s.metrics.Imports.WithLabelValues("error").Inc()
		return domain.InternalVenueRef{}, err
	}
	s.snapshots.Invalidate()

	s.metrics.Imports.WithLabelValues("created").Inc()
	s.logger.Info("venue imported", "venue_id", ref.ID, "external_id", ref.ExternalID, "name", ref.Name)
	return ref, nil
}

func (s *Service) partition(provider string, candidates []domain.CandidateVenue, refs []domain.InternalVenueRef) domain.Partition {
	start := time.Now()
	p := domain.PartitionCandidates(candidates, refs, s.policy)
	s.metrics.PartitionDuration.Observe(time.Since(start).Seconds())

	for _, c := range p.Unique {
		s.metrics.CandidatesResolved.WithLabelValues(providerLabel(provider, c), "unique").Inc()
	}
	for _, d := range p.Duplicates {
		s.metrics.CandidatesResolved.WithLabelValues(providerLabel(provider, d.Candidate), "duplicate").Inc()
		s.metrics.DuplicateMatches.WithLabelValues(string(d.Rule)).Inc()
	}
	return p
}

func providerLabel(provider string, c domain.CandidateVenue) string {
	if provider != "" {
		return provider
	}
	if c.ProviderID != "" {
		return strings.ToLower(c.ProviderID)
	}
	return "unknown"
}

// searchWithRetry calls p.Search up to maxAttempts times with exponential backoff.
func (s *Service) searchWithRetry(ctx context.Context, p domain.PlaceSearcher, q domain.SearchQuery) ([]domain.CandidateVenue, error) {
	backoff := s.retryBackoff
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		candidates, err := p.Search(ctx, q)
		if err == nil {
			return candidates, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == s.maxAttempts {
			break
		}
		s.logger.Debug("provider search failed, retrying",
			"provider", p.Provider(), "attempt", attempt, "backoff", backoff.String(), "error", err)
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return nil, fmt.Errorf("%s: %w", p.Provider(), lastErr)
}

func (s *Service) publish(ctx context.Context, res Result) {
	if s.publisher == nil {
		return
	}
	p := domain.Partition{Unique: res.Unique, Duplicates: res.Duplicates}
	decisions := domain.Decisions(res.SessionID, p, s.policy, s.clock.Now().UTC())
	if len(decisions) == 0 {
		return
	}
	if err := s.publisher.PublishDecisions(ctx, decisions); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("publish decisions failed", "session_id", res.SessionID, "error", err)
		return
	}
	s.metrics.DecisionsPublished.Add(float64(len(decisions)))
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
