package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/couchcryptid/venue-dedup/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	refs      []domain.InternalVenueRef
	err       error
	calls     int
	lastLimit int
}

func (f *fakeReader) ListVenueRefs(_ context.Context, limit int) ([]domain.InternalVenueRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.InternalVenueRef, len(f.refs))
	copy(out, f.refs)
	return out, nil
}

func (f *fakeReader) set(refs []domain.InternalVenueRef, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refs = refs
	f.err = err
}

func (f *fakeReader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestSnapshotter(reader domain.CatalogReader, clock clockwork.Clock, ttl time.Duration) *Snapshotter {
	return NewSnapshotter(reader, SnapshotOptions{TTL: ttl, Clock: clock},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting())
}

func TestSnapshotter_CachesWithinTTL(t *testing.T) {
	reader := &fakeReader{refs: []domain.InternalVenueRef{{ID: "v-1", Name: "Bills"}}}
	clock := clockwork.NewFakeClock()
	s := newTestSnapshotter(reader, clock, time.Minute)

	first, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	clock.Advance(30 * time.Second)
	_, err = s.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, reader.callCount())
	assert.Equal(t, DefaultSnapshotLimit, reader.lastLimit)
}

func TestSnapshotter_ReloadsAfterTTL(t *testing.T) {
	reader := &fakeReader{refs: []domain.InternalVenueRef{{ID: "v-1", Name: "Bills"}}}
	clock := clockwork.NewFakeClock()
	s := newTestSnapshotter(reader, clock, time.Minute)

	_, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	reader.set([]domain.InternalVenueRef{{ID: "v-1", Name: "Bills"}, {ID: "v-2", Name: "Single O"}}, nil)
	clock.Advance(time.Minute)

	refs, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.Equal(t, 2, reader.callCount())
}

func TestSnapshotter_Invalidate(t *testing.T) {
	reader := &fakeReader{}
	s := newTestSnapshotter(reader, clockwork.NewFakeClock(), time.Hour)

	_, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	s.Invalidate()
	_, err = s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, reader.callCount())
}

func TestSnapshotter_KeepsPreviousSnapshotOnError(t *testing.T) {
	reader := &fakeReader{refs: []domain.InternalVenueRef{{ID: "v-1", Name: "Bills"}}}
	clock := clockwork.NewFakeClock()
	s := newTestSnapshotter(reader, clock, time.Minute)

	_, err := s.Snapshot(context.Background())
	require.NoError(t, err)

	reader.set(nil, errors.New("database is locked"))
	clock.Advance(2 * time.Minute)

	refs, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "v-1", refs[0].ID)
}

func TestSnapshotter_ErrorWithoutPreviousSnapshot(t *testing.T) {
	reader := &fakeReader{err: errors.New("no such table: venues")}
	s := newTestSnapshotter(reader, clockwork.NewFakeClock(), time.Minute)

	_, err := s.Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")
	assert.ErrorIs(t, s.CheckReadiness(context.Background()), ErrNotLoaded)
}

func TestSnapshotter_CheckReadiness(t *testing.T) {
	s := newTestSnapshotter(&fakeReader{}, clockwork.NewFakeClock(), time.Minute)
	assert.ErrorIs(t, s.CheckReadiness(context.Background()), ErrNotLoaded)

	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.NoError(t, s.CheckReadiness(context.Background()))
}

func TestSnapshotter_SQLiteStore(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	s := newTestSnapshotter(store, clockwork.NewFakeClock(), time.Hour)

	refs, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)

	require.NoError(t, store.InsertVenue(ctx, domain.InternalVenueRef{ID: "v-1", Name: "Bills"}))
	s.Invalidate()

	refs, err = s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}
