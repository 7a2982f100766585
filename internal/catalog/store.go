// Package catalog reads and writes the internal venue catalog and serves
// reference-set snapshots to the deduplication engine.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/mattn/go-sqlite3"
)

// DefaultSnapshotLimit caps the number of venues read per snapshot.
const DefaultSnapshotLimit = 1000

// ErrVenueExists is returned by InsertVenue when the id or external id is taken.
var ErrVenueExists = errors.New("venue already exists")

const schema = `
CREATE TABLE IF NOT EXISTS venues (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	latitude             REAL NOT NULL,
	longitude            REAL NOT NULL,
	foreign_reference_id TEXT UNIQUE,
	created_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore is the catalog backed by a SQLite database.
// It implements domain.CatalogReader.
type SQLiteStore struct {
	db *sql.DB
}

// Open connects to the SQLite database at path and applies the schema.
// Use ":memory:" for a private in-memory catalog.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// One connection keeps in-memory databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the venues table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	return nil
}

// ListVenueRefs returns up to limit venues ordered by id, so that the
// first-match-wins rule resolves the same way on every load.
func (s *SQLiteStore) ListVenueRefs(ctx context.Context, limit int) ([]domain.InternalVenueRef, error) {
	if limit <= 0 {
		limit = DefaultSnapshotLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, latitude, longitude, foreign_reference_id
		   FROM venues
		  ORDER BY id
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query venues: %w", err)
	}
	defer rows.Close()

	refs := make([]domain.InternalVenueRef, 0, limit)
	for rows.Next() {
		var (
			ref   domain.InternalVenueRef
			extID sql.NullString
		)
		if err := rows.Scan(&ref.ID, &ref.Name, &ref.Lat, &ref.Lng, &extID); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		if extID.Valid {
			ref.ExternalID = extID.String
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venues: %w", err)
	}
	return refs, nil
}

// InsertVenue adds a venue to the catalog. An empty ExternalID is stored as NULL.
func (s *SQLiteStore) InsertVenue(ctx context.Context, ref domain.InternalVenueRef) error {
	var extID sql.NullString
	if ref.ExternalID != "" {
		extID = sql.NullString{String: ref.ExternalID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO venues (id, name, latitude, longitude, foreign_reference_id)
		 VALUES (?, ?, ?, ?, ?)`,
		ref.ID, ref.Name, ref.Lat, ref.Lng, extID)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("insert venue %s: %w", ref.ID, ErrVenueExists)
		}
		return fmt.Errorf("insert venue %s: %w", ref.ID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
