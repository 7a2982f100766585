// Command seedcatalog loads venue records from a JSON file into the SQLite
// catalog. Records without an id get a generated one; records that collide
// with an existing id or external id are skipped.
//
// Usage:
//
//	go run ./cmd/seedcatalog -catalog catalog.db -in venues.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/couchcryptid/venue-dedup/internal/catalog"
	"github.com/couchcryptid/venue-dedup/internal/domain"
	"github.com/google/uuid"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seedcatalog", flag.ContinueOnError)
	fs.SetOutput(out)
	catalogPath := fs.String("catalog", "catalog.db", "path to the SQLite catalog")
	in := fs.String("in", "", "JSON array of venues (id, name, latitude, longitude, external_id)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		fs.Usage()
		return errors.New("missing required flag: -in")
	}

	venues, err := readVenues(*in)
	if err != nil {
		return err
	}

	store, err := catalog.Open(ctx, *catalogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	var inserted, skipped int
	for _, v := range venues {
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		err := store.InsertVenue(ctx, v)
		switch {
		case errors.Is(err, catalog.ErrVenueExists):
			skipped++
		case err != nil:
			return err
		default:
			inserted++
		}
	}

	fmt.Fprintf(out, "seeded %s: %d inserted, %d skipped\n", *catalogPath, inserted, skipped)
	return nil
}

func readVenues(path string) ([]domain.InternalVenueRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venues: %w", err)
	}
	var venues []domain.InternalVenueRef
	if err := json.Unmarshal(data, &venues); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return venues, nil
}
