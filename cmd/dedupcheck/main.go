// Command dedupcheck partitions a file of provider candidates against the
// catalog without calling any provider, printing the partition as JSON on
// stdout and a summary line on stderr.
//
// Usage:
//
//	go run ./cmd/dedupcheck -catalog catalog.db -candidates candidates.json
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
	"strings"

	"github.com/couchcryptid/venue-dedup/internal/catalog"
	"github.com/couchcryptid/venue-dedup/internal/domain"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dedupcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	catalogPath := fs.String("catalog", "catalog.db", "path to the SQLite catalog")
	candidatesPath := fs.String("candidates", "", "JSON array of candidate venues")
	verbatim := fs.String("verbatim", "google", "comma-separated providers whose ids are globally unique")
	limit := fs.Int("limit", catalog.DefaultSnapshotLimit, "maximum catalog venues to compare against")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *candidatesPath == "" {
		fs.Usage()
		return errors.New("missing required flag: -candidates")
	}

	data, err := os.ReadFile(*candidatesPath)
	if err != nil {
		return fmt.Errorf("read candidates: %w", err)
	}
	var candidates []domain.CandidateVenue
	if err := json.Unmarshal(data, &candidates); err != nil {
		return fmt.Errorf("parse %s: %w", *candidatesPath, err)
	}

	store, err := catalog.Open(ctx, *catalogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	refs, err := store.ListVenueRefs(ctx, *limit)
	if err != nil {
		return err
	}

	policy := domain.NewIDPolicy(splitList(*verbatim)...)
	p := domain.PartitionCandidates(candidates, refs, policy)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("write partition: %w", err)
	}

	byRule := map[domain.MatchRule]int{}
	for _, d := range p.Duplicates {
		byRule[d.Rule]++
	}
	fmt.Fprintf(stderr, "%d candidates against %d venues: %d unique, %d duplicate (%d by external id, %d by proximity)\n",
		p.Len(), len(refs), len(p.Unique), len(p.Duplicates),
		byRule[domain.RuleExternalID], byRule[domain.RuleProximity])
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
