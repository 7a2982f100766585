package domain

import "context"

// InternalVenueRef is the matching projection of a catalog entry.
type InternalVenueRef struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"latitude"`
	Lng  float64 `json:"longitude"`

	// ExternalID is the namespaced provider id recorded at import time.
	// Empty when the venue was entered manually.
	ExternalID string `json:"external_id,omitempty"`
}

// CandidateVenue is a venue returned by a live provider search.
type CandidateVenue struct {
	ID         string  `json:"id"` // provider-scoped
	Name       string  `json:"name"`
	Lat        float64 `json:"latitude"`
	Lng        float64 `json:"longitude"`
	ProviderID string  `json:"provider"`
	Address    string  `json:"address,omitempty"`
}

// MatchRule names the rule that linked a candidate to a reference entry.
type MatchRule string

const (
	RuleExternalID MatchRule = "external_id"
	RuleProximity  MatchRule = "proximity"
)

// Match is a successful resolution.
type Match struct {
	Venue InternalVenueRef `json:"venue"`
	Rule  MatchRule        `json:"rule"`
}

// Duplicate pairs a candidate with the catalog entry it duplicates.
type Duplicate struct {
	Candidate  CandidateVenue   `json:"candidate"`
	Matched    InternalVenueRef `json:"matched"`
	Rule       MatchRule        `json:"rule"`
	ExternalID string           `json:"external_id,omitempty"`
}

// Partition is the result of checking a candidate batch against a reference set.
// Both slices preserve the input order of the batch.
type Partition struct {
	Unique     []CandidateVenue `json:"unique"`
	Duplicates []Duplicate      `json:"duplicates"`
}

// Len returns the number of candidates that went into the partition.
func (p Partition) Len() int {
	return len(p.Unique) + len(p.Duplicates)
}

// SearchQuery describes a proximity-biased place search.
type SearchQuery struct {
	Text  string
	Lat   float64
	Lng   float64
	Limit int
}

// PlaceSearcher is a third-party place-search provider.
type PlaceSearcher interface {
	// Provider returns the tag stamped on every candidate this searcher produces.
	Provider() string

	// Search returns candidates for the query. Provider ids are raw (not namespaced).
	Search(ctx context.Context, q SearchQuery) ([]CandidateVenue, error)
}

// CatalogReader reads the reference set from the authoritative store.
type CatalogReader interface {
	ListVenueRefs(ctx context.Context, limit int) ([]InternalVenueRef, error)
}
