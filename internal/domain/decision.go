package domain

import "time"

// DecisionStatus is the outcome recorded for one candidate.
type DecisionStatus string

const (
	StatusUnique    DecisionStatus = "unique"
	StatusDuplicate DecisionStatus = "duplicate"
)

// Decision is the per-candidate record handed to downstream consumers
// (import gating, analytics).
type Decision struct {
	SessionID      string         `json:"session_id"`
	Status         DecisionStatus `json:"status"`
	Candidate      CandidateVenue `json:"candidate"`
	ExternalID     string         `json:"external_id,omitempty"`
	MatchedVenueID string         `json:"matched_venue_id,omitempty"`
	Rule           MatchRule      `json:"rule,omitempty"`
	DecidedAt      time.Time      `json:"decided_at"`
}

// Decisions flattens a partition into decision records, unique candidates first.
func Decisions(sessionID string, p Partition, policy IDPolicy, at time.Time) []Decision {
	out := make([]Decision, 0, p.Len())
	for _, c := range p.Unique {
		out = append(out, Decision{
			SessionID:  sessionID,
			Status:     StatusUnique,
			Candidate:  c,
			ExternalID: policy.ExternalID(c),
			DecidedAt:  at,
		})
	}
	for _, d := range p.Duplicates {
		out = append(out, Decision{
			SessionID:      sessionID,
			Status:         StatusDuplicate,
			Candidate:      d.Candidate,
			ExternalID:     d.ExternalID,
			MatchedVenueID: d.Matched.ID,
			Rule:           d.Rule,
			DecidedAt:      at,
		})
	}
	return out
}
