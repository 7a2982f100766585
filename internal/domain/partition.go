package domain

// PartitionCandidates checks every candidate, in order, against the full
// reference set and splits the batch into unique candidates and duplicates.
// Candidates are never compared with each other, and refs is not modified.
func PartitionCandidates(candidates []CandidateVenue, refs []InternalVenueRef, policy IDPolicy) Partition {
	p := Partition{
		Unique:     make([]CandidateVenue, 0, len(candidates)),
		Duplicates: make([]Duplicate, 0),
	}

	for _, c := range candidates {
		extID := policy.ExternalID(c)
		m, ok := ResolveMatch(c.Name, c.Lat, c.Lng, extID, refs)
		if !ok {
			p.Unique = append(p.Unique, c)
			continue
		}
		p.Duplicates = append(p.Duplicates, Duplicate{
			Candidate:  c,
			Matched:    m.Venue,
			Rule:       m.Rule,
			ExternalID: extID,
		})
	}

	return p
}
