package domain

// MatchDistanceKm is the proximity radius for the name-similarity rule. A
// reference entry must be strictly closer than this to match by proximity.
const MatchDistanceKm = 0.2

// Resolve returns the first reference entry the candidate duplicates, or false
// when the candidate is new. externalID must already be namespaced (see
// IDPolicy.ExternalID); an empty externalID never matches by id.
func Resolve(name string, lat, lng float64, externalID string, refs []InternalVenueRef) (InternalVenueRef, bool) {
	m, ok := ResolveMatch(name, lat, lng, externalID, refs)
	return m.Venue, ok
}

// ResolveMatch is Resolve that also reports which rule produced the match.
func ResolveMatch(name string, lat, lng float64, externalID string, refs []InternalVenueRef) (Match, bool) {
	for _, ref := range refs {
		if externalID != "" && externalID == ref.ExternalID {
			return Match{Venue: ref, Rule: RuleExternalID}, true
		}
		if DistanceKm(lat, lng, ref.Lat, ref.Lng) < MatchDistanceKm && NamesSimilar(name, ref.Name) {
			return Match{Venue: ref, Rule: RuleProximity}, true
		}
	}
	return Match{}, false
}
