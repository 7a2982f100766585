// Package domain decides whether a venue returned by a third-party place
// search is already present in the internal venue catalog.
//
// # Inputs
//
// The reference set is a snapshot of catalog entries ([InternalVenueRef]),
// loaded by the caller and treated as read-only. Candidates ([CandidateVenue])
// come straight from a provider search and are consumed once.
//
// # Matching Rules
//
// A candidate matches the first reference entry, in reference-set order, for
// which either rule holds:
//
//	external id:  the candidate's namespaced external id equals the entry's
//	              ExternalID exactly (name and distance are not consulted).
//	proximity:    great-circle distance < MatchDistanceKm (0.2 km) and the
//	              names are similar according to NamesSimilar.
//
// There is no "closest wins" re-ranking. Callers that need deterministic
// results sort the reference set (the catalog store orders by id).
//
// # Name Similarity
//
// Names are compared in normalized form (see [NormalizeName]):
//
//	"Joe's Café"          -> "joes cafe"
//	"The Grounds (Alex.)" -> "the grounds alex"
//
// Two names are similar when the normalized strings are equal, when one is a
// substring of the other, or when the shared word count divided by the word
// count of the shorter name is at least TokenOverlapThreshold (0.7). The
// predicate is not transitive.
//
// # External Identifiers
//
// Provider ids are namespaced before comparison so that equal raw ids from
// different providers cannot collide: "mapbox" + "poi.42" -> "mapbox-poi.42".
// Providers listed as verbatim in an [IDPolicy] keep their raw id. See
// [IDPolicy.ExternalID].
//
// # Concurrency
//
// Every function in this package is pure. A reference set may be shared by
// any number of goroutines resolving concurrently, provided nobody mutates it.
package domain
