package search

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Marker kinds in the GeoJSON export.
const (
	MarkerCandidate = "candidate"
	MarkerInternal  = "internal"
)

// FeatureCollection renders the result as map markers: one per unique
// candidate and one per matched catalog venue. Duplicates collapse onto the
// catalog venue they matched, which lists the external ids that hit it.
func (r Result) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, c := range r.Unique {
		f := geojson.NewFeature(orb.Point{c.Lng, c.Lat})
		f.ID = c.ID
		f.Properties["kind"] = MarkerCandidate
		f.Properties["name"] = c.Name
		f.Properties["provider"] = c.ProviderID
		if c.Address != "" {
			f.Properties["address"] = c.Address
		}
		fc.Append(f)
	}

	internal := make(map[string]*geojson.Feature)
	for _, d := range r.Duplicates {
		f, ok := internal[d.Matched.ID]
		if !ok {
			f = geojson.NewFeature(orb.Point{d.Matched.Lng, d.Matched.Lat})
			f.ID = d.Matched.ID
			f.Properties["kind"] = MarkerInternal
			f.Properties["name"] = d.Matched.Name
			f.Properties["matched_by"] = []string{}
			internal[d.Matched.ID] = f
			fc.Append(f)
		}
		id := d.ExternalID
		if id == "" {
			id = d.Candidate.ID
		}
		if id != "" {
			f.Properties["matched_by"] = append(f.Properties["matched_by"].([]string), id)
		}
	}

	return fc
}
