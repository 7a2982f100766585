package domain

import "strings"

// IDPolicy turns provider-scoped candidate ids into the external ids stored in
// the catalog. Providers not marked verbatim are prefixed with their tag.
type IDPolicy struct {
	verbatim map[string]struct{}
}

// NewIDPolicy creates a policy under which the listed providers keep their raw
// ids. Provider tags are compared case-insensitively.
func NewIDPolicy(verbatimProviders ...string) IDPolicy {
	v := make(map[string]struct{}, len(verbatimProviders))
	for _, p := range verbatimProviders {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			v[p] = struct{}{}
		}
	}
	return IDPolicy{verbatim: v}
}

// ExternalID returns the comparable external id for a candidate:
// "<provider>-<id>" unless the provider is verbatim. A candidate without an id
// gets an empty external id.
func (p IDPolicy) ExternalID(c CandidateVenue) string {
	if c.ID == "" {
		return ""
	}
	provider := strings.ToLower(strings.TrimSpace(c.ProviderID))
	if _, ok := p.verbatim[provider]; ok || provider == "" {
		return c.ID
	}
	return provider + "-" + c.ID
}
