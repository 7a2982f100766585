package domain

import "strings"

// TokenOverlapThreshold is the minimum share of the shorter name's words that
// must also appear in the longer name.
const TokenOverlapThreshold = 0.7

// NamesSimilar reports whether two venue names are close enough to describe
// the same place. Checks run in order and stop at the first hit:
//  1. normalized names are equal
//  2. one normalized name contains the other ("the grounds" / "the grounds of alexandria")
//  3. TokenOverlap >= TokenOverlapThreshold
//
// The relation is not transitive.
func NamesSimilar(a, b string) bool {
	na := NormalizeName(a)
	nb := NormalizeName(b)

	if na == nb {
		return true
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return TokenOverlap(na, nb) >= TokenOverlapThreshold
}

// TokenOverlap returns the number of distinct words shared by a and b divided
// by the distinct word count of the smaller of the two. Inputs are expected to
// be normalized already. It returns 0 when either side has no words.
func TokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	smaller, larger := setA, setB
	if len(setB) < len(setA) {
		smaller, larger = setB, setA
	}
	if len(smaller) == 0 {
		return 0
	}

	shared := 0
	for tok := range smaller {
		if _, ok := larger[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(smaller))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
