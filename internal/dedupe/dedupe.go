// Package dedupe filters near-identical titles surfaced by different
// providers out of transient search results.
package dedupe

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/cesargomez89/mediasync/internal/constants"
	"github.com/cesargomez89/mediasync/internal/domain"
)

// Threshold is the similarity above which two titles count as the same.
const Threshold = constants.DedupeThreshold

// Similarity returns 1 - levenshtein(a, b) / max(len(a), len(b)) on the
// lower-cased runes of both strings. Two empty strings are identical.
func Similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Dedupe returns the candidates of secondary whose primary title is not
// similar to any title of a primary candidate. Primary always wins.
// Order of the kept candidates is preserved.
func Dedupe(primary, secondary []domain.CanonicalMedia) []domain.CanonicalMedia {
	kept := make([]domain.CanonicalMedia, 0, len(secondary))
	for _, cand := range secondary {
		if !matchesAny(cand, primary) {
			kept = append(kept, cand)
		}
	}
	return kept
}

func matchesAny(cand domain.CanonicalMedia, primary []domain.CanonicalMedia) bool {
	for _, p := range primary {
		if Similarity(cand.PrimaryTitle, p.PrimaryTitle) > Threshold {
			return true
		}
		if p.SecondaryTitle != "" && Similarity(cand.PrimaryTitle, p.SecondaryTitle) > Threshold {
			return true
		}
	}
	return false
}

// Merge deduplicates groups cumulatively: each group is filtered against
// everything kept from the groups before it. Groups are expected in
// provider priority order, so the first provider to surface a title wins.
func Merge(groups ...[]domain.CanonicalMedia) []domain.CanonicalMedia {
	var out []domain.CanonicalMedia
	for i, g := range groups {
		if i == 0 {
			out = append(out, g...)
			continue
		}
		out = append(out, Dedupe(out, g)...)
	}
	return out
}
