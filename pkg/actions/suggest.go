package actions

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxSuggestDistance bounds edit-distance suggestions.
const maxSuggestDistance = 3

// Suggest returns the candidate closest to key, or "" when nothing is close.
// Subsequence matches win over edit-distance matches.
func Suggest(key string, candidates []string) string {
	if key == "" || len(candidates) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindFold(key, candidates)
	if len(ranks) > 0 {
		sort.Stable(ranks)
		return ranks[0].Target
	}

	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(key, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
