package eligibility

import "sort"

// Rank orders evaluation results, best first. The sort key is total, so any
// permutation of the same result set produces the same order: eligible before
// ineligible, then confidence, estimated benefit, scheme recency, and finally
// scheme id as the deterministic tiebreak.
func Rank(results []Result) []Result {
	ordered := make([]Result, len(results))
	copy(ordered, results)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Eligible != b.Eligible {
			return a.Eligible
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.EstimatedBenefit != b.EstimatedBenefit {
			return a.EstimatedBenefit > b.EstimatedBenefit
		}
		if !a.SchemeUpdatedAt.Equal(b.SchemeUpdatedAt) {
			return a.SchemeUpdatedAt.After(b.SchemeUpdatedAt)
		}
		return a.SchemeID < b.SchemeID
	})
	return ordered
}
