package eligibility

import (
	"sort"
	"time"

	"benefitflow/internal/catalog/models"
)

// SimilarityWeights tunes the weighted Jaccard between schemes. Category tags
// count more than criterion field names because they encode intent, not
// mechanics.
type SimilarityWeights struct {
	Category float64
	Field    float64
}

// DefaultSimilarityWeights matches the product team's tuning.
func DefaultSimilarityWeights() SimilarityWeights {
	return SimilarityWeights{Category: 2.0, Field: 1.0}
}

// Similarity computes the weighted Jaccard over (categories ∪ criterion
// fields) of two schemes. Result is in 0,1.
func Similarity(a, b *models.Scheme, w SimilarityWeights) float64 {
	aTraits := schemeTraits(a, w)
	bTraits := schemeTraits(b, w)

	var intersection, union float64
	for trait, weight := range aTraits {
		if _, ok := bTraits[trait]; ok {
			intersection += weight
		}
		union += weight
	}
	for trait, weight := range bTraits {
		if _, ok := aTraits[trait]; !ok {
			union += weight
		}
	}
	if union == 0 {
		return 0
	}
	return intersection / union
}

// schemeTraits maps each trait to its weight. Category and field namespaces
// are kept distinct so a category named like a field never collides.
func schemeTraits(s *models.Scheme, w SimilarityWeights) map[string]float64 {
	traits := make(map[string]float64, len(s.Categories)+len(s.Criteria))
	for _, c := range s.Categories {
		traits["cat:"+c] = w.Category
	}
	for _, c := range s.Criteria {
		traits["field:"+c.Field] = w.Field
	}
	return traits
}

// FindAlternatives suggests schemes similar to a rejected one that the profile
// plausibly qualifies for.
//
// Candidates share at least one category tag with the rejected scheme. Each is
// evaluated against the profile; only candidates with confidence above the
// floor are retained, ranked by (similarity, confidence, benefit) and cut to
// maxResults. An empty result is not an error.
//
// Candidates whose criteria fail validation (zero weight, kind mismatch
// against this profile) are skipped rather than failing the whole suggestion
// pass: one malformed catalog entry must not hide the rest.
func FindAlternatives(
	rejected *models.Scheme,
	profile *Profile,
	candidates []*models.Scheme,
	asOf time.Time,
	weights SimilarityWeights,
	confidenceFloor float64,
	maxResults int,
) []Alternative {
	var out []Alternative
	for _, candidate := range candidates {
		if candidate.ID == rejected.ID {
			continue
		}
		if !candidate.SharesCategory(rejected) {
			continue
		}

		outcome, err := Evaluate(profile, candidate.Criteria, asOf)
		if err != nil {
			continue
		}
		if outcome.Confidence <= confidenceFloor {
			continue
		}

		out = append(out, Alternative{
			Result: Result{
				SchemeID:         candidate.ID,
				Eligible:         outcome.Eligible,
				Confidence:       outcome.Confidence,
				Failing:          outcome.Failing,
				EstimatedBenefit: candidate.EstimatedBenefit,
				SchemeUpdatedAt:  candidate.UpdatedAt,
				EvaluatedAt:      asOf,
			},
			Similarity: Similarity(rejected, candidate, weights),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Result.Confidence != b.Result.Confidence {
			return a.Result.Confidence > b.Result.Confidence
		}
		if a.Result.EstimatedBenefit != b.Result.EstimatedBenefit {
			return a.Result.EstimatedBenefit > b.Result.EstimatedBenefit
		}
		return a.Result.SchemeID < b.Result.SchemeID
	})

	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}
