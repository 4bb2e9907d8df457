package eligibility

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "benefitflow/pkg/domain"
)

func TestRank(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	results := []Result{
		{SchemeID: id.SchemeID("housing-grant"), Eligible: false, Confidence: 0.9, EstimatedBenefit: 500, SchemeUpdatedAt: base},
		{SchemeID: id.SchemeID("winter-fuel"), Eligible: true, Confidence: 0.8, EstimatedBenefit: 200, SchemeUpdatedAt: base},
		{SchemeID: id.SchemeID("pension-credit"), Eligible: true, Confidence: 1.0, EstimatedBenefit: 3500, SchemeUpdatedAt: base},
		{SchemeID: id.SchemeID("bus-pass"), Eligible: true, Confidence: 1.0, EstimatedBenefit: 3500, SchemeUpdatedAt: base},
	}

	t.Run("eligible first, then confidence, benefit, id", func(t *testing.T) {
		ordered := Rank(results)
		require.Len(t, ordered, 4)
		assert.Equal(t, id.SchemeID("bus-pass"), ordered[0].SchemeID)
		assert.Equal(t, id.SchemeID("pension-credit"), ordered[1].SchemeID)
		assert.Equal(t, id.SchemeID("winter-fuel"), ordered[2].SchemeID)
		assert.Equal(t, id.SchemeID("housing-grant"), ordered[3].SchemeID)
	})

	t.Run("recency breaks ties before id", func(t *testing.T) {
		newer := results[3]
		newer.SchemeUpdatedAt = base.Add(24 * time.Hour)
		newer.SchemeID = id.SchemeID("zz-newest")
		ordered := Rank([]Result{results[2], newer})
		assert.Equal(t, id.SchemeID("zz-newest"), ordered[0].SchemeID)
	})

	t.Run("any input permutation yields the same order", func(t *testing.T) {
		want := Rank(results)
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 20; i++ {
			shuffled := make([]Result, len(results))
			copy(shuffled, results)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			assert.Equal(t, want, Rank(shuffled))
		}
	})

	t.Run("input slice is not mutated", func(t *testing.T) {
		before := make([]Result, len(results))
		copy(before, results)
		Rank(results)
		assert.Equal(t, before, results)
	})
}
