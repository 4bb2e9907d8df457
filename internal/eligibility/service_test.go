package eligibility_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"benefitflow/internal/catalog/models"
	catalogstore "benefitflow/internal/catalog/store"
	"benefitflow/internal/eligibility"
	"benefitflow/internal/eligibility/cache"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	catalog *catalogstore.InMemoryStore
	asOf    time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.asOf = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.catalog = catalogstore.NewInMemory("v1", testSchemes(), nil)
}

func testSchemes() []*models.Scheme {
	updated := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return []*models.Scheme{
		{
			ID:         id.SchemeID("pension-credit"),
			Name:       "Pension Credit",
			Categories: []string{"elderly", "income-support"},
			Criteria: []models.Criterion{
				{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(66), Weight: 2},
				{Field: "income", Operator: models.OpLessThan, Value: id.Number(11000), Weight: 1},
			},
			EstimatedBenefit: 3500,
			UpdatedAt:        updated,
		},
		{
			ID:         id.SchemeID("winter-fuel"),
			Name:       "Winter Fuel Payment",
			Categories: []string{"elderly"},
			Criteria: []models.Criterion{
				{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: 1},
			},
			EstimatedBenefit: 200,
			UpdatedAt:        updated,
		},
		{
			ID:         id.SchemeID("hardship-fund"),
			Name:       "Hardship Fund",
			Categories: []string{"income-support"},
			Criteria: []models.Criterion{
				{Field: "income", Operator: models.OpLessThan, Value: id.Number(8000), Weight: 1},
			},
			EstimatedBenefit: 400,
			UpdatedAt:        updated,
		},
	}
}

func testProfile() *eligibility.Profile {
	pid, _ := id.ParseProfileID("7e9b7df2-8e08-4c7e-a0a4-3f1f5a1f0e11")
	return &eligibility.Profile{
		ID: pid,
		Fields: map[string]id.FieldValue{
			"age":    id.Number(62),
			"income": id.Number(9000),
		},
	}
}

func allSchemeIDs() []id.SchemeID {
	return []id.SchemeID{"pension-credit", "winter-fuel", "hardship-fund"}
}

func (s *ServiceSuite) TestEvaluateEligibility() {
	svc, err := eligibility.New(s.catalog)
	s.Require().NoError(err)

	s.Run("returns ranked results for the full scheme set", func() {
		results, err := svc.EvaluateEligibility(s.ctx, testProfile(), allSchemeIDs(), s.asOf)
		s.Require().NoError(err)
		s.Require().Len(results, 3)

		s.Equal(id.SchemeID("winter-fuel"), results[0].SchemeID)
		s.True(results[0].Eligible)
		s.Equal(1.0, results[0].Confidence)

		// age 62 passes neither bound of pension-credit's age criterion
		// but clears the income one: 1/3 weight.
		s.Equal(id.SchemeID("pension-credit"), results[1].SchemeID)
		s.False(results[1].Eligible)
		s.InDelta(1.0/3.0, results[1].Confidence, 1e-9)
	})

	s.Run("unknown scheme id maps to not found", func() {
		_, err := svc.EvaluateEligibility(s.ctx, testProfile(), []id.SchemeID{"no-such-scheme"}, s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("nil profile rejected", func() {
		_, err := svc.EvaluateEligibility(s.ctx, nil, allSchemeIDs(), s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("empty scheme set is a no-op", func() {
		results, err := svc.EvaluateEligibility(s.ctx, testProfile(), nil, s.asOf)
		s.Require().NoError(err)
		s.Empty(results)
	})
}

func (s *ServiceSuite) TestDeterminism() {
	svc, err := eligibility.New(s.catalog, eligibility.WithParallelism(4))
	s.Require().NoError(err)

	first, err := svc.EvaluateEligibility(s.ctx, testProfile(), allSchemeIDs(), s.asOf)
	s.Require().NoError(err)
	firstJSON, err := json.Marshal(first)
	s.Require().NoError(err)

	// Parallel fan-out completion order varies run to run; the encoded
	// response must not.
	for i := 0; i < 25; i++ {
		again, err := svc.EvaluateEligibility(s.ctx, testProfile(), allSchemeIDs(), s.asOf)
		s.Require().NoError(err)
		againJSON, err := json.Marshal(again)
		s.Require().NoError(err)
		s.Equal(string(firstJSON), string(againJSON))
	}
}

// countingBackend wraps a Backend to observe traffic.
type countingBackend struct {
	inner cache.Backend
	gets  atomic.Int64
	sets  atomic.Int64
	hits  atomic.Int64
}

func (c *countingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets.Add(1)
	payload, err := c.inner.Get(ctx, key)
	if err == nil {
		c.hits.Add(1)
	}
	return payload, err
}

func (c *countingBackend) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.sets.Add(1)
	return c.inner.Set(ctx, key, payload, ttl)
}

func (s *ServiceSuite) TestCaching() {
	backend := &countingBackend{inner: cache.NewMemory(time.Minute)}
	svc, err := eligibility.New(s.catalog, eligibility.WithCache(backend, time.Minute))
	s.Require().NoError(err)

	first, err := svc.EvaluateEligibility(s.ctx, testProfile(), allSchemeIDs(), s.asOf)
	s.Require().NoError(err)
	s.Equal(int64(0), backend.hits.Load())
	s.Equal(int64(1), backend.sets.Load())

	second, err := svc.EvaluateEligibility(s.ctx, testProfile(), allSchemeIDs(), s.asOf)
	s.Require().NoError(err)
	s.Equal(int64(1), backend.hits.Load())
	s.Equal(int64(1), backend.sets.Load())
	s.Equal(first, second)

	s.Run("changed profile content misses", func() {
		other := testProfile()
		other.Fields["age"] = id.Number(70)
		_, err := svc.EvaluateEligibility(s.ctx, other, allSchemeIDs(), s.asOf)
		s.Require().NoError(err)
		s.Equal(int64(1), backend.hits.Load())
		s.Equal(int64(2), backend.sets.Load())
	})

	s.Run("catalog version bump invalidates", func() {
		s.catalog.ReplaceSnapshot("v2", testSchemes(), nil)
		_, err := svc.EvaluateEligibility(s.ctx, testProfile(), allSchemeIDs(), s.asOf)
		s.Require().NoError(err)
		s.Equal(int64(1), backend.hits.Load())
		s.Equal(int64(3), backend.sets.Load())
	})
}

func (s *ServiceSuite) TestFindAlternatives() {
	svc, err := eligibility.New(s.catalog)
	s.Require().NoError(err)

	s.Run("suggests same-category schemes the profile clears", func() {
		alts, err := svc.FindAlternatives(s.ctx, "pension-credit", testProfile(), 5, s.asOf)
		s.Require().NoError(err)
		s.Require().Len(alts, 1)
		s.Equal(id.SchemeID("winter-fuel"), alts[0].Result.SchemeID)
		s.Greater(alts[0].Similarity, 0.0)
	})

	s.Run("unknown rejected scheme maps to not found", func() {
		_, err := svc.FindAlternatives(s.ctx, "no-such-scheme", testProfile(), 5, s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("empty suggestions are not an error", func() {
		sparse := &eligibility.Profile{Fields: map[string]id.FieldValue{}}
		alts, err := svc.FindAlternatives(s.ctx, "pension-credit", sparse, 5, s.asOf)
		s.Require().NoError(err)
		s.Empty(alts)
	})
}
