package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"benefitflow/internal/catalog/models"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

type EvaluatorSuite struct {
	suite.Suite
	asOf time.Time
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	s.asOf = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func profileWith(fields map[string]id.FieldValue) *Profile {
	return &Profile{Fields: fields}
}

func (s *EvaluatorSuite) TestSingleCriterionOutcomes() {
	ageAtLeast60 := []models.Criterion{
		{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: 1},
	}

	s.Run("age 62 against age >= 60 passes with full confidence", func() {
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{"age": id.Number(62)}), ageAtLeast60, s.asOf)
		s.Require().NoError(err)
		s.True(outcome.Eligible)
		s.Equal(1.0, outcome.Confidence)
		s.Empty(outcome.Failing)
	})

	s.Run("age 40 against age >= 60 fails with zero confidence", func() {
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{"age": id.Number(40)}), ageAtLeast60, s.asOf)
		s.Require().NoError(err)
		s.False(outcome.Eligible)
		s.Equal(0.0, outcome.Confidence)
		s.Require().Len(outcome.Failing, 1)
		s.Equal("age", outcome.Failing[0].Field)
	})

	s.Run("missing field fails with missing-data, not an error", func() {
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{}), ageAtLeast60, s.asOf)
		s.Require().NoError(err)
		s.False(outcome.Eligible)
		s.Require().Len(outcome.Failing, 1)
		s.Equal(ReasonMissingData, outcome.Failing[0].Reason)
	})
}

func (s *EvaluatorSuite) TestValidationErrors() {
	s.Run("zero total weight fails fast", func() {
		criteria := []models.Criterion{
			{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: 0},
		}
		_, err := Evaluate(profileWith(map[string]id.FieldValue{"age": id.Number(62)}), criteria, s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("kind mismatch is a validation error, never coerced", func() {
		criteria := []models.Criterion{
			{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: 1},
		}
		_, err := Evaluate(profileWith(map[string]id.FieldValue{"age": id.String("62")}), criteria, s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("negative weight rejected", func() {
		criteria := []models.Criterion{
			{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: -1},
		}
		_, err := Evaluate(profileWith(map[string]id.FieldValue{"age": id.Number(62)}), criteria, s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *EvaluatorSuite) TestWeightedConfidence() {
	criteria := []models.Criterion{
		{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: 3},
		{Field: "region", Operator: models.OpInSet, Value: id.StringSet("north", "east"), Weight: 1},
	}

	s.Run("partial pass reports fractional confidence", func() {
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{
			"age":    id.Number(70),
			"region": id.String("south"),
		}), criteria, s.asOf)
		s.Require().NoError(err)
		s.False(outcome.Eligible)
		s.InDelta(0.75, outcome.Confidence, 1e-9)
	})

	s.Run("optional criterion failure keeps eligibility", func() {
		optional := []models.Criterion{
			{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: 3},
			{Field: "region", Operator: models.OpInSet, Value: id.StringSet("north"), Weight: 1, Optional: true},
		}
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{
			"age":    id.Number(70),
			"region": id.String("south"),
		}), optional, s.asOf)
		s.Require().NoError(err)
		s.True(outcome.Eligible)
		s.InDelta(0.75, outcome.Confidence, 1e-9)
	})
}

func (s *EvaluatorSuite) TestOperators() {
	s.Run("date before and after", func() {
		cutoff := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
		criteria := []models.Criterion{
			{Field: "born", Operator: models.OpDateBefore, Value: id.Date(cutoff), Weight: 1},
		}
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{
			"born": id.Date(time.Date(1960, 5, 2, 0, 0, 0, 0, time.UTC)),
		}), criteria, s.asOf)
		s.Require().NoError(err)
		s.True(outcome.Eligible)
	})

	s.Run("not-in-set excludes members", func() {
		criteria := []models.Criterion{
			{Field: "status", Operator: models.OpNotInSet, Value: id.StringSet("disqualified"), Weight: 1},
		}
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{
			"status": id.String("disqualified"),
		}), criteria, s.asOf)
		s.Require().NoError(err)
		s.False(outcome.Eligible)
	})

	s.Run("numeric range inclusive at both ends", func() {
		criteria := []models.Criterion{
			{Field: "income", Operator: models.OpRangeInclusive, Value: id.Number(0), RangeHigh: id.Number(20000), Weight: 1},
		}
		for _, income := range []float64{0, 20000, 10000} {
			outcome, err := Evaluate(profileWith(map[string]id.FieldValue{
				"income": id.Number(income),
			}), criteria, s.asOf)
			s.Require().NoError(err)
			s.True(outcome.Eligible, "income %v should pass", income)
		}
	})

	s.Run("range with mismatched bound kinds is a validation error", func() {
		criteria := []models.Criterion{
			{Field: "income", Operator: models.OpRangeInclusive, Value: id.Number(0), RangeHigh: id.String("high"), Weight: 1},
		}
		_, err := Evaluate(profileWith(map[string]id.FieldValue{"income": id.Number(5)}), criteria, s.asOf)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("not-equals on strings", func() {
		criteria := []models.Criterion{
			{Field: "housing", Operator: models.OpNotEquals, Value: id.String("owned"), Weight: 1},
		}
		outcome, err := Evaluate(profileWith(map[string]id.FieldValue{
			"housing": id.String("rented"),
		}), criteria, s.asOf)
		s.Require().NoError(err)
		s.True(outcome.Eligible)
	})
}

func (s *EvaluatorSuite) TestPurity() {
	criteria := []models.Criterion{
		{Field: "age", Operator: models.OpGreaterOrEqual, Value: id.Number(60), Weight: 2},
		{Field: "region", Operator: models.OpInSet, Value: id.StringSet("north"), Weight: 1},
	}
	profile := profileWith(map[string]id.FieldValue{
		"age":    id.Number(61),
		"region": id.String("north"),
	})

	first, err := Evaluate(profile, criteria, s.asOf)
	s.Require().NoError(err)
	second, err := Evaluate(profile, criteria, s.asOf)
	s.Require().NoError(err)
	s.Equal(first, second)
}
