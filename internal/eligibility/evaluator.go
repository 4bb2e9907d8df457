package eligibility

import (
	"fmt"
	"time"

	"benefitflow/internal/catalog/models"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

// Evaluate applies a scheme's criteria to a profile as of the given instant.
//
// It is a pure function of its inputs: asOf is supplied by the caller and no
// wall clock is read here, so repeated calls are byte-identical.
//
// Errors: CodeValidation for a zero-weight criteria set or a kind mismatch
// between a criterion value and a profile field. A missing profile field is
// not an error; the criterion fails with reason missing-data.
func Evaluate(profile *Profile, criteria []models.Criterion, asOf time.Time) (Outcome, error) {
	totalWeight := 0.0
	for _, c := range criteria {
		if c.Weight < 0 {
			return Outcome{}, dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("criterion %q has negative weight", c.Field))
		}
		totalWeight += c.Weight
	}
	if totalWeight <= 0 {
		return Outcome{}, dErrors.New(dErrors.CodeValidation,
			"scheme criteria weights must sum to a positive number")
	}

	out := Outcome{Eligible: true}
	passingWeight := 0.0
	for _, c := range criteria {
		fieldValue, present := profile.Fields[c.Field]
		if !present {
			out.Failing = append(out.Failing, FailedCriterion{Field: c.Field, Reason: ReasonMissingData})
			if c.Mandatory() {
				out.Eligible = false
			}
			continue
		}

		passed, err := apply(c, fieldValue)
		if err != nil {
			return Outcome{}, err
		}
		if passed {
			passingWeight += c.Weight
			continue
		}

		out.Failing = append(out.Failing, FailedCriterion{
			Field:  c.Field,
			Reason: failureReason(c, fieldValue),
		})
		if c.Mandatory() {
			out.Eligible = false
		}
	}

	out.Confidence = passingWeight / totalWeight
	return out, nil
}

// apply dispatches one criterion on the value kind. Mismatched kinds are a
// validation error, never a coercion.
func apply(c models.Criterion, field id.FieldValue) (bool, error) {
	switch c.Operator {
	case models.OpEquals, models.OpNotEquals:
		if field.Kind() != c.Value.Kind() {
			return false, kindMismatch(c, field)
		}
		equal := field.Equal(c.Value)
		if c.Operator == models.OpNotEquals {
			return !equal, nil
		}
		return equal, nil

	case models.OpGreaterThan, models.OpGreaterOrEqual, models.OpLessThan, models.OpLessOrEqual:
		fv, fok := field.Number()
		cv, cok := c.Value.Number()
		if !fok || !cok {
			return false, kindMismatch(c, field)
		}
		switch c.Operator {
		case models.OpGreaterThan:
			return fv > cv, nil
		case models.OpGreaterOrEqual:
			return fv >= cv, nil
		case models.OpLessThan:
			return fv < cv, nil
		default:
			return fv <= cv, nil
		}

	case models.OpInSet, models.OpNotInSet:
		member, fok := field.Str()
		if !fok || c.Value.Kind() != id.KindStringSet {
			return false, kindMismatch(c, field)
		}
		contains := c.Value.Contains(member)
		if c.Operator == models.OpNotInSet {
			return !contains, nil
		}
		return contains, nil

	case models.OpDateBefore, models.OpDateAfter:
		fv, fok := field.Date()
		cv, cok := c.Value.Date()
		if !fok || !cok {
			return false, kindMismatch(c, field)
		}
		if c.Operator == models.OpDateBefore {
			return fv.Before(cv), nil
		}
		return fv.After(cv), nil

	case models.OpRangeInclusive:
		return applyRange(c, field)

	default:
		return false, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("criterion %q has unsupported operator %q", c.Field, c.Operator))
	}
}

// applyRange checks low <= field <= high for number or date ranges.
func applyRange(c models.Criterion, field id.FieldValue) (bool, error) {
	if c.RangeHigh.IsZero() || c.RangeHigh.Kind() != c.Value.Kind() {
		return false, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("criterion %q range bounds must share one kind", c.Field))
	}
	switch c.Value.Kind() {
	case id.KindNumber:
		fv, ok := field.Number()
		if !ok {
			return false, kindMismatch(c, field)
		}
		low, _ := c.Value.Number()
		high, _ := c.RangeHigh.Number()
		return fv >= low && fv <= high, nil
	case id.KindDate:
		fv, ok := field.Date()
		if !ok {
			return false, kindMismatch(c, field)
		}
		low, _ := c.Value.Date()
		high, _ := c.RangeHigh.Date()
		return !fv.Before(low) && !fv.After(high), nil
	default:
		return false, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("criterion %q range operator requires number or date bounds", c.Field))
	}
}

func kindMismatch(c models.Criterion, field id.FieldValue) error {
	return dErrors.New(dErrors.CodeValidation,
		fmt.Sprintf("criterion %q expects %s but profile field is %s",
			c.Field, c.Value.Kind(), field.Kind()))
}

func failureReason(c models.Criterion, field id.FieldValue) string {
	return fmt.Sprintf("%s: value %s does not satisfy %s %s",
		ReasonNotSatisfied, field, c.Operator, c.Value)
}
