// Package models defines the scheme and document-type catalog entities.
// Catalog data is an immutable snapshot per evaluation call; nothing in this
// service mutates it.
package models

import (
	"time"

	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

// Operator enumerates the supported criterion comparison operators.
type Operator string

const (
	OpEquals         Operator = "eq"
	OpNotEquals      Operator = "neq"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessThan       Operator = "lt"
	OpLessOrEqual    Operator = "lte"
	OpInSet          Operator = "in"
	OpNotInSet       Operator = "not_in"
	OpDateBefore     Operator = "date_before"
	OpDateAfter      Operator = "date_after"
	OpRangeInclusive Operator = "range"
)

// ParseOperator validates an operator string at trust boundaries.
func ParseOperator(s string) (Operator, error) {
	switch Operator(s) {
	case OpEquals, OpNotEquals, OpGreaterThan, OpGreaterOrEqual,
		OpLessThan, OpLessOrEqual, OpInSet, OpNotInSet,
		OpDateBefore, OpDateAfter, OpRangeInclusive:
		return Operator(s), nil
	default:
		return "", dErrors.New(dErrors.CodeBadRequest, "unsupported operator: "+s)
	}
}

// Criterion is one qualification rule within a scheme.
//
// Value carries the typed comparison operand. For OpRangeInclusive the range
// bounds travel in RangeHigh (Value holds the low bound); both must share the
// same kind.
type Criterion struct {
	Field     string
	Operator  Operator
	Value     id.FieldValue
	RangeHigh id.FieldValue
	// Weight >= 0 feeds confidence aggregation. A criterion with weight 0
	// contributes nothing to confidence and is never mandatory.
	Weight float64
	// Optional criteria influence confidence but not the eligible verdict.
	Optional bool
}

// Mandatory reports whether failing this criterion makes the scheme ineligible.
func (c Criterion) Mandatory() bool {
	return c.Weight > 0 && !c.Optional
}

// RequiredDocument links a scheme to a document type it needs.
type RequiredDocument struct {
	Type      id.DocumentTypeID
	Mandatory bool
}

// Scheme is a benefit program with eligibility criteria and required documents.
type Scheme struct {
	ID               id.SchemeID
	Name             string
	Categories       []string
	Criteria         []Criterion
	RequiredDocs     []RequiredDocument
	EstimatedBenefit float64
	UpdatedAt        time.Time
}

// TotalWeight sums criterion weights. Schemes with non-positive total weight
// have undefined eligibility and must be rejected before evaluation.
func (s *Scheme) TotalWeight() float64 {
	var total float64
	for _, c := range s.Criteria {
		total += c.Weight
	}
	return total
}

// SharesCategory reports whether two schemes have at least one category in common.
func (s *Scheme) SharesCategory(other *Scheme) bool {
	for _, a := range s.Categories {
		for _, b := range other.Categories {
			if a == b {
				return true
			}
		}
	}
	return false
}

// DocumentType describes one kind of document a scheme may require.
type DocumentType struct {
	ID       id.DocumentTypeID
	Category string
	// Validity is the duration a freshly issued document stays valid.
	// Nil means unbounded.
	Validity      *time.Duration
	Prerequisites []id.DocumentTypeID
	// RequiresAuthority marks documents that need an external authority
	// interaction to obtain.
	RequiresAuthority bool
	// Automatable marks documents whose acquisition can be submitted
	// programmatically.
	Automatable bool
	// EstimatedEffort is the expected time to obtain the document.
	EstimatedEffort time.Duration
}
