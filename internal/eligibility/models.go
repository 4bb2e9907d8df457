// Package eligibility decides scheme qualification for a profile: criterion
// evaluation, ranking, and alternative suggestions.
package eligibility

import (
	"sort"
	"strings"
	"time"

	id "benefitflow/pkg/domain"
)

// Profile carries the attributes evaluated against scheme criteria. It is
// owned by the calling context; this package only reads it.
type Profile struct {
	ID       id.ProfileID
	Location string
	Fields   map[string]id.FieldValue
}

// CanonicalFields returns a stable encoding of the profile's field map, used
// for content-addressed cache keys. Equal field maps encode identically.
func (p *Profile) CanonicalFields() string {
	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.Fields[k].CanonicalString())
		b.WriteByte('\n')
	}
	return b.String()
}

// Failure reasons attached to failing criteria. missing-data marks an absent
// profile field; the others describe an operator that did not hold.
const (
	ReasonMissingData  = "missing-data"
	ReasonNotSatisfied = "not-satisfied"
)

// FailedCriterion reports one criterion that did not pass, with a
// human-readable reason.
type FailedCriterion struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Outcome is the raw result of evaluating one scheme's criteria.
type Outcome struct {
	Eligible   bool
	Confidence float64
	Failing    []FailedCriterion
}

// Result is the full per-scheme evaluation result. Produced fresh on every
// evaluation call; cached copies are invalidated on catalog version bumps.
type Result struct {
	SchemeID         id.SchemeID       `json:"scheme_id"`
	Eligible         bool              `json:"eligible"`
	Confidence       float64           `json:"confidence"`
	Failing          []FailedCriterion `json:"failing,omitempty"`
	EstimatedBenefit float64           `json:"estimated_benefit"`
	SchemeUpdatedAt  time.Time         `json:"scheme_updated_at"`
	EvaluatedAt      time.Time         `json:"evaluated_at"`
}

// Alternative pairs a candidate scheme with its similarity to a rejected one.
type Alternative struct {
	Result     Result  `json:"result"`
	Similarity float64 `json:"similarity"`
}
