// Package models defines the durable workflow aggregate. A workflow is the
// persisted execution plan derived from a requirement graph plus reuse
// decisions; everything else about it (status, progress) is derived on read.
package models

import (
	"time"

	"benefitflow/internal/requirement"
	id "benefitflow/pkg/domain"
)

// StepState is the lifecycle state of one document-acquisition step.
type StepState string

const (
	// StatePending is the transient state during workflow assembly, before
	// readiness is derived. Persisted workflows never hold pending steps.
	StatePending StepState = "pending"
	// StateBlocked waits on at least one prerequisite step.
	StateBlocked StepState = "blocked"
	// StateReady has every prerequisite completed or skipped.
	StateReady StepState = "ready"
	// StateInProgress has been started by the user or the submitter.
	StateInProgress StepState = "in_progress"
	// StateAwaitingAuthority waits on an external authority's confirmation.
	StateAwaitingAuthority StepState = "awaiting_authority"
	StateCompleted         StepState = "completed"
	// StateFailed is terminal; retriable failures return to ready instead.
	StateFailed StepState = "failed"
	// StateSkipped satisfied by a reused document at creation time.
	StateSkipped StepState = "skipped"
)

// Terminal reports whether no further transition can leave the state.
func (s StepState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateSkipped
}

// Step is one document acquisition within a workflow.
type Step struct {
	ID           id.StepID                 `json:"id"`
	DocumentType id.DocumentTypeID         `json:"document_type"`
	State        StepState                 `json:"state"`
	Decision     requirement.ReuseDecision `json:"decision"`
	Mandatory    bool                      `json:"mandatory"`
	// EstimatedDuration is the catalog's effort estimate for this document.
	EstimatedDuration time.Duration `json:"estimated_duration"`
	Automatable       bool          `json:"automatable"`
	RequiresAuthority bool          `json:"requires_authority"`
	// RetryCount counts transient submission failures so far.
	RetryCount int `json:"retry_count"`
	// NextAttemptAt is the backoff hint after a transient failure.
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	// EscalationRequired flags an awaiting step with no external update for
	// too long. The step itself is not failed.
	EscalationRequired bool `json:"escalation_required"`
	// LastExternalUpdate is the last time the external authority touched
	// this step. Only meaningful for awaiting_authority.
	LastExternalUpdate *time.Time `json:"last_external_update,omitempty"`
}

// Workflow is the persisted aggregate. Version implements optimistic
// concurrency: every mutation must name the version it read, and the store
// rejects writes against any other.
type Workflow struct {
	ID        id.WorkflowID `json:"id"`
	ProfileID id.ProfileID  `json:"profile_id"`
	SchemeIDs []id.SchemeID `json:"scheme_ids"`
	Steps     []*Step       `json:"steps"`
	// Edges run prerequisite document type -> dependent document types,
	// carried over from the requirement graph.
	Edges     map[id.DocumentTypeID][]id.DocumentTypeID `json:"edges"`
	Version   int64                                     `json:"version"`
	CreatedAt time.Time                                 `json:"created_at"`
	UpdatedAt time.Time                                 `json:"updated_at"`
}

// StepByID finds a step. Nil when absent.
func (w *Workflow) StepByID(stepID id.StepID) *Step {
	for _, s := range w.Steps {
		if s.ID == stepID {
			return s
		}
	}
	return nil
}

// StepByType finds the step for a document type. Steps are one per type.
func (w *Workflow) StepByType(t id.DocumentTypeID) *Step {
	for _, s := range w.Steps {
		if s.DocumentType == t {
			return s
		}
	}
	return nil
}

// Prerequisites returns the document types the given step waits on.
func (w *Workflow) Prerequisites(t id.DocumentTypeID) []id.DocumentTypeID {
	var out []id.DocumentTypeID
	for prereq, dependents := range w.Edges {
		for _, dep := range dependents {
			if dep == t {
				out = append(out, prereq)
				break
			}
		}
	}
	return out
}

// WorkflowState is the derived aggregate state.
type WorkflowState string

const (
	WorkflowInProgress WorkflowState = "in_progress"
	WorkflowCompleted  WorkflowState = "completed"
	WorkflowFailed     WorkflowState = "failed"
)

// Status is computed from step states on read, never stored.
type Status struct {
	State WorkflowState `json:"state"`
	// Percent is done steps (completed or skipped) over total, in [0,1].
	Percent float64 `json:"percent"`
	// EscalatedSteps lists awaiting steps flagged for manual follow-up.
	EscalatedSteps []id.StepID `json:"escalated_steps,omitempty"`
}

// DeriveStatus computes the workflow status from its steps.
//
// Completed iff every step is completed or skipped. Failed iff any step
// carries a terminal failure: cascades mark unreachable dependents failed as
// well, so one terminal failure means no recovery path. Otherwise in
// progress.
func (w *Workflow) DeriveStatus() Status {
	if len(w.Steps) == 0 {
		return Status{State: WorkflowCompleted, Percent: 1}
	}

	var done, failed int
	var escalated []id.StepID
	for _, s := range w.Steps {
		switch s.State {
		case StateCompleted, StateSkipped:
			done++
		case StateFailed:
			failed++
		}
		if s.EscalationRequired {
			escalated = append(escalated, s.ID)
		}
	}

	st := Status{
		Percent:        float64(done) / float64(len(w.Steps)),
		EscalatedSteps: escalated,
	}
	switch {
	case failed > 0:
		st.State = WorkflowFailed
	case done == len(w.Steps):
		st.State = WorkflowCompleted
	default:
		st.State = WorkflowInProgress
	}
	return st
}
