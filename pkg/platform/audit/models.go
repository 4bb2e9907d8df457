package audit

import (
	"context"
	"time"

	id "benefitflow/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time
	ProfileID  id.ProfileID
	WorkflowID id.WorkflowID
	StepID     id.StepID
	SchemeID   id.SchemeID
	Action     string
	Decision   string
	Reason     string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

// AuditEvent enumerates the actions this service records.
type AuditEvent string

const (
	// Eligibility events
	EventEligibilityEvaluated  AuditEvent = "eligibility_evaluated"
	EventAlternativesSuggested AuditEvent = "alternatives_suggested"

	// Workflow lifecycle events
	EventWorkflowCreated AuditEvent = "workflow_created"
	EventWorkflowDeleted AuditEvent = "workflow_deleted"
	EventStepStarted     AuditEvent = "step_started"
	EventStepCompleted   AuditEvent = "step_completed"
	EventStepRetried     AuditEvent = "step_retried"
	EventStepFailed      AuditEvent = "step_failed"
	EventStepAwaiting    AuditEvent = "step_awaiting_authority"
	EventStepConfirmed   AuditEvent = "step_confirmed_by_authority"
	EventStepEscalated   AuditEvent = "step_escalated_stale"
)

// Topic is the Kafka topic audit events are published to.
const Topic = "benefitflow.audit.v1"

// Sink receives audit events. Implementations: in-memory store for tests,
// Kafka sink for production fan-out.
type Sink interface {
	Append(ctx context.Context, e Event) error
}
