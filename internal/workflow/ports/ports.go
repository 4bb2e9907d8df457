// Package ports declares the external collaborators the workflow orchestrator
// depends on. Implementations live at the edges; the service only sees these
// interfaces.
package ports

import (
	"context"

	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/audit"
)

// Contact is how to reach the authority responsible for a document type.
// Returned alongside authority failures as the manual pathway.
type Contact struct {
	Authority string `json:"authority"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	URL       string `json:"url,omitempty"`
}

// AuthorityDirectory resolves the issuing authority for a document type.
type AuthorityDirectory interface {
	// Contact returns sentinel.ErrNotFound when no authority is registered
	// for the type, sentinel.ErrUnavailable when the directory is down.
	Contact(ctx context.Context, docType id.DocumentTypeID) (*Contact, error)
}

// SubmissionOutcome classifies one automated submission attempt.
type SubmissionOutcome string

const (
	// SubmissionAccepted: the document request went through.
	SubmissionAccepted SubmissionOutcome = "accepted"
	// SubmissionTransient: worth retrying with backoff.
	SubmissionTransient SubmissionOutcome = "transient_failure"
	// SubmissionPermanent: retrying cannot help.
	SubmissionPermanent SubmissionOutcome = "permanent_failure"
)

// SubmissionRequest carries what the downstream system needs to file a
// document request on the profile's behalf.
type SubmissionRequest struct {
	ProfileID    id.ProfileID
	WorkflowID   id.WorkflowID
	StepID       id.StepID
	DocumentType id.DocumentTypeID
}

// SubmissionResult is the downstream verdict. Reason is human-readable and
// recorded on the step for failures.
type SubmissionResult struct {
	Outcome SubmissionOutcome
	Reason  string
}

// SubmissionClient files automated document requests. A non-nil error means
// the attempt itself could not be made and is treated as transient.
type SubmissionClient interface {
	Submit(ctx context.Context, req SubmissionRequest) (SubmissionResult, error)
}

// AuditEmitter records orchestration decisions. Satisfied by
// pkg/platform/audit/publisher.Publisher.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}
