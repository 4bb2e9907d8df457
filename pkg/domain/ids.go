// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "benefitflow/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing ProfileID where WorkflowID is expected.
type (
	ProfileID  uuid.UUID
	WorkflowID uuid.UUID
	StepID     uuid.UUID
)

// SchemeID identifies a benefit scheme in the catalog (e.g., "old-age-pension").
type SchemeID string

// DocumentTypeID identifies a document type in the catalog (e.g., "proof-of-address").
type DocumentTypeID string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseProfileID(s string) (ProfileID, error) {
	id, err := parseUUID(s, "profile ID")
	return ProfileID(id), err
}

func ParseWorkflowID(s string) (WorkflowID, error) {
	id, err := parseUUID(s, "workflow ID")
	return WorkflowID(id), err
}

func ParseStepID(s string) (StepID, error) {
	id, err := parseUUID(s, "step ID")
	return StepID(id), err
}

func ParseSchemeID(s string) (SchemeID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "scheme ID cannot be empty")
	}
	return SchemeID(s), nil
}

func ParseDocumentTypeID(s string) (DocumentTypeID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "document type ID cannot be empty")
	}
	return DocumentTypeID(s), nil
}

// New functions - for creating fresh identifiers at the service layer.

func NewWorkflowID() WorkflowID { return WorkflowID(uuid.New()) }
func NewStepID() StepID         { return StepID(uuid.New()) }

// String methods - for logging and debugging.

func (id ProfileID) String() string      { return uuid.UUID(id).String() }
func (id WorkflowID) String() string     { return uuid.UUID(id).String() }
func (id StepID) String() string         { return uuid.UUID(id).String() }
func (id SchemeID) String() string       { return string(id) }
func (id DocumentTypeID) String() string { return string(id) }

// IsNil checks - used for service-layer validation.

func (id ProfileID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id WorkflowID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id StepID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id SchemeID) IsNil() bool       { return id == "" }
func (id DocumentTypeID) IsNil() bool { return id == "" }

// parseUUID is the shared validation logic. Nil UUIDs are allowed here; use
// IsNil() at the service layer so store lookups can return proper "not found"
// errors for consistency.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	return id, nil
}
