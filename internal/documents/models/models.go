// Package models defines held-document records. Documents are read-shared
// across workflows; renewal produces a new record and a pointer swap, never an
// in-place mutation.
package models

import (
	"time"

	"github.com/google/uuid"

	id "benefitflow/pkg/domain"
)

// VerificationStatus tracks whether an authority has vouched for a document.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// HeldDocument is one document a profile already possesses.
type HeldDocument struct {
	ID        uuid.UUID
	ProfileID id.ProfileID
	Type      id.DocumentTypeID
	IssuedAt  time.Time
	// ExpiresAt nil means the document never expires.
	ExpiresAt    *time.Time
	Verification VerificationStatus
	// SupersededBy points at the renewal record once one exists.
	SupersededBy *uuid.UUID
}

// ValidAt reports whether the document has not expired as of the instant.
func (d *HeldDocument) ValidAt(asOf time.Time) bool {
	return d.ExpiresAt == nil || asOf.Before(*d.ExpiresAt)
}

// ExpiringWithin reports whether the document expires inside the grace window
// starting at asOf. Unbounded documents never expire.
func (d *HeldDocument) ExpiringWithin(asOf time.Time, window time.Duration) bool {
	if d.ExpiresAt == nil {
		return false
	}
	return d.ExpiresAt.Before(asOf.Add(window))
}

// Usable reports whether the document can back a requirement node at all:
// rejected documents never match.
func (d *HeldDocument) Usable() bool {
	return d.Verification != VerificationRejected
}
