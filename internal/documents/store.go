// Package documents provides held-document lookups by profile. The document
// content itself (files, scans) lives elsewhere; this store tracks metadata
// used for reuse classification.
package documents

import (
	"context"

	"github.com/google/uuid"

	"benefitflow/internal/documents/models"
	id "benefitflow/pkg/domain"
)

// Store is the held-document port.
type Store interface {
	// ListByProfile returns every document a profile holds, including expired
	// ones; the reuse resolver classifies them.
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.HeldDocument, error)

	// Get loads a single document record.
	Get(ctx context.Context, docID uuid.UUID) (*models.HeldDocument, error)

	// Renew inserts the renewal record and marks the old record superseded.
	// The old record is never mutated beyond the SupersededBy pointer swap.
	Renew(ctx context.Context, oldID uuid.UUID, renewal *models.HeldDocument) error
}
