// Package catalog exposes read-only access to the scheme and document-type
// catalog. The catalog's authoring pipeline lives outside this service; we
// only query by id and by category.
package catalog

import (
	"context"

	"benefitflow/internal/catalog/models"
	id "benefitflow/pkg/domain"
)

// Store is the read-only catalog port. Implementations return
// sentinel.ErrNotFound (optionally wrapped) for missing entries.
type Store interface {
	// Scheme loads one scheme by id.
	Scheme(ctx context.Context, schemeID id.SchemeID) (*models.Scheme, error)

	// Schemes loads several schemes, failing on the first missing id.
	Schemes(ctx context.Context, schemeIDs []id.SchemeID) ([]*models.Scheme, error)

	// SchemesByCategory lists every scheme carrying the given category tag.
	SchemesByCategory(ctx context.Context, category string) ([]*models.Scheme, error)

	// AllSchemes lists the full catalog.
	AllSchemes(ctx context.Context) ([]*models.Scheme, error)

	// DocumentType loads one document type by id.
	DocumentType(ctx context.Context, docTypeID id.DocumentTypeID) (*models.DocumentType, error)

	// Version identifies the catalog snapshot. Eligibility cache entries are
	// keyed on it so a catalog bump invalidates them.
	Version(ctx context.Context) (string, error)
}
