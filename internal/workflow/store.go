// Package workflow orchestrates document-acquisition workflows derived from
// requirement graphs. Workflows are durable: every mutation goes through the
// Store with optimistic concurrency on the aggregate version.
package workflow

import (
	"context"
	"time"

	"benefitflow/internal/workflow/models"
	id "benefitflow/pkg/domain"
)

// Store is the workflow persistence port.
//
// Update implements compare-and-swap: the write succeeds only when the stored
// version equals expectedVersion, and bumps the version by one. A lost race
// returns sentinel.ErrConflict; the caller re-reads and retries or surfaces
// the conflict.
type Store interface {
	Create(ctx context.Context, wf *models.Workflow) error
	Get(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, error)
	Update(ctx context.Context, wf *models.Workflow, expectedVersion int64) error
	Delete(ctx context.Context, workflowID id.WorkflowID) error
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Workflow, error)
	// ListAwaitingBefore returns workflows holding at least one
	// awaiting_authority step whose last external update is older than the
	// cutoff and not yet escalated. Feeds the stale sweep.
	ListAwaitingBefore(ctx context.Context, cutoff time.Time) ([]*models.Workflow, error)
}
