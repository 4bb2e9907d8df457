package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefitflow/internal/workflow/models"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

func seedWorkflow(t *testing.T, s *InMemoryStore) *models.Workflow {
	t.Helper()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	wf := &models.Workflow{
		ID:        id.NewWorkflowID(),
		ProfileID: mustProfile(t),
		Steps: []*models.Step{
			{ID: id.NewStepID(), DocumentType: "identity", State: models.StateReady},
		},
		Edges:     map[id.DocumentTypeID][]id.DocumentTypeID{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.Create(context.Background(), wf))
	return wf
}

func mustProfile(t *testing.T) id.ProfileID {
	t.Helper()
	pid, err := id.ParseProfileID("2a6c4f0e-0d5b-4b8a-9a44-1f2e3d4c5b6a")
	require.NoError(t, err)
	return pid
}

func TestInMemoryStoreCAS(t *testing.T) {
	ctx := context.Background()

	t.Run("update bumps the version", func(t *testing.T) {
		s := NewInMemory()
		wf := seedWorkflow(t, s)
		require.NoError(t, s.Update(ctx, wf, 1))
		assert.Equal(t, int64(2), wf.Version)

		stored, err := s.Get(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stored.Version)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		s := NewInMemory()
		wf := seedWorkflow(t, s)
		require.NoError(t, s.Update(ctx, wf, 1))
		err := s.Update(ctx, wf, 1)
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("concurrent writers produce exactly one winner per version", func(t *testing.T) {
		s := NewInMemory()
		wf := seedWorkflow(t, s)

		const writers = 8
		var wg sync.WaitGroup
		results := make([]error, writers)
		for i := 0; i < writers; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				cp, err := s.Get(ctx, wf.ID)
				if err != nil {
					results[i] = err
					return
				}
				results[i] = s.Update(ctx, cp, 1)
			}()
		}
		wg.Wait()

		winners := 0
		for _, err := range results {
			if err == nil {
				winners++
			} else {
				assert.ErrorIs(t, err, sentinel.ErrConflict)
			}
		}
		assert.Equal(t, 1, winners)
	})

	t.Run("stored state is isolated from caller mutation", func(t *testing.T) {
		s := NewInMemory()
		wf := seedWorkflow(t, s)
		wf.Steps[0].State = models.StateFailed

		stored, err := s.Get(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateReady, stored.Steps[0].State)
	})
}

func TestInMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("get missing workflow is not found", func(t *testing.T) {
		s := NewInMemory()
		_, err := s.Get(ctx, id.NewWorkflowID())
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("list awaiting before cutoff", func(t *testing.T) {
		s := NewInMemory()
		wf := seedWorkflow(t, s)

		lastUpdate := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		wf.Steps[0].State = models.StateAwaitingAuthority
		wf.Steps[0].LastExternalUpdate = &lastUpdate
		require.NoError(t, s.Update(ctx, wf, 1))

		stale, err := s.ListAwaitingBefore(ctx, time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, wf.ID, stale[0].ID)

		fresh, err := s.ListAwaitingBefore(ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Empty(t, fresh)
	})

	t.Run("escalated steps are excluded from the stale scan", func(t *testing.T) {
		s := NewInMemory()
		wf := seedWorkflow(t, s)

		lastUpdate := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		wf.Steps[0].State = models.StateAwaitingAuthority
		wf.Steps[0].LastExternalUpdate = &lastUpdate
		wf.Steps[0].EscalationRequired = true
		require.NoError(t, s.Update(ctx, wf, 1))

		stale, err := s.ListAwaitingBefore(ctx, time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Empty(t, stale)
	})
}
