package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"benefitflow/internal/workflow/models"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

// InMemoryStore keeps workflows in memory with the same compare-and-swap
// semantics as the postgres store, so service tests exercise real conflict
// paths.
type InMemoryStore struct {
	mu        sync.RWMutex
	workflows map[id.WorkflowID]*models.Workflow
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{workflows: make(map[id.WorkflowID]*models.Workflow)}
}

func (s *InMemoryStore) Create(_ context.Context, wf *models.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workflows[wf.ID]; exists {
		return fmt.Errorf("workflow %s: %w", wf.ID, sentinel.ErrConflict)
	}
	s.workflows[wf.ID] = deepCopy(wf)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, workflowID id.WorkflowID) (*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, sentinel.ErrNotFound)
	}
	return deepCopy(wf), nil
}

func (s *InMemoryStore) Update(_ context.Context, wf *models.Workflow, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.workflows[wf.ID]
	if !ok {
		return fmt.Errorf("workflow %s: %w", wf.ID, sentinel.ErrNotFound)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("workflow %s at version %d, expected %d: %w",
			wf.ID, current.Version, expectedVersion, sentinel.ErrConflict)
	}
	next := deepCopy(wf)
	next.Version = expectedVersion + 1
	s.workflows[wf.ID] = next
	wf.Version = next.Version
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, workflowID id.WorkflowID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[workflowID]; !ok {
		return fmt.Errorf("workflow %s: %w", workflowID, sentinel.ErrNotFound)
	}
	delete(s.workflows, workflowID)
	return nil
}

func (s *InMemoryStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Workflow
	for _, wf := range s.workflows {
		if wf.ProfileID == profileID {
			out = append(out, deepCopy(wf))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemoryStore) ListAwaitingBefore(_ context.Context, cutoff time.Time) ([]*models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Workflow
	for _, wf := range s.workflows {
		for _, step := range wf.Steps {
			if step.State == models.StateAwaitingAuthority &&
				!step.EscalationRequired &&
				step.LastExternalUpdate != nil &&
				step.LastExternalUpdate.Before(cutoff) {
				out = append(out, deepCopy(wf))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// deepCopy isolates stored state from caller mutation.
func deepCopy(wf *models.Workflow) *models.Workflow {
	cp := *wf
	cp.Steps = make([]*models.Step, len(wf.Steps))
	for i, step := range wf.Steps {
		stepCopy := *step
		if step.NextAttemptAt != nil {
			t := *step.NextAttemptAt
			stepCopy.NextAttemptAt = &t
		}
		if step.LastExternalUpdate != nil {
			t := *step.LastExternalUpdate
			stepCopy.LastExternalUpdate = &t
		}
		cp.Steps[i] = &stepCopy
	}
	cp.SchemeIDs = append([]id.SchemeID(nil), wf.SchemeIDs...)
	cp.Edges = make(map[id.DocumentTypeID][]id.DocumentTypeID, len(wf.Edges))
	for k, v := range wf.Edges {
		cp.Edges[k] = append([]id.DocumentTypeID(nil), v...)
	}
	return &cp
}
