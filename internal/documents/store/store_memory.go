package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"benefitflow/internal/documents/models"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

// InMemoryStore keeps held documents in memory, indexed by profile.
type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*models.HeldDocument
	byProfile map[id.ProfileID][]uuid.UUID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[uuid.UUID]*models.HeldDocument),
		byProfile: make(map[id.ProfileID][]uuid.UUID),
	}
}

// Seed inserts a document record. Test and fixture helper.
func (s *InMemoryStore) Seed(doc *models.HeldDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.byID[doc.ID] = &cp
	s.byProfile[doc.ProfileID] = append(s.byProfile[doc.ProfileID], doc.ID)
}

func (s *InMemoryStore) ListByProfile(_ context.Context, profileID id.ProfileID) ([]*models.HeldDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byProfile[profileID]
	out := make([]*models.HeldDocument, 0, len(ids))
	for _, docID := range ids {
		if doc, ok := s.byID[docID]; ok {
			cp := *doc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, docID uuid.UUID) (*models.HeldDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.byID[docID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", docID, sentinel.ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (s *InMemoryStore) Renew(_ context.Context, oldID uuid.UUID, renewal *models.HeldDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[oldID]
	if !ok {
		return fmt.Errorf("document %s: %w", oldID, sentinel.ErrNotFound)
	}
	if old.SupersededBy != nil {
		return fmt.Errorf("document %s already renewed: %w", oldID, sentinel.ErrInvalidState)
	}

	cp := *renewal
	s.byID[renewal.ID] = &cp
	s.byProfile[renewal.ProfileID] = append(s.byProfile[renewal.ProfileID], renewal.ID)

	renewalID := renewal.ID
	old.SupersededBy = &renewalID
	return nil
}
