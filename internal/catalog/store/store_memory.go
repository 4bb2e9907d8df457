package store

import (
	"context"
	"fmt"
	"sync"

	"benefitflow/internal/catalog/models"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

// InMemoryStore holds a catalog snapshot in memory. Used in tests and for
// local runs seeded from fixtures.
type InMemoryStore struct {
	mu       sync.RWMutex
	version  string
	schemes  map[id.SchemeID]*models.Scheme
	docTypes map[id.DocumentTypeID]*models.DocumentType
}

// NewInMemory builds a store from a snapshot. The snapshot is copied so later
// mutation of the inputs cannot leak into served reads.
func NewInMemory(version string, schemes []*models.Scheme, docTypes []*models.DocumentType) *InMemoryStore {
	s := &InMemoryStore{
		version:  version,
		schemes:  make(map[id.SchemeID]*models.Scheme, len(schemes)),
		docTypes: make(map[id.DocumentTypeID]*models.DocumentType, len(docTypes)),
	}
	for _, sc := range schemes {
		cp := *sc
		s.schemes[sc.ID] = &cp
	}
	for _, dt := range docTypes {
		cp := *dt
		s.docTypes[dt.ID] = &cp
	}
	return s
}

// ReplaceSnapshot swaps the catalog content and version atomically.
// This is the only mutation the store supports; it models a catalog update
// delivered by the external authoring pipeline.
func (s *InMemoryStore) ReplaceSnapshot(version string, schemes []*models.Scheme, docTypes []*models.DocumentType) {
	fresh := NewInMemory(version, schemes, docTypes)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = fresh.version
	s.schemes = fresh.schemes
	s.docTypes = fresh.docTypes
}

func (s *InMemoryStore) Scheme(_ context.Context, schemeID id.SchemeID) (*models.Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schemes[schemeID]
	if !ok {
		return nil, fmt.Errorf("scheme %s: %w", schemeID, sentinel.ErrNotFound)
	}
	return sc, nil
}

func (s *InMemoryStore) Schemes(ctx context.Context, schemeIDs []id.SchemeID) ([]*models.Scheme, error) {
	out := make([]*models.Scheme, 0, len(schemeIDs))
	for _, sid := range schemeIDs {
		sc, err := s.Scheme(ctx, sid)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, nil
}

func (s *InMemoryStore) SchemesByCategory(_ context.Context, category string) ([]*models.Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Scheme
	for _, sc := range s.schemes {
		for _, c := range sc.Categories {
			if c == category {
				out = append(out, sc)
				break
			}
		}
	}
	return out, nil
}

func (s *InMemoryStore) AllSchemes(_ context.Context) ([]*models.Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Scheme, 0, len(s.schemes))
	for _, sc := range s.schemes {
		out = append(out, sc)
	}
	return out, nil
}

func (s *InMemoryStore) DocumentType(_ context.Context, docTypeID id.DocumentTypeID) (*models.DocumentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dt, ok := s.docTypes[docTypeID]
	if !ok {
		return nil, fmt.Errorf("document type %s: %w", docTypeID, sentinel.ErrNotFound)
	}
	return dt, nil
}

func (s *InMemoryStore) Version(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}
