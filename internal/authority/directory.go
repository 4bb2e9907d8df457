// Package authority provides directory adapters resolving the issuing
// authority for a document type.
package authority

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"benefitflow/internal/workflow/ports"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/sentinel"
)

// StaticDirectory serves authority contacts from an in-memory table. Suited
// to deployments where the authority registry is configuration, not a live
// upstream.
type StaticDirectory struct {
	mu       sync.RWMutex
	contacts map[id.DocumentTypeID]ports.Contact
}

func NewStatic(contacts map[id.DocumentTypeID]ports.Contact) *StaticDirectory {
	if contacts == nil {
		contacts = make(map[id.DocumentTypeID]ports.Contact)
	}
	return &StaticDirectory{contacts: contacts}
}

// LoadStatic reads a directory table from a JSON file keyed by document type.
func LoadStatic(path string) (*StaticDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authority directory: %w", err)
	}
	var contacts map[id.DocumentTypeID]ports.Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, fmt.Errorf("decode authority directory: %w", err)
	}
	return NewStatic(contacts), nil
}

// Register adds or replaces the contact for a document type.
func (d *StaticDirectory) Register(docType id.DocumentTypeID, contact ports.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.contacts[docType] = contact
}

func (d *StaticDirectory) Contact(_ context.Context, docType id.DocumentTypeID) (*ports.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contact, ok := d.contacts[docType]
	if !ok {
		return nil, fmt.Errorf("authority for %s: %w", docType, sentinel.ErrNotFound)
	}
	c := contact
	return &c, nil
}
