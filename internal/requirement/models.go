// Package requirement derives the document requirement graph for a set of
// selected schemes and decides, per document type, whether a profile's held
// documents can satisfy it.
package requirement

import (
	"time"

	"github.com/google/uuid"

	id "benefitflow/pkg/domain"
)

// Node is one document type that must be satisfied before the selected
// schemes can be granted. Nodes are deduplicated: a document type required by
// several schemes, or reachable through several prerequisite chains, appears
// exactly once.
type Node struct {
	Type     id.DocumentTypeID `json:"type"`
	Category string            `json:"category"`
	// Mandatory is true when any requiring scheme marks the document
	// mandatory, or when the node is a prerequisite of a mandatory node.
	Mandatory bool `json:"mandatory"`
	// Validity nil means documents of this type never expire.
	Validity          *time.Duration      `json:"validity,omitempty"`
	Prerequisites     []id.DocumentTypeID `json:"prerequisites,omitempty"`
	RequiresAuthority bool                `json:"requires_authority"`
	Automatable       bool                `json:"automatable"`
	EstimatedEffort   time.Duration       `json:"estimated_effort"`
	// RequiredBy lists the schemes that name this document directly.
	// Prerequisite-only nodes have an empty list.
	RequiredBy []id.SchemeID `json:"required_by,omitempty"`
}

// Graph is the deduplicated prerequisite DAG over document types.
//
// Edges run prerequisite → dependent, so a topological walk of TopoOrder
// always visits a document before anything that needs it.
type Graph struct {
	Nodes map[id.DocumentTypeID]*Node               `json:"nodes"`
	Edges map[id.DocumentTypeID][]id.DocumentTypeID `json:"edges"`
	// TopoOrder is deterministic: Kahn's algorithm with a lexical tiebreak,
	// so the same node set always yields the same order.
	TopoOrder []id.DocumentTypeID `json:"topo_order"`
}

// Dependents returns the document types that list t as a prerequisite.
func (g *Graph) Dependents(t id.DocumentTypeID) []id.DocumentTypeID {
	return g.Edges[t]
}

// ReuseDecision says what to do about one requirement node given the
// profile's held documents.
type ReuseDecision string

const (
	// DecisionReuseExisting: a held document satisfies the node as-is.
	DecisionReuseExisting ReuseDecision = "reuse-existing"
	// DecisionRenewExpiring: a held document matches but is expired or
	// expires within the grace window; renewal is cheaper than starting over.
	DecisionRenewExpiring ReuseDecision = "renew-expiring"
	// DecisionFetchNew: nothing held matches.
	DecisionFetchNew ReuseDecision = "fetch-new"
)

// Resolution pairs a decision with the held document backing it.
// MatchedDocument is nil for fetch-new.
type Resolution struct {
	Type            id.DocumentTypeID `json:"type"`
	Decision        ReuseDecision     `json:"decision"`
	MatchedDocument *uuid.UUID        `json:"matched_document,omitempty"`
	// ExpiresAt echoes the matched document's expiry for renew decisions.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}
