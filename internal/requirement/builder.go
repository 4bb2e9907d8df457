package requirement

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"benefitflow/internal/catalog"
	catmodels "benefitflow/internal/catalog/models"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
	"benefitflow/pkg/platform/sentinel"
)

// Build assembles the requirement graph for a set of selected schemes.
//
// Required documents are unioned across schemes and their prerequisite chains
// pulled in recursively, one node per document type no matter how many paths
// reach it. A document type the catalog does not know is a validation error
// naming the id. Cycles fail the build with every participant named.
func Build(ctx context.Context, schemes []*catmodels.Scheme, store catalog.Store) (*Graph, error) {
	g := &Graph{
		Nodes: make(map[id.DocumentTypeID]*Node),
		Edges: make(map[id.DocumentTypeID][]id.DocumentTypeID),
	}

	for _, scheme := range schemes {
		for _, req := range scheme.RequiredDocs {
			if err := addSubtree(ctx, g, store, req.Type); err != nil {
				return nil, err
			}
			node := g.Nodes[req.Type]
			node.RequiredBy = appendScheme(node.RequiredBy, scheme.ID)
			if req.Mandatory {
				node.Mandatory = true
			}
		}
	}

	propagateMandatory(g)

	if err := g.finalize(); err != nil {
		return nil, err
	}
	return g, nil
}

// addSubtree ensures t and everything it transitively requires are present.
// Already-known nodes stop the recursion, which also bounds it on cyclic
// data; the cycle itself is reported by finalize, not here.
func addSubtree(ctx context.Context, g *Graph, store catalog.Store, t id.DocumentTypeID) error {
	if _, known := g.Nodes[t]; known {
		return nil
	}

	docType, err := store.DocumentType(ctx, t)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("unknown document type %q in requirement chain", t))
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "document type lookup failed")
	}

	g.Nodes[t] = &Node{
		Type:              docType.ID,
		Category:          docType.Category,
		Validity:          docType.Validity,
		Prerequisites:     sortedTypes(docType.Prerequisites),
		RequiresAuthority: docType.RequiresAuthority,
		Automatable:       docType.Automatable,
		EstimatedEffort:   docType.EstimatedEffort,
	}

	for _, prereq := range docType.Prerequisites {
		if err := addSubtree(ctx, g, store, prereq); err != nil {
			return err
		}
		g.Edges[prereq] = appendEdge(g.Edges[prereq], t)
	}
	return nil
}

// propagateMandatory walks mandatory nodes down their prerequisite chains:
// you cannot skip a prerequisite of something you must have.
func propagateMandatory(g *Graph) {
	var mark func(t id.DocumentTypeID)
	mark = func(t id.DocumentTypeID) {
		node, ok := g.Nodes[t]
		if !ok {
			return
		}
		for _, prereq := range node.Prerequisites {
			p, ok := g.Nodes[prereq]
			if !ok || p.Mandatory {
				continue
			}
			p.Mandatory = true
			mark(prereq)
		}
	}
	for _, t := range sortedNodeTypes(g.Nodes) {
		if g.Nodes[t].Mandatory {
			mark(t)
		}
	}
}

func appendScheme(list []id.SchemeID, s id.SchemeID) []id.SchemeID {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	list = append(list, s)
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

func appendEdge(list []id.DocumentTypeID, t id.DocumentTypeID) []id.DocumentTypeID {
	for _, existing := range list {
		if existing == t {
			return list
		}
	}
	list = append(list, t)
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
