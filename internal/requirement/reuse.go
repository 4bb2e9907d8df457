package requirement

import (
	"time"

	docmodels "benefitflow/internal/documents/models"
	id "benefitflow/pkg/domain"
)

// Resolve decides, per graph node, whether the profile's held documents
// satisfy it. Read-only: nothing here mutates the held set.
//
// A held document matches when its type matches, it has not been superseded,
// and it is not rejected. Among matches the latest-expiring one wins, with
// verified documents preferred over pending ones. A match that is expired at
// asOf, or expires within the grace window, resolves to renew-expiring; a
// valid match outside the window to reuse-existing; no match to fetch-new.
func Resolve(graph *Graph, held []*docmodels.HeldDocument, asOf time.Time, graceWindow time.Duration) []Resolution {
	byType := make(map[id.DocumentTypeID][]*docmodels.HeldDocument)
	for _, doc := range held {
		if !doc.Usable() || doc.SupersededBy != nil {
			continue
		}
		byType[doc.Type] = append(byType[doc.Type], doc)
	}

	out := make([]Resolution, 0, len(graph.TopoOrder))
	for _, t := range graph.TopoOrder {
		out = append(out, resolveNode(t, byType[t], asOf, graceWindow))
	}
	return out
}

func resolveNode(t id.DocumentTypeID, matches []*docmodels.HeldDocument, asOf time.Time, graceWindow time.Duration) Resolution {
	best := bestMatch(matches)
	if best == nil {
		return Resolution{Type: t, Decision: DecisionFetchNew}
	}

	docID := best.ID
	if !best.ValidAt(asOf) || best.ExpiringWithin(asOf, graceWindow) {
		return Resolution{
			Type:            t,
			Decision:        DecisionRenewExpiring,
			MatchedDocument: &docID,
			ExpiresAt:       best.ExpiresAt,
		}
	}
	return Resolution{
		Type:            t,
		Decision:        DecisionReuseExisting,
		MatchedDocument: &docID,
		ExpiresAt:       best.ExpiresAt,
	}
}

// bestMatch prefers verified over pending, then the latest expiry (unbounded
// counts as latest), then the most recent issue date as the tiebreak.
func bestMatch(matches []*docmodels.HeldDocument) *docmodels.HeldDocument {
	var best *docmodels.HeldDocument
	for _, doc := range matches {
		if best == nil || better(doc, best) {
			best = doc
		}
	}
	return best
}

func better(a, b *docmodels.HeldDocument) bool {
	aVerified := a.Verification == docmodels.VerificationVerified
	bVerified := b.Verification == docmodels.VerificationVerified
	if aVerified != bVerified {
		return aVerified
	}
	switch {
	case a.ExpiresAt == nil && b.ExpiresAt != nil:
		return true
	case a.ExpiresAt != nil && b.ExpiresAt == nil:
		return false
	case a.ExpiresAt != nil && b.ExpiresAt != nil && !a.ExpiresAt.Equal(*b.ExpiresAt):
		return a.ExpiresAt.After(*b.ExpiresAt)
	}
	return a.IssuedAt.After(b.IssuedAt)
}
