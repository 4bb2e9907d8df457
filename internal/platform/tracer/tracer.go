// Package tracer provides a lightweight tracing abstraction so the evaluation
// and orchestration paths can emit distributed traces without depending on
// OpenTelemetry APIs throughout the codebase.
//
// Implementations:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans for distributed tracing.
// Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

func Float64(key string, value float64) Attribute { return Attribute{Key: key, Value: value} }

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashProfileFields returns a short SHA-256 hash of a profile's canonical field
// encoding so traces can be correlated without exposing profile contents.
func HashProfileFields(canonical string) string {
	if canonical == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(hash[:8])
}

// Span names used across the service.
const (
	SpanEvaluate     = "eligibility.evaluate"
	SpanEvaluateOne  = "eligibility.evaluate_scheme"
	SpanAlternatives = "eligibility.alternatives"
	SpanBuildGraph   = "requirement.build_graph"
	SpanResolveReuse = "requirement.resolve_reuse"
	SpanAdvanceStep  = "workflow.advance_step"
	SpanCreateFlow   = "workflow.create"
)

// Attribute keys used across the service.
const (
	AttrSchemeCount = "scheme_count"
	AttrSchemeID    = "scheme_id"
	AttrCacheHit    = "cache.hit"
	AttrWorkflowID  = "workflow_id"
	AttrStepID      = "step_id"
	AttrStepState   = "step_state"
	AttrNodeCount   = "node_count"
)
