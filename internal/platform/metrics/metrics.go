package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Eligibility metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationLatency  prometheus.Histogram
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	AlternativesServed prometheus.Counter

	// Requirement metrics
	GraphsBuilt    prometheus.Counter
	CyclesDetected prometheus.Counter
	ReuseDecisions *prometheus.CounterVec

	// Workflow metrics
	WorkflowsCreated prometheus.Counter
	WorkflowsDeleted prometheus.Counter
	StepTransitions  *prometheus.CounterVec
	StepRetries      prometheus.Counter
	StaleEscalations prometheus.Counter
	VersionConflicts prometheus.Counter

	// Transport
	EndpointLatency *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "benefitflow_evaluations_total",
			Help: "Total number of scheme eligibility evaluations",
		}, []string{"outcome"}),
		EvaluationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "benefitflow_evaluation_latency_seconds",
			Help:    "Latency of full eligibility evaluation requests",
			Buckets: prometheus.DefBuckets,
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_eligibility_cache_hits_total",
			Help: "Eligibility cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_eligibility_cache_misses_total",
			Help: "Eligibility cache misses",
		}),
		AlternativesServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_alternatives_served_total",
			Help: "Total number of alternative-scheme suggestions returned",
		}),
		GraphsBuilt: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_requirement_graphs_built_total",
			Help: "Requirement graphs successfully built",
		}),
		CyclesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_requirement_cycles_detected_total",
			Help: "Requirement graph builds rejected due to catalog cycles",
		}),
		ReuseDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "benefitflow_reuse_decisions_total",
			Help: "Document reuse decisions by classification",
		}, []string{"decision"}),
		WorkflowsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_workflows_created_total",
			Help: "Total number of workflows created",
		}),
		WorkflowsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_workflows_deleted_total",
			Help: "Total number of workflows abandoned by users",
		}),
		StepTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "benefitflow_step_transitions_total",
			Help: "Workflow step state transitions",
		}, []string{"to_state"}),
		StepRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_step_retries_total",
			Help: "Transient step failures returned to ready for retry",
		}),
		StaleEscalations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_stale_escalations_total",
			Help: "Awaiting-authority steps flagged for manual escalation",
		}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "benefitflow_version_conflicts_total",
			Help: "Workflow mutations rejected by optimistic concurrency",
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "benefitflow_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
