package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"benefitflow/internal/platform/health"
	"benefitflow/internal/platform/metrics"
	"benefitflow/internal/platform/middleware"
)

// Handlers groups the per-domain HTTP handlers mounted by the router.
type Handlers struct {
	Eligibility *EligibilityHandler
	Requirement *RequirementHandler
	Workflow    *WorkflowHandler
	Health      *health.Handler
}

// NewRouter wires all public endpoints with the shared middleware stack.
func NewRouter(h Handlers, m *metrics.Metrics, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	if m != nil {
		r.Use(middleware.Latency(m))
	}
	r.Use(middleware.Timeout(30 * time.Second))

	if h.Health != nil {
		h.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Eligibility endpoints
		r.Post("/eligibility/evaluate", h.Eligibility.HandleEvaluate)
		r.Post("/eligibility/alternatives", h.Eligibility.HandleAlternatives)

		// Requirement planning endpoints
		r.Post("/requirements/graph", h.Requirement.HandleGraph)
		r.Post("/requirements/reuse", h.Requirement.HandleReuse)

		// Workflow orchestration endpoints
		r.Post("/workflows", h.Workflow.HandleCreate)
		r.Get("/workflows/{id}", h.Workflow.HandleGet)
		r.Delete("/workflows/{id}", h.Workflow.HandleDelete)
		r.Post("/workflows/{id}/steps/{stepID}/advance", h.Workflow.HandleAdvanceStep)
		r.Post("/workflows/{id}/steps/{stepID}/confirm", h.Workflow.HandleConfirmStep)
		r.Get("/profiles/{id}/workflows", h.Workflow.HandleListByProfile)
	})

	return r
}
