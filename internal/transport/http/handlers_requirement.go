package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"benefitflow/internal/platform/middleware"
	"benefitflow/internal/requirement"
	"benefitflow/internal/transport/http/shared"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/httputil"
)

// RequirementService builds requirement graphs and reuse resolutions.
type RequirementService interface {
	BuildGraph(ctx context.Context, schemeIDs []id.SchemeID) (*requirement.Graph, error)
	ResolveReuse(ctx context.Context, profileID id.ProfileID, schemeIDs []id.SchemeID, asOf time.Time) (*requirement.Graph, []requirement.Resolution, error)
}

type RequirementHandler struct {
	service RequirementService
	logger  *slog.Logger
}

func NewRequirementHandler(service RequirementService, logger *slog.Logger) *RequirementHandler {
	return &RequirementHandler{service: service, logger: logger}
}

func (h *RequirementHandler) HandleGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[graphRequest](r)
	if err != nil {
		shared.WriteError(w, badBody(err))
		return
	}
	schemeIDs, err := parseSchemeIDs(req.SchemeIDs)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	graph, err := h.service.BuildGraph(ctx, schemeIDs)
	if err != nil {
		h.logger.ErrorContext(ctx, "graph build failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toGraphResponse(graph))
}

func (h *RequirementHandler) HandleReuse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[reuseRequest](r)
	if err != nil {
		shared.WriteError(w, badBody(err))
		return
	}
	profileID, err := id.ParseProfileID(req.ProfileID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	schemeIDs, err := parseSchemeIDs(req.SchemeIDs)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	graph, resolutions, err := h.service.ResolveReuse(ctx, profileID, schemeIDs, asOf)
	if err != nil {
		h.logger.ErrorContext(ctx, "reuse resolution failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"profile_id", profileID,
		)
		shared.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toReuseResponse(graph, resolutions))
}
