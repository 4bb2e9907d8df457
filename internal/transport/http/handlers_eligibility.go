// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and encode; no business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"benefitflow/internal/eligibility"
	"benefitflow/internal/platform/middleware"
	"benefitflow/internal/transport/http/shared"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
	"benefitflow/pkg/platform/httputil"
)

// EligibilityService is the slice of the eligibility service the transport
// needs. Returns domain objects, not HTTP response DTOs.
type EligibilityService interface {
	EvaluateEligibility(ctx context.Context, profile *eligibility.Profile, schemeIDs []id.SchemeID, asOf time.Time) ([]eligibility.Result, error)
	FindAlternatives(ctx context.Context, rejectedID id.SchemeID, profile *eligibility.Profile, maxResults int, asOf time.Time) ([]eligibility.Alternative, error)
}

type EligibilityHandler struct {
	service EligibilityService
	logger  *slog.Logger
}

func NewEligibilityHandler(service EligibilityService, logger *slog.Logger) *EligibilityHandler {
	return &EligibilityHandler{service: service, logger: logger}
}

func (h *EligibilityHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[evaluateRequest](r)
	if err != nil {
		shared.WriteError(w, badBody(err))
		return
	}

	profile, err := req.Profile.toProfile()
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

	results, err := h.service.EvaluateEligibility(ctx, profile, schemeIDs, asOf)
	if err != nil {
		h.logger.ErrorContext(ctx, "eligibility evaluation failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, evaluateResponse{
		Results:     results,
		EvaluatedAt: asOf,
	})
}

func (h *EligibilityHandler) HandleAlternatives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[alternativesRequest](r)
	if err != nil {
		shared.WriteError(w, badBody(err))
		return
	}

	profile, err := req.Profile.toProfile()
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = 5
	}

	alternatives, err := h.service.FindAlternatives(ctx, id.SchemeID(req.RejectedSchemeID), profile, maxResults, asOf)
	if err != nil {
		h.logger.ErrorContext(ctx, "alternative lookup failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"scheme_id", req.RejectedSchemeID,
		)
		shared.WriteError(w, err)
		return
	}

	if alternatives == nil {
		alternatives = []eligibility.Alternative{}
	}
	httputil.WriteJSON(w, http.StatusOK, alternativesResponse{Alternatives: alternatives})
}

// badBody keeps the domain code of validation errors raised by request
// Validate methods and downgrades raw decode errors to bad_request.
func badBody(err error) error {
	if dErrors.HasCode(err, dErrors.CodeBadRequest) || dErrors.HasCode(err, dErrors.CodeValidation) {
		return err
	}
	return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
}
