package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"benefitflow/internal/platform/middleware"
	"benefitflow/internal/requirement"
	"benefitflow/internal/transport/http/shared"
	"benefitflow/internal/workflow/models"
	"benefitflow/internal/workflow/ports"
	id "benefitflow/pkg/domain"
	"benefitflow/pkg/platform/httputil"
)

// WorkflowService is the orchestrator surface the transport uses.
type WorkflowService interface {
	CreateWorkflow(ctx context.Context, profileID id.ProfileID, schemeIDs []id.SchemeID, graph *requirement.Graph, resolutions []requirement.Resolution) (*models.Workflow, error)
	AdvanceStep(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID, expectedVersion int64) (*models.Workflow, *ports.Contact, error)
	ConfirmAuthority(ctx context.Context, workflowID id.WorkflowID, stepID id.StepID, expectedVersion int64, approved bool, reason string) (*models.Workflow, error)
	Get(ctx context.Context, workflowID id.WorkflowID) (*models.Workflow, models.Status, error)
	ListByProfile(ctx context.Context, profileID id.ProfileID) ([]*models.Workflow, error)
	Delete(ctx context.Context, workflowID id.WorkflowID) error
}

type WorkflowHandler struct {
	workflows    WorkflowService
	requirements RequirementService
	logger       *slog.Logger
}

func NewWorkflowHandler(workflows WorkflowService, requirements RequirementService, logger *slog.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		workflows:    workflows,
		requirements: requirements,
		logger:       logger,
	}
}

// HandleCreate derives the requirement graph and reuse decisions for the
// selected schemes, then seeds the workflow from them in one request.
func (h *WorkflowHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.DecodeJSON[createWorkflowRequest](r)
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

	graph, resolutions, err := h.requirements.ResolveReuse(ctx, profileID, schemeIDs, asOf)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow planning failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"profile_id", profileID,
		)
		shared.WriteError(w, err)
		return
	}

	wf, err := h.workflows.CreateWorkflow(ctx, profileID, schemeIDs, graph, resolutions)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow creation failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"profile_id", profileID,
		)
		shared.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toWorkflowResponse(wf, nil))
}

func (h *WorkflowHandler) HandleAdvanceStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workflowID, stepID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	req, err := httputil.DecodeJSON[advanceStepRequest](r)
	if err != nil {
		shared.WriteError(w, badBody(err))
		return
	}

	wf, contact, err := h.workflows.AdvanceStep(ctx, workflowID, stepID, req.ExpectedVersion)
	if err != nil {
		h.logger.WarnContext(ctx, "step advance rejected",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"workflow_id", workflowID,
			"step_id", stepID,
		)
		shared.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toWorkflowResponse(wf, contact))
}

func (h *WorkflowHandler) HandleConfirmStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workflowID, stepID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	req, err := httputil.DecodeJSON[confirmStepRequest](r)
	if err != nil {
		shared.WriteError(w, badBody(err))
		return
	}

	wf, err := h.workflows.ConfirmAuthority(ctx, workflowID, stepID, req.ExpectedVersion, req.Approved, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "authority confirmation rejected",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"workflow_id", workflowID,
			"step_id", stepID,
		)
		shared.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toWorkflowResponse(wf, nil))
}

func (h *WorkflowHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	wf, _, err := h.workflows.Get(ctx, workflowID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toWorkflowResponse(wf, nil))
}

func (h *WorkflowHandler) HandleListByProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profileID, err := id.ParseProfileID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	wfs, err := h.workflows.ListByProfile(ctx, profileID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	resp := workflowListResponse{Workflows: make([]workflowResponse, 0, len(wfs))}
	for _, wf := range wfs {
		resp.Workflows = append(resp.Workflows, toWorkflowResponse(wf, nil))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *WorkflowHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.workflows.Delete(ctx, workflowID); err != nil {
		h.logger.WarnContext(ctx, "workflow deletion rejected",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"workflow_id", workflowID,
		)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkflowHandler) pathIDs(w http.ResponseWriter, r *http.Request) (id.WorkflowID, id.StepID, bool) {
	workflowID, err := id.ParseWorkflowID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return id.WorkflowID{}, id.StepID{}, false
	}
	stepID, err := id.ParseStepID(chi.URLParam(r, "stepID"))
	if err != nil {
		shared.WriteError(w, err)
		return id.WorkflowID{}, id.StepID{}, false
	}
	return workflowID, stepID, true
}
