package httptransport

import (
	"time"

	"benefitflow/internal/eligibility"
	"benefitflow/internal/requirement"
	"benefitflow/internal/workflow/models"
	"benefitflow/internal/workflow/ports"
	id "benefitflow/pkg/domain"
	dErrors "benefitflow/pkg/domain-errors"
)

// profilePayload is the wire form of an evaluation profile. The profile id is
// optional for ad-hoc evaluations.
type profilePayload struct {
	ID       string                   `json:"id,omitempty"`
	Location string                   `json:"location,omitempty"`
	Fields   map[string]id.FieldValue `json:"fields"`
}

func (p *profilePayload) toProfile() (*eligibility.Profile, error) {
	profile := &eligibility.Profile{
		Location: p.Location,
		Fields:   p.Fields,
	}
	if p.Fields == nil {
		profile.Fields = map[string]id.FieldValue{}
	}
	if p.ID != "" {
		pid, err := id.ParseProfileID(p.ID)
		if err != nil {
			return nil, err
		}
		profile.ID = pid
	}
	return profile, nil
}

func parseSchemeIDs(raw []string) ([]id.SchemeID, error) {
	out := make([]id.SchemeID, 0, len(raw))
	for _, s := range raw {
		sid, err := id.ParseSchemeID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sid)
	}
	return out, nil
}

// parseAsOf defaults to now: callers replay historical evaluations by
// pinning the instant explicitly.
func parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, "as_of must be RFC 3339")
	}
	return t.UTC(), nil
}

type evaluateRequest struct {
	Profile   profilePayload `json:"profile"`
	SchemeIDs []string       `json:"scheme_ids"`
	AsOf      string         `json:"as_of,omitempty"`
}

func (r *evaluateRequest) Validate() error {
	if len(r.SchemeIDs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "scheme_ids must not be empty")
	}
	return nil
}

type evaluateResponse struct {
	Results     []eligibility.Result `json:"results"`
	EvaluatedAt time.Time            `json:"evaluated_at"`
}

type alternativesRequest struct {
	RejectedSchemeID string         `json:"rejected_scheme_id"`
	Profile          profilePayload `json:"profile"`
	MaxResults       int            `json:"max_results,omitempty"`
	AsOf             string         `json:"as_of,omitempty"`
}

func (r *alternativesRequest) Validate() error {
	if r.RejectedSchemeID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "rejected_scheme_id is required")
	}
	if r.MaxResults < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "max_results must not be negative")
	}
	return nil
}

type alternativesResponse struct {
	Alternatives []eligibility.Alternative `json:"alternatives"`
}

type graphRequest struct {
	SchemeIDs []string `json:"scheme_ids"`
}

func (r *graphRequest) Validate() error {
	if len(r.SchemeIDs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "scheme_ids must not be empty")
	}
	return nil
}

type graphNodePayload struct {
	Type              string   `json:"type"`
	Category          string   `json:"category"`
	Mandatory         bool     `json:"mandatory"`
	Prerequisites     []string `json:"prerequisites,omitempty"`
	RequiresAuthority bool     `json:"requires_authority"`
	Automatable       bool     `json:"automatable"`
	EstimatedEffort   string   `json:"estimated_effort"`
	RequiredBy        []string `json:"required_by,omitempty"`
}

type graphResponse struct {
	Nodes []graphNodePayload `json:"nodes"`
	Order []string           `json:"order"`
}

func toGraphResponse(g *requirement.Graph) graphResponse {
	resp := graphResponse{
		Nodes: make([]graphNodePayload, 0, len(g.Nodes)),
		Order: make([]string, 0, len(g.TopoOrder)),
	}
	for _, docType := range g.TopoOrder {
		node := g.Nodes[docType]
		payload := graphNodePayload{
			Type:              node.Type.String(),
			Category:          node.Category,
			Mandatory:         node.Mandatory,
			RequiresAuthority: node.RequiresAuthority,
			Automatable:       node.Automatable,
			EstimatedEffort:   node.EstimatedEffort.String(),
		}
		for _, p := range node.Prerequisites {
			payload.Prerequisites = append(payload.Prerequisites, p.String())
		}
		for _, s := range node.RequiredBy {
			payload.RequiredBy = append(payload.RequiredBy, s.String())
		}
		resp.Nodes = append(resp.Nodes, payload)
		resp.Order = append(resp.Order, docType.String())
	}
	return resp
}

type reuseRequest struct {
	ProfileID string   `json:"profile_id"`
	SchemeIDs []string `json:"scheme_ids"`
	AsOf      string   `json:"as_of,omitempty"`
}

func (r *reuseRequest) Validate() error {
	if r.ProfileID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "profile_id is required")
	}
	if len(r.SchemeIDs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "scheme_ids must not be empty")
	}
	return nil
}

type resolutionPayload struct {
	Type            string `json:"type"`
	Decision        string `json:"decision"`
	MatchedDocument string `json:"matched_document,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
}

type reuseResponse struct {
	Graph       graphResponse       `json:"graph"`
	Resolutions []resolutionPayload `json:"resolutions"`
}

func toReuseResponse(g *requirement.Graph, resolutions []requirement.Resolution) reuseResponse {
	resp := reuseResponse{
		Graph:       toGraphResponse(g),
		Resolutions: make([]resolutionPayload, 0, len(resolutions)),
	}
	for _, r := range resolutions {
		payload := resolutionPayload{
			Type:     r.Type.String(),
			Decision: string(r.Decision),
		}
		if r.MatchedDocument != nil {
			payload.MatchedDocument = r.MatchedDocument.String()
		}
		if r.ExpiresAt != nil {
			payload.ExpiresAt = r.ExpiresAt.UTC().Format(time.RFC3339)
		}
		resp.Resolutions = append(resp.Resolutions, payload)
	}
	return resp
}

type createWorkflowRequest struct {
	ProfileID string   `json:"profile_id"`
	SchemeIDs []string `json:"scheme_ids"`
	AsOf      string   `json:"as_of,omitempty"`
}

func (r *createWorkflowRequest) Validate() error {
	if r.ProfileID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "profile_id is required")
	}
	if len(r.SchemeIDs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "scheme_ids must not be empty")
	}
	return nil
}

type advanceStepRequest struct {
	ExpectedVersion int64 `json:"expected_version"`
}

func (r *advanceStepRequest) Validate() error {
	if r.ExpectedVersion < 1 {
		return dErrors.New(dErrors.CodeBadRequest, "expected_version must be at least 1")
	}
	return nil
}

type confirmStepRequest struct {
	ExpectedVersion int64  `json:"expected_version"`
	Approved        bool   `json:"approved"`
	Reason          string `json:"reason,omitempty"`
}

func (r *confirmStepRequest) Validate() error {
	if r.ExpectedVersion < 1 {
		return dErrors.New(dErrors.CodeBadRequest, "expected_version must be at least 1")
	}
	return nil
}

type stepPayload struct {
	ID                 string `json:"id"`
	DocumentType       string `json:"document_type"`
	State              string `json:"state"`
	Decision           string `json:"decision"`
	Mandatory          bool   `json:"mandatory"`
	Automatable        bool   `json:"automatable"`
	RequiresAuthority  bool   `json:"requires_authority"`
	RetryCount         int    `json:"retry_count"`
	NextAttemptAt      string `json:"next_attempt_at,omitempty"`
	FailureReason      string `json:"failure_reason,omitempty"`
	EscalationRequired bool   `json:"escalation_required"`
}

type workflowPayload struct {
	ID        string        `json:"id"`
	ProfileID string        `json:"profile_id"`
	SchemeIDs []string      `json:"scheme_ids"`
	Version   int64         `json:"version"`
	Steps     []stepPayload `json:"steps"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type workflowResponse struct {
	Workflow workflowPayload `json:"workflow"`
	Status   statusPayload   `json:"status"`
	// Contact is set when advancing handed the step to an external authority.
	Contact *ports.Contact `json:"authority_contact,omitempty"`
}

type statusPayload struct {
	State          string   `json:"state"`
	Percent        float64  `json:"percent"`
	EscalatedSteps []string `json:"escalated_steps,omitempty"`
}

func toWorkflowPayload(wf *models.Workflow) workflowPayload {
	payload := workflowPayload{
		ID:        wf.ID.String(),
		ProfileID: wf.ProfileID.String(),
		Version:   wf.Version,
		CreatedAt: wf.CreatedAt,
		UpdatedAt: wf.UpdatedAt,
	}
	for _, s := range wf.SchemeIDs {
		payload.SchemeIDs = append(payload.SchemeIDs, s.String())
	}
	for _, step := range wf.Steps {
		sp := stepPayload{
			ID:                 step.ID.String(),
			DocumentType:       step.DocumentType.String(),
			State:              string(step.State),
			Decision:           string(step.Decision),
			Mandatory:          step.Mandatory,
			Automatable:        step.Automatable,
			RequiresAuthority:  step.RequiresAuthority,
			RetryCount:         step.RetryCount,
			FailureReason:      step.FailureReason,
			EscalationRequired: step.EscalationRequired,
		}
		if step.NextAttemptAt != nil {
			sp.NextAttemptAt = step.NextAttemptAt.UTC().Format(time.RFC3339)
		}
		payload.Steps = append(payload.Steps, sp)
	}
	return payload
}

func toStatusPayload(status models.Status) statusPayload {
	payload := statusPayload{
		State:   string(status.State),
		Percent: status.Percent,
	}
	for _, stepID := range status.EscalatedSteps {
		payload.EscalatedSteps = append(payload.EscalatedSteps, stepID.String())
	}
	return payload
}

func toWorkflowResponse(wf *models.Workflow, contact *ports.Contact) workflowResponse {
	return workflowResponse{
		Workflow: toWorkflowPayload(wf),
		Status:   toStatusPayload(wf.DeriveStatus()),
		Contact:  contact,
	}
}

type workflowListResponse struct {
	Workflows []workflowResponse `json:"workflows"`
}
