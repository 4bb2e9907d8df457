package httptransport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	catalogmodels "benefitflow/internal/catalog/models"
	catalogstore "benefitflow/internal/catalog/store"
	documentstore "benefitflow/internal/documents/store"
	"benefitflow/internal/eligibility"
	"benefitflow/internal/requirement"
	"benefitflow/internal/workflow"
	workflowstore "benefitflow/internal/workflow/store"
	id "benefitflow/pkg/domain"
)

// RouterSuite runs requests through the full router against real services on
// in-memory stores, so transport wiring and error translation are exercised
// together.
type RouterSuite struct {
	suite.Suite
	router http.Handler
}

func (s *RouterSuite) SetupTest() {
	docValidity := 90 * 24 * time.Hour

	catStore := catalogstore.NewInMemory("v1",
		[]*catalogmodels.Scheme{
			{
				ID:         "pension-credit",
				Name:       "Pension Credit",
				Categories: []string{"income-support"},
				Criteria: []catalogmodels.Criterion{
					{Field: "age", Operator: catalogmodels.OpGreaterOrEqual, Value: id.Number(60), Weight: 1},
				},
				RequiredDocs: []catalogmodels.RequiredDocument{
					{Type: "identity-proof", Mandatory: true},
					{Type: "income-statement", Mandatory: true},
					{Type: "residence-cert", Mandatory: true},
				},
				EstimatedBenefit: 3300,
				UpdatedAt:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:         "tangled-grant",
				Name:       "Tangled Grant",
				Categories: []string{"income-support"},
				Criteria: []catalogmodels.Criterion{
					{Field: "age", Operator: catalogmodels.OpGreaterOrEqual, Value: id.Number(0), Weight: 1},
				},
				RequiredDocs: []catalogmodels.RequiredDocument{
					{Type: "tangle-a", Mandatory: true},
				},
			},
		},
		[]*catalogmodels.DocumentType{
			{ID: "identity-proof", Category: "identity", EstimatedEffort: 48 * time.Hour},
			{ID: "income-statement", Category: "financial", Validity: &docValidity, Prerequisites: []id.DocumentTypeID{"identity-proof"}, Automatable: true, EstimatedEffort: 24 * time.Hour},
			{ID: "residence-cert", Category: "residence", RequiresAuthority: true, EstimatedEffort: 120 * time.Hour},
			{ID: "tangle-a", Category: "misc", Prerequisites: []id.DocumentTypeID{"tangle-b"}},
			{ID: "tangle-b", Category: "misc", Prerequisites: []id.DocumentTypeID{"tangle-a"}},
		},
	)
	docStore := documentstore.NewInMemory()
	wfStore := workflowstore.NewInMemory()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	eligSvc, err := eligibility.New(catStore, eligibility.WithLogger(logger))
	s.Require().NoError(err)
	reqSvc, err := requirement.New(catStore, docStore, requirement.WithLogger(logger))
	s.Require().NoError(err)
	// No authority directory: authority steps surface as bad gateway.
	wfSvc, err := workflow.New(wfStore, workflow.WithLogger(logger))
	s.Require().NoError(err)

	s.router = NewRouter(Handlers{
		Eligibility: NewEligibilityHandler(eligSvc, logger),
		Requirement: NewRequirementHandler(reqSvc, logger),
		Workflow:    NewWorkflowHandler(wfSvc, reqSvc, logger),
	}, nil, logger)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) errCode(rec *httptest.ResponseRecorder) string {
	var envelope map[string]string
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope["error"]
}

func (s *RouterSuite) TestEvaluate() {
	body := `{
		"profile": {"fields": {"age": {"kind": "number", "value": 62}}},
		"scheme_ids": ["pension-credit"]
	}`
	rec := s.do(http.MethodPost, "/eligibility/evaluate", body)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp evaluateResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Results, 1)
	s.Equal(id.SchemeID("pension-credit"), resp.Results[0].SchemeID)
	s.True(resp.Results[0].Eligible)
	s.InDelta(1.0, resp.Results[0].Confidence, 1e-9)
}

func (s *RouterSuite) TestEvaluateUnknownScheme() {
	body := `{
		"profile": {"fields": {"age": {"kind": "number", "value": 62}}},
		"scheme_ids": ["no-such-scheme"]
	}`
	rec := s.do(http.MethodPost, "/eligibility/evaluate", body)

	s.Equal(http.StatusNotFound, rec.Code, rec.Body.String())
	s.Equal("not_found", s.errCode(rec))
}

func (s *RouterSuite) TestEvaluateRejectsEmptySchemes() {
	rec := s.do(http.MethodPost, "/eligibility/evaluate", `{"profile": {"fields": {}}, "scheme_ids": []}`)

	s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
	s.Equal("bad_request", s.errCode(rec))
}

func (s *RouterSuite) TestEvaluateRejectsMalformedBody() {
	rec := s.do(http.MethodPost, "/eligibility/evaluate", `{"profile": `)

	s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
}

func (s *RouterSuite) TestAlternatives() {
	body := `{
		"rejected_scheme_id": "pension-credit",
		"profile": {"fields": {"age": {"kind": "number", "value": 30}}}
	}`
	rec := s.do(http.MethodPost, "/eligibility/alternatives", body)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp alternativesResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Alternatives, 1)
	s.Equal(id.SchemeID("tangled-grant"), resp.Alternatives[0].Result.SchemeID)
}

func (s *RouterSuite) TestGraph() {
	rec := s.do(http.MethodPost, "/requirements/graph", `{"scheme_ids": ["pension-credit"]}`)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp graphResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal([]string{"identity-proof", "income-statement", "residence-cert"}, resp.Order)
}

func (s *RouterSuite) TestGraphCycle() {
	rec := s.do(http.MethodPost, "/requirements/graph", `{"scheme_ids": ["tangled-grant"]}`)

	s.Equal(http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	s.Equal("cycle_detected", s.errCode(rec))
}

func (s *RouterSuite) TestReuse() {
	body := fmt.Sprintf(`{"profile_id": %q, "scheme_ids": ["pension-credit"]}`, uuid.NewString())
	rec := s.do(http.MethodPost, "/requirements/reuse", body)

	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var resp reuseResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Len(resp.Resolutions, 3)
	for _, r := range resp.Resolutions {
		// Nothing is held, so everything must be fetched fresh.
		s.Equal("fetch-new", r.Decision)
	}
}

func (s *RouterSuite) TestWorkflowLifecycle() {
	profileID := uuid.NewString()
	createBody := fmt.Sprintf(`{"profile_id": %q, "scheme_ids": ["pension-credit"]}`, profileID)
	rec := s.do(http.MethodPost, "/workflows", createBody)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var created workflowResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &created))
	s.Require().Equal(int64(1), created.Workflow.Version)
	s.Require().Len(created.Workflow.Steps, 3)

	steps := map[string]stepPayload{}
	for _, step := range created.Workflow.Steps {
		steps[step.DocumentType] = step
	}
	s.Equal("ready", steps["identity-proof"].State)
	s.Equal("blocked", steps["income-statement"].State)
	s.Equal("ready", steps["residence-cert"].State)

	wfID := created.Workflow.ID
	advance := func(stepID string, version int64) *httptest.ResponseRecorder {
		return s.do(http.MethodPost,
			"/workflows/"+wfID+"/steps/"+stepID+"/advance",
			fmt.Sprintf(`{"expected_version": %d}`, version))
	}

	s.Run("stale version is rejected", func() {
		rec := advance(steps["identity-proof"].ID, 99)
		s.Equal(http.StatusConflict, rec.Code, rec.Body.String())
		s.Equal("conflict", s.errCode(rec))
	})

	s.Run("manual step runs in two advances", func() {
		rec := advance(steps["identity-proof"].ID, 1)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var resp workflowResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Equal(int64(2), resp.Workflow.Version)

		rec = advance(steps["identity-proof"].ID, 2)
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))

		restates := map[string]string{}
		for _, step := range resp.Workflow.Steps {
			restates[step.DocumentType] = step.State
		}
		s.Equal("completed", restates["identity-proof"])
		// The prerequisite completing unblocks the dependent.
		s.Equal("ready", restates["income-statement"])
	})

	s.Run("authority step without a directory is bad gateway", func() {
		rec := advance(steps["residence-cert"].ID, 3)
		s.Equal(http.StatusBadGateway, rec.Code, rec.Body.String())
		s.Equal("authority_unavailable", s.errCode(rec))
	})

	s.Run("list by profile includes the workflow", func() {
		rec := s.do(http.MethodGet, "/profiles/"+profileID+"/workflows", "")
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		var resp workflowListResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
		s.Require().Len(resp.Workflows, 1)
		s.Equal(wfID, resp.Workflows[0].Workflow.ID)
	})

	s.Run("delete removes the workflow", func() {
		rec := s.do(http.MethodDelete, "/workflows/"+wfID, "")
		s.Equal(http.StatusNoContent, rec.Code, rec.Body.String())

		rec = s.do(http.MethodGet, "/workflows/"+wfID, "")
		s.Equal(http.StatusNotFound, rec.Code, rec.Body.String())
	})
}

func (s *RouterSuite) TestWorkflowCreateCycleSurfaces() {
	body := fmt.Sprintf(`{"profile_id": %q, "scheme_ids": ["tangled-grant"]}`, uuid.NewString())
	rec := s.do(http.MethodPost, "/workflows", body)

	s.Equal(http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	s.Equal("cycle_detected", s.errCode(rec))
}

func (s *RouterSuite) TestWorkflowGetUnknown() {
	rec := s.do(http.MethodGet, "/workflows/"+uuid.NewString(), "")

	s.Equal(http.StatusNotFound, rec.Code, rec.Body.String())
}

func (s *RouterSuite) TestWorkflowBadIDFormat() {
	rec := s.do(http.MethodGet, "/workflows/not-a-uuid", "")

	s.Equal(http.StatusBadRequest, rec.Code, rec.Body.String())
}

func (s *RouterSuite) TestContentTypeEnforced() {
	req := httptest.NewRequest(http.MethodPost, "/eligibility/evaluate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}
