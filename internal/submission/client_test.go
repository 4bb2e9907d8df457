package submission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benefitflow/internal/workflow/ports"
	id "benefitflow/pkg/domain"
)

type stubDoer struct {
	status  int
	body    string
	err     error
	lastReq *http.Request
}

func (d *stubDoer) Do(req *http.Request) (*http.Response, error) {
	d.lastReq = req
	if d.err != nil {
		return nil, d.err
	}
	return &http.Response{
		StatusCode: d.status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
	}, nil
}

func submissionRequest() ports.SubmissionRequest {
	return ports.SubmissionRequest{
		ProfileID:    id.ProfileID(uuid.New()),
		WorkflowID:   id.NewWorkflowID(),
		StepID:       id.NewStepID(),
		DocumentType: "income-statement",
	}
}

func TestSubmitClassification(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		outcome ports.SubmissionOutcome
	}{
		{"accepted", http.StatusAccepted, "", ports.SubmissionAccepted},
		{"rate limited is transient", http.StatusTooManyRequests, "", ports.SubmissionTransient},
		{"server error is transient", http.StatusBadGateway, `{"reason": "upstream flaky"}`, ports.SubmissionTransient},
		{"client error is permanent", http.StatusUnprocessableEntity, `{"reason": "profile ineligible"}`, ports.SubmissionPermanent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &stubDoer{status: tc.status, body: tc.body}
			client := NewHTTP(Config{BaseURL: "http://acquisition.local", HTTPClient: doer})

			result, err := client.Submit(context.Background(), submissionRequest())
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, result.Outcome)
			if tc.outcome != ports.SubmissionAccepted {
				assert.NotEmpty(t, result.Reason)
			}
		})
	}
}

func TestSubmitReasonPassthrough(t *testing.T) {
	doer := &stubDoer{status: http.StatusConflict, body: `{"reason": "duplicate submission"}`}
	client := NewHTTP(Config{BaseURL: "http://acquisition.local", HTTPClient: doer})

	result, err := client.Submit(context.Background(), submissionRequest())
	require.NoError(t, err)
	assert.Equal(t, ports.SubmissionPermanent, result.Outcome)
	assert.Equal(t, "duplicate submission", result.Reason)
}

func TestSubmitRequestShape(t *testing.T) {
	doer := &stubDoer{status: http.StatusOK}
	client := NewHTTP(Config{BaseURL: "http://acquisition.local", APIKey: "k123", HTTPClient: doer})
	req := submissionRequest()

	_, err := client.Submit(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, doer.lastReq)
	assert.Equal(t, "http://acquisition.local/submissions", doer.lastReq.URL.String())
	assert.Equal(t, "application/json", doer.lastReq.Header.Get("Content-Type"))
	assert.Equal(t, "k123", doer.lastReq.Header.Get("X-API-Key"))

	var wire map[string]string
	require.NoError(t, json.NewDecoder(doer.lastReq.Body).Decode(&wire))
	assert.Equal(t, req.DocumentType.String(), wire["document_type"])
	assert.Equal(t, req.ProfileID.String(), wire["profile_id"])
}

func TestSubmitTransportErrorSurfaces(t *testing.T) {
	doer := &stubDoer{err: errors.New("connection refused")}
	client := NewHTTP(Config{BaseURL: "http://acquisition.local", HTTPClient: doer})

	_, err := client.Submit(context.Background(), submissionRequest())
	assert.Error(t, err)
}
