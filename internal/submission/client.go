// Package submission files automated document requests with the downstream
// acquisition system over HTTP.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"benefitflow/internal/workflow/ports"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the HTTP submission client.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// HTTPClient implements ports.SubmissionClient against a REST endpoint.
// Outcome classification follows the response status: 2xx is accepted, 429
// and 5xx are worth retrying, other 4xx mean the request itself can never
// succeed.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  HTTPDoer
}

func NewHTTP(cfg Config) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

type wireRequest struct {
	ProfileID    string `json:"profile_id"`
	WorkflowID   string `json:"workflow_id"`
	StepID       string `json:"step_id"`
	DocumentType string `json:"document_type"`
}

type wireResponse struct {
	Reason string `json:"reason"`
}

func (c *HTTPClient) Submit(ctx context.Context, req ports.SubmissionRequest) (ports.SubmissionResult, error) {
	body, err := json.Marshal(wireRequest{
		ProfileID:    req.ProfileID.String(),
		WorkflowID:   req.WorkflowID.String(),
		StepID:       req.StepID.String(),
		DocumentType: req.DocumentType.String(),
	})
	if err != nil {
		return ports.SubmissionResult{}, fmt.Errorf("marshal submission: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return ports.SubmissionResult{}, fmt.Errorf("create submission request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// The attempt never reached the downstream; let the caller retry.
		return ports.SubmissionResult{}, fmt.Errorf("execute submission: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return ports.SubmissionResult{}, fmt.Errorf("read submission response: %w", err)
	}
	var wire wireResponse
	if len(respBody) > 0 {
		// Reason is best-effort; an unparseable body still classifies.
		_ = json.Unmarshal(respBody, &wire)
	}

	return classify(resp.StatusCode, wire.Reason), nil
}

func classify(status int, reason string) ports.SubmissionResult {
	switch {
	case status >= 200 && status < 300:
		return ports.SubmissionResult{Outcome: ports.SubmissionAccepted}
	case status == http.StatusTooManyRequests || status >= 500:
		if reason == "" {
			reason = fmt.Sprintf("downstream returned %d", status)
		}
		return ports.SubmissionResult{Outcome: ports.SubmissionTransient, Reason: reason}
	default:
		if reason == "" {
			reason = fmt.Sprintf("downstream rejected submission with %d", status)
		}
		return ports.SubmissionResult{Outcome: ports.SubmissionPermanent, Reason: reason}
	}
}
