// Package enrich talks to the external enrichment/keyword service,
// which exposes a submit endpoint plus a per-job poll URL.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SubmitRequest is the payload sent to a submission endpoint.
type SubmitRequest struct {
	Industry string `json:"industry,omitempty"`
	Website  string `json:"website,omitempty"`
	Enhanced bool   `json:"enhanced,omitempty"`
}

// SubmitResult is the structured outcome of a submission. Transport and
// HTTP failures surface here as Success=false rather than as an error,
// so callers can render a UI failure without special-casing.
type SubmitResult struct {
	Success           bool   `json:"success"`
	JobID             string `json:"jobId"`
	PollURL           string `json:"pollUrl,omitempty"`
	Position          int    `json:"position,omitempty"`
	EstimatedWaitSecs int    `json:"estimatedWaitTime,omitempty"`
	Error             string `json:"error,omitempty"`
}

// PollResponse is one poll of an in-flight job.
type PollResponse struct {
	Success  bool            `json:"success"`
	Status   string          `json:"status"`
	Progress *int            `json:"progress,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Terminal reports whether the poll indicates the external job finished,
// successfully or not.
func (p *PollResponse) Terminal() bool {
	return p.Status == "completed" || p.Status == "failed"
}

// Client submits and polls external enrichment jobs.
type Client interface {
	SubmitKeywords(ctx context.Context, industry string) *SubmitResult
	SubmitEnrichment(ctx context.Context, website string, enhanced bool) *SubmitResult
	Poll(ctx context.Context, pollURL string) (*PollResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates an enrichment API client.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SubmitKeywords(ctx context.Context, industry string) *SubmitResult {
	return c.submit(ctx, c.baseURL+"/keywords", SubmitRequest{Industry: industry})
}

func (c *httpClient) SubmitEnrichment(ctx context.Context, website string, enhanced bool) *SubmitResult {
	return c.submit(ctx, c.baseURL+"/enrich", SubmitRequest{Website: website, Enhanced: enhanced})
}

func (c *httpClient) submit(ctx context.Context, url string, payload SubmitRequest) *SubmitResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(eris.Wrap(err, "enrich: marshal request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return failure(eris.Wrap(err, "enrich: create request"))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return failure(eris.Wrap(err, "enrich: submit"))
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return failure(eris.Errorf("enrich: submit returned status %d", resp.StatusCode))
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return failure(eris.Wrap(err, "enrich: decode submit response"))
	}
	return &result
}

func failure(err error) *SubmitResult {
	zap.L().Warn("enrich: submission failed", zap.Error(err))
	return &SubmitResult{Success: false, Error: err.Error()}
}

// Poll fetches the job's current state from its poll URL. Unlike submit,
// transport failures are returned as errors: the caller's poll loop
// counts them toward a bounded failure budget.
func (c *httpClient) Poll(ctx context.Context, pollURL string) (*PollResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: create poll request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: poll")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, eris.Errorf("enrich: poll returned status %d", resp.StatusCode)
	}

	var parsed PollResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "enrich: decode poll response")
	}
	return &parsed, nil
}
