// Package searchapi provides a client for the external search provider
// used to collect candidate business websites.
package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/azar84/saas-marketing-360-sub004/internal/resilience"
)

// Client performs search provider operations.
type Client interface {
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// SearchResponse is the provider's parsed response for one query.
type SearchResponse struct {
	Success      bool     `json:"success"`
	Results      []Result `json:"results"`
	TotalResults int      `json:"totalResults"`
	Error        string   `json:"error,omitempty"`
}

// Result is a single hit from the provider.
type Result struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
}

// SearchOption configures a single search request.
type SearchOption func(*searchRequest)

type searchRequest struct {
	Query                string `json:"query"`
	Limit                int    `json:"limit,omitempty"`
	Page                 int    `json:"page,omitempty"`
	MaxAgeDays           int    `json:"maxAgeDays,omitempty"`
	RequireDateFiltering bool   `json:"requireDateFiltering,omitempty"`
}

// WithLimit sets the requested result count.
func WithLimit(n int) SearchOption {
	return func(r *searchRequest) {
		r.Limit = n
	}
}

// WithPage sets the 1-based result page.
func WithPage(p int) SearchOption {
	return func(r *searchRequest) {
		r.Page = p
	}
}

// WithMaxAge restricts results to pages indexed within the given age.
func WithMaxAge(days int, required bool) SearchOption {
	return func(r *searchRequest) {
		r.MaxAgeDays = days
		r.RequireDateFiltering = required
	}
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing queries per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	baseURL      string
	bypassSecret string
	http         *http.Client
	limiter      *rate.Limiter
	retry        resilience.RetryConfig
}

// NewClient creates a search provider client. The bypass secret is sent
// on every request so the provider skips bot protection for us.
func NewClient(baseURL, bypassSecret string, opts ...Option) Client {
	c := &httpClient{
		baseURL:      baseURL,
		bypassSecret: bypassSecret,
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	req := searchRequest{Query: query}
	for _, o := range opts {
		o(&req)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "searchapi: rate limit wait")
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "searchapi: marshal request")
	}

	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger("searchapi", "search")

	result, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*SearchResponse, error) {
		return c.doSearch(ctx, body)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "searchapi: search %q", query)
	}
	return result, nil
}

func (c *httpClient) doSearch(ctx context.Context, body []byte) (*SearchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "searchapi: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-vercel-protection-bypass", c.bypassSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	var parsed SearchResponse
	dec := json.NewDecoder(resp.Body)

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("searchapi: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	if err := dec.Decode(&parsed); err != nil {
		return nil, eris.Wrap(err, "searchapi: decode response")
	}
	if !parsed.Success && parsed.Error != "" {
		return nil, eris.Errorf("searchapi: provider error: %s", parsed.Error)
	}
	return &parsed, nil
}
