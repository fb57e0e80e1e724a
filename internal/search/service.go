// Package search orchestrates one research request: fan the queries out
// to the provider, merge and dedup the hits, persist the audit trail,
// and optionally run classification over the merged results.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/azar84/saas-marketing-360-sub004/internal/classifier"
	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
	"github.com/azar84/saas-marketing-360-sub004/pkg/searchapi"
)

// maxConcurrentQueries bounds the provider fan-out per request.
const maxConcurrentQueries = 4

// Request is one research request, possibly spanning multiple queries.
type Request struct {
	Queries              []string
	ResultsLimit         int
	Page                 int
	MaxAgeDays           int
	RequireDateFiltering bool
	Filters              model.SearchFilters
	EnableTraceability   bool
	Classify             bool

	Industry      string
	Location      string
	City          string
	StateProvince string
	Country       string

	// ExistingSearchSessionID continues a prior session so paginated
	// requests accumulate into one audit trail.
	ExistingSearchSessionID string
}

// QueryOutcome is the per-query breakdown for the response.
type QueryOutcome struct {
	Results int    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// Traceability reports what the audit trail captured for this request.
type Traceability struct {
	Enabled       bool   `json:"enabled"`
	SessionID     string `json:"sessionId,omitempty"`
	ResultsStored int    `json:"resultsStored"`
	QueriesStored int    `json:"queriesStored"`
}

// Pagination is the client-facing paging metadata.
type Pagination struct {
	Page         int `json:"page"`
	PerPage      int `json:"perPage"`
	TotalResults int `json:"totalResults"`
}

// Response is the merged outcome of a research request.
type Response struct {
	Results      []model.SearchResult    `json:"results"`
	ByQuery      map[string]QueryOutcome `json:"byQuery"`
	Pagination   Pagination              `json:"pagination"`
	Traceability Traceability            `json:"traceability"`

	// Populated only when classification ran.
	Businesses []model.Business    `json:"businesses,omitempty"`
	Summary    *classifier.Summary `json:"summary,omitempty"`
}

// Service runs research requests.
type Service struct {
	provider   searchapi.Client
	store      store.Store
	classifier *classifier.Classifier
	defaultLim int
}

// New creates a Service. store and cls may be nil; traceability and
// classification are then unavailable but searches still work.
func New(provider searchapi.Client, st store.Store, cls *classifier.Classifier, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Service{provider: provider, store: st, classifier: cls, defaultLim: defaultLimit}
}

// Run executes the request. Individual query failures are recorded in
// the per-query breakdown; Run only errors when every query failed or
// the context was cancelled.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	if len(req.Queries) == 0 {
		return nil, eris.New("search: no queries")
	}
	if req.ResultsLimit <= 0 {
		req.ResultsLimit = s.defaultLim
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	start := time.Now()
	sessionID := s.openSession(ctx, &req)

	type queryResult struct {
		query string
		hits  []searchapi.Result
		err   error
	}
	outcomes := make([]queryResult, len(req.Queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentQueries)
	var mu sync.Mutex
	for i, q := range req.Queries {
		g.Go(func() error {
			opts := []searchapi.SearchOption{
				searchapi.WithLimit(req.ResultsLimit),
				searchapi.WithPage(req.Page),
			}
			if req.MaxAgeDays > 0 {
				opts = append(opts, searchapi.WithMaxAge(req.MaxAgeDays, req.RequireDateFiltering))
			}
			resp, err := s.provider.Search(gctx, q, opts...)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				outcomes[i] = queryResult{query: q, err: err}
				zap.L().Warn("search: query failed", zap.String("query", q), zap.Error(err))
				return nil
			}
			outcomes[i] = queryResult{query: q, hits: resp.Results}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "search: fan-out")
	}

	resp := &Response{ByQuery: make(map[string]QueryOutcome, len(req.Queries))}
	excluded := excludeSet(req.Filters.ExcludeDomains)
	seenURL := make(map[string]bool)
	successful := 0
	position := 0

	for _, out := range outcomes {
		if out.err != nil {
			resp.ByQuery[out.query] = QueryOutcome{Error: out.err.Error()}
			continue
		}
		successful++
		kept := 0
		for _, hit := range out.hits {
			if seenURL[hit.Link] {
				continue
			}
			seenURL[hit.Link] = true
			if excluded[model.NormalizeWebsite(hit.Link)] {
				continue
			}
			position++
			kept++
			resp.Results = append(resp.Results, model.SearchResult{
				Position:   position,
				Title:      hit.Title,
				URL:        hit.Link,
				DisplayURL: hit.DisplayLink,
				Snippet:    hit.Snippet,
				Query:      out.query,
			})
		}
		resp.ByQuery[out.query] = QueryOutcome{Results: kept}
	}

	if successful == 0 {
		return nil, eris.New("search: all queries failed")
	}

	resp.Pagination = Pagination{
		Page:         req.Page,
		PerPage:      req.ResultsLimit,
		TotalResults: len(resp.Results),
	}

	s.persist(ctx, sessionID, resp, successful, time.Since(start).Seconds())

	if req.Classify && s.classifier != nil {
		s.classify(ctx, req, sessionID, resp)
	}
	return resp, nil
}

// openSession creates or resumes the audit session. A store failure
// downgrades the request to traceability-off instead of failing it.
func (s *Service) openSession(ctx context.Context, req *Request) string {
	if !req.EnableTraceability || s.store == nil {
		return ""
	}

	if req.ExistingSearchSessionID != "" {
		existing, err := s.store.GetSearchSession(ctx, req.ExistingSearchSessionID)
		if err != nil {
			zap.L().Warn("search: resume session failed", zap.Error(err))
		} else if existing != nil {
			return existing.ID
		} else {
			zap.L().Warn("search: session to resume not found",
				zap.String("sessionId", req.ExistingSearchSessionID))
		}
	}

	sess, err := s.store.CreateSearchSession(ctx, model.SearchSession{
		Queries:       req.Queries,
		Industry:      req.Industry,
		Location:      req.Location,
		City:          req.City,
		StateProvince: req.StateProvince,
		Country:       req.Country,
		ResultsLimit:  req.ResultsLimit,
		Filters:       req.Filters,
		Status:        model.SessionStatusProcessing,
	})
	if err != nil {
		zap.L().Warn("search: create session failed, continuing without traceability", zap.Error(err))
		return ""
	}
	return sess.ID
}

// persist stores the merged results and closes out the session
// aggregates. Best-effort: failures leave the response intact.
func (s *Service) persist(ctx context.Context, sessionID string, resp *Response, successful int, elapsed float64) {
	if sessionID == "" {
		return
	}
	resp.Traceability = Traceability{Enabled: true, SessionID: sessionID}

	stored, err := s.store.AddSearchResults(ctx, sessionID, resp.Results)
	if err != nil {
		zap.L().Warn("search: store results failed", zap.Error(err))
	} else {
		resp.Traceability.ResultsStored = stored
		resp.Traceability.QueriesStored = successful
	}

	if err := s.store.CompleteSearchSession(ctx, sessionID, model.SessionStatusCompleted, successful, elapsed); err != nil {
		zap.L().Warn("search: complete session failed", zap.Error(err))
	}

	// Re-read so classification sees stored row ids for its audit trail.
	if saved, err := s.store.ListSearchResults(ctx, sessionID); err != nil {
		zap.L().Warn("search: reload stored results failed", zap.Error(err))
	} else if len(saved) > 0 {
		byURL := make(map[string]string, len(saved))
		for _, r := range saved {
			byURL[r.URL] = r.ID
		}
		for i := range resp.Results {
			resp.Results[i].ID = byURL[resp.Results[i].URL]
			resp.Results[i].SessionID = sessionID
		}
	}
}

func (s *Service) classify(ctx context.Context, req Request, sessionID string, resp *Response) {
	location := req.Location
	if location == "" {
		location = joinLocation(req.City, req.StateProvince, req.Country)
	}
	out, err := s.classifier.ClassifyResults(ctx, resp.Results, classifier.Options{
		Industry:           req.Industry,
		Location:           location,
		SearchSessionID:    sessionID,
		EnableTraceability: req.EnableTraceability && sessionID != "",
	})
	if err != nil {
		zap.L().Warn("search: classification failed", zap.Error(err))
		return
	}
	resp.Businesses = out.Businesses
	resp.Summary = &out.Summary
}

func excludeSet(domains []string) map[string]bool {
	if len(domains) == 0 {
		return nil
	}
	set := make(map[string]bool, len(domains))
	for _, d := range domains {
		set[model.NormalizeWebsite(d)] = true
	}
	return set
}

func joinLocation(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
