package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/search"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

// searchRequest is the POST /api/search body. A single query string or a
// queries array are both accepted.
type searchRequest struct {
	Queries                 []string            `json:"queries"`
	Query                   string              `json:"query"`
	ResultsLimit            int                 `json:"resultsLimit"`
	Filters                 model.SearchFilters `json:"filters"`
	Page                    int                 `json:"page"`
	MaxAgeDays              int                 `json:"maxAgeDays"`
	RequireDateFiltering    bool                `json:"requireDateFiltering"`
	EnableTraceability      bool                `json:"enableTraceability"`
	Classify                bool                `json:"classify"`
	Industry                string              `json:"industry"`
	Location                string              `json:"location"`
	City                    string              `json:"city"`
	StateProvince           string              `json:"stateProvince"`
	Country                 string              `json:"country"`
	ExistingSearchSessionID string              `json:"existingSearchSessionId"`
}

type searchResponse struct {
	Success bool `json:"success"`
	*search.Response
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	queries := req.Queries
	if len(queries) == 0 && req.Query != "" {
		queries = []string{req.Query}
	}
	if len(queries) == 0 {
		writeError(w, http.StatusBadRequest, "query or queries is required", nil)
		return
	}

	resp, err := s.search.Run(r.Context(), search.Request{
		Queries:                 queries,
		ResultsLimit:            req.ResultsLimit,
		Page:                    req.Page,
		MaxAgeDays:              req.MaxAgeDays,
		RequireDateFiltering:    req.RequireDateFiltering,
		Filters:                 req.Filters,
		EnableTraceability:      req.EnableTraceability,
		Classify:                req.Classify,
		Industry:                req.Industry,
		Location:                req.Location,
		City:                    req.City,
		StateProvince:           req.StateProvince,
		Country:                 req.Country,
		ExistingSearchSessionID: req.ExistingSearchSessionID,
	})
	if err != nil {
		zap.L().Error("server: search failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "search failed", err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Success: true, Response: resp})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	filter := store.SessionFilter{
		Status:   model.SessionStatus(r.URL.Query().Get("status")),
		Industry: r.URL.Query().Get("industry"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	}
	sessions, err := s.store.ListSearchSessions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list sessions failed", err)
		return
	}
	if sessions == nil {
		sessions = []model.SearchSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "sessions": sessions})
}

// sessionDetail is the full audit view of one search session.
type sessionDetail struct {
	Success     bool                 `json:"success"`
	Session     *model.SearchSession `json:"session"`
	Results     []model.SearchResult `json:"results"`
	LLMSessions []llmSessionDetail   `json:"llmSessions"`
}

type llmSessionDetail struct {
	model.LLMProcessingSession
	Results []model.LLMProcessingResult `json:"results"`
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.store.GetSearchSession(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get session failed", err)
		return
	}
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found", nil)
		return
	}

	results, err := s.store.ListSearchResults(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list results failed", err)
		return
	}

	llmSessions, err := s.store.ListLLMSessions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list llm sessions failed", err)
		return
	}
	detail := sessionDetail{
		Success:     true,
		Session:     sess,
		Results:     results,
		LLMSessions: make([]llmSessionDetail, 0, len(llmSessions)),
	}
	if detail.Results == nil {
		detail.Results = []model.SearchResult{}
	}
	for _, ls := range llmSessions {
		llmResults, err := s.store.ListLLMResults(r.Context(), ls.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list llm results failed", err)
			return
		}
		detail.LLMSessions = append(detail.LLMSessions, llmSessionDetail{
			LLMProcessingSession: ls,
			Results:              llmResults,
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobList, err := s.registry.List(r.Context(), store.JobFilter{
		Status: model.JobStatus(r.URL.Query().Get("status")),
		Type:   model.JobType(r.URL.Query().Get("type")),
		Limit:  queryInt(r, "limit"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list jobs failed", err)
		return
	}
	if jobList == nil {
		jobList = []model.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "jobs": jobList})
}

func (s *Server) handleSubmitKeywords(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Industry string `json:"industry"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Industry == "" {
		writeError(w, http.StatusBadRequest, "industry is required", nil)
		return
	}

	job, err := s.submitter.SubmitKeywords(r.Context(), req.Industry)
	if err != nil {
		writeError(w, http.StatusBadGateway, "keyword job submission failed", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "job": job})
}

func (s *Server) handleSubmitEnrichment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Website  string `json:"website"`
		Enhanced bool   `json:"enhanced"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Website == "" {
		writeError(w, http.StatusBadRequest, "website is required", nil)
		return
	}

	job, err := s.submitter.SubmitEnrichment(r.Context(), req.Website, req.Enhanced)
	if err != nil {
		writeError(w, http.StatusBadGateway, "enrichment job submission failed", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "job": job})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := s.registry.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get job failed", err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found", nil)
		return
	}
	if err := s.registry.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "delete job failed", err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.collector.Collect(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "collect metrics failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "metrics": snap})
}

func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
