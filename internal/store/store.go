package store

import (
	"context"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
)

// SessionFilter specifies criteria for listing search sessions.
type SessionFilter struct {
	Status   model.SessionStatus `json:"status,omitempty"`
	Industry string              `json:"industry,omitempty"`
	Limit    int                 `json:"limit,omitempty"`
	Offset   int                 `json:"offset,omitempty"`
}

// JobFilter specifies criteria for listing jobs.
type JobFilter struct {
	Status model.JobStatus `json:"status,omitempty"`
	Type   model.JobType   `json:"type,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for search traceability,
// classification audit records, the business directory, and job tracking.
type Store interface {
	// Search sessions
	CreateSearchSession(ctx context.Context, sess model.SearchSession) (*model.SearchSession, error)
	GetSearchSession(ctx context.Context, id string) (*model.SearchSession, error)
	ListSearchSessions(ctx context.Context, filter SessionFilter) ([]model.SearchSession, error)
	// AddSearchResults appends results to a session, skipping URLs the
	// session already holds. Returns the number of rows stored.
	AddSearchResults(ctx context.Context, sessionID string, results []model.SearchResult) (int, error)
	// CompleteSearchSession recomputes the session's result count from
	// stored rows and records the final status and timing.
	CompleteSearchSession(ctx context.Context, sessionID string, status model.SessionStatus, successfulQueries int, searchTimeSecs float64) error
	ListSearchResults(ctx context.Context, sessionID string) ([]model.SearchResult, error)
	MarkResultProcessed(ctx context.Context, resultID string) error

	// LLM processing audit
	CreateLLMSession(ctx context.Context, searchSessionID string, totalResults int) (*model.LLMProcessingSession, error)
	RecordLLMResult(ctx context.Context, res model.LLMProcessingResult) (*model.LLMProcessingResult, error)
	CompleteLLMSession(ctx context.Context, id string, accepted, rejected, errs int, quality float64, status model.SessionStatus) error
	GetLLMSession(ctx context.Context, id string) (*model.LLMProcessingSession, error)
	ListLLMSessions(ctx context.Context, searchSessionID string) ([]model.LLMProcessingSession, error)
	ListLLMResults(ctx context.Context, llmSessionID string) ([]model.LLMProcessingResult, error)

	// Business directory
	SaveBusiness(ctx context.Context, b model.BusinessRecord) (*model.BusinessRecord, error)
	GetBusinessByWebsite(ctx context.Context, website string) (*model.BusinessRecord, error)
	ListBusinesses(ctx context.Context, limit, offset int) ([]model.BusinessRecord, error)
	SetBusinessNotionPage(ctx context.Context, businessID, pageID string) error

	// Jobs
	AddJob(ctx context.Context, job model.Job) (*model.Job, error)
	GetJob(ctx context.Context, id string) (*model.Job, error)
	UpdateJob(ctx context.Context, job model.Job) error
	DeleteJob(ctx context.Context, id string) error
	ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error)
	// ListActiveJobs returns jobs in non-terminal states, oldest first.
	ListActiveJobs(ctx context.Context) ([]model.Job, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
