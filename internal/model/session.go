package model

import "time"

// SessionStatus represents the lifecycle state of a search or LLM
// processing session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// SearchFilters configures result filtering for a search session.
type SearchFilters struct {
	ExcludeDomains       []string `json:"excludeDomains,omitempty"`
	MaxAgeDays           int      `json:"maxAgeDays,omitempty"`
	RequireDateFiltering bool     `json:"requireDateFiltering,omitempty"`
}

// SearchSession is one logical research request, possibly spanning
// multiple provider queries and result pages. Sessions are the audit
// trail root and are never deleted automatically.
type SearchSession struct {
	ID                string        `json:"id"`
	Queries           []string      `json:"queries"`
	Industry          string        `json:"industry,omitempty"`
	Location          string        `json:"location,omitempty"`
	City              string        `json:"city,omitempty"`
	StateProvince     string        `json:"stateProvince,omitempty"`
	Country           string        `json:"country,omitempty"`
	ResultsLimit      int           `json:"resultsLimit"`
	Filters           SearchFilters `json:"filters"`
	TotalResults      int           `json:"totalResults"`
	SuccessfulQueries int           `json:"successfulQueries"`
	SearchTimeSecs    float64       `json:"searchTimeSeconds"`
	Status            SessionStatus `json:"status"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}

// SearchResult is one URL stored for a session. Unique per (session, URL);
// mutated only to flip IsProcessed once classified.
type SearchResult struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	DisplayURL  string    `json:"displayUrl,omitempty"`
	Snippet     string    `json:"snippet,omitempty"`
	Query       string    `json:"query"`
	IsProcessed bool      `json:"isProcessed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LLMProcessingSession is one batch of per-result classification work
// tied to a search session (or standalone when SearchSessionID is empty).
type LLMProcessingSession struct {
	ID                string        `json:"id"`
	SearchSessionID   string        `json:"searchSessionId,omitempty"`
	TotalResults      int           `json:"totalResults"`
	Accepted          int           `json:"accepted"`
	Rejected          int           `json:"rejected"`
	Errors            int           `json:"errors"`
	ExtractionQuality float64       `json:"extractionQuality"`
	Status            SessionStatus `json:"status"`
	StartedAt         time.Time     `json:"startedAt"`
	EndedAt           *time.Time    `json:"endedAt,omitempty"`
}

// ResultStatus is the outcome class of one LLM classification.
type ResultStatus string

const (
	ResultStatusAccepted ResultStatus = "accepted"
	ResultStatusRejected ResultStatus = "rejected"
	ResultStatusError    ResultStatus = "error"
)

// LLMProcessingResult records the outcome of classifying one SearchResult
// under one LLMProcessingSession. Exactly one row exists per
// (SearchResult, LLMProcessingSession) pair. Prompt and RawResponse are
// stored verbatim and are immutable once written: they are the audit record.
type LLMProcessingResult struct {
	ID                 string       `json:"id"`
	SearchResultID     string       `json:"searchResultId"`
	LLMSessionID       string       `json:"llmSessionId"`
	Status             ResultStatus `json:"status"`
	Confidence         float64      `json:"confidence"`
	Business           *Business    `json:"business,omitempty"` // extracted fields when accepted or rejected
	RejectionReason    string       `json:"rejectionReason,omitempty"`
	ErrorMessage       string       `json:"errorMessage,omitempty"`
	Prompt             string       `json:"prompt"`
	RawResponse        string       `json:"rawResponse"`
	ProcessingTimeSecs float64      `json:"processingTimeSeconds"`
	BusinessID         string       `json:"businessId,omitempty"` // downstream business record, once saved
	CreatedAt          time.Time    `json:"createdAt"`
}

// BusinessRecord is a persisted directory entry created from an accepted
// classification. Referenced (not owned) by LLMProcessingResult.
type BusinessRecord struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Website       string    `json:"website"`
	City          string    `json:"city,omitempty"`
	StateProvince string    `json:"stateProvince,omitempty"`
	Country       string    `json:"country,omitempty"`
	Categories    []string  `json:"categories,omitempty"`
	Confidence    float64   `json:"confidence"`
	SourceURL     string    `json:"sourceUrl,omitempty"`
	NotionPageID  string    `json:"notionPageId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
