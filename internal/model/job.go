package model

import (
	"encoding/json"
	"time"
)

// JobType identifies the kind of external long-running work a job tracks.
type JobType string

const (
	JobTypeKeywordGeneration  JobType = "keyword-generation"
	JobTypeBasicEnrichment    JobType = "basic-enrichment"
	JobTypeEnhancedEnrichment JobType = "enhanced-enrichment"
)

// JobStatus is the lifecycle state of a tracked job.
// queued -> processing/active -> completed | failed.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusActive     JobStatus = "active"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status is final. Terminal jobs are
// excluded from the poller's working set.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job tracks one asynchronous unit of work delegated to an external HTTP
// API via submit + poll. Jobs are flat records with no parent and are
// retained until an operator deletes them.
type Job struct {
	ID           string          `json:"id"`
	Type         JobType         `json:"type"`
	Status       JobStatus       `json:"status"`
	Progress     int             `json:"progress"` // 0-100
	PollURL      string          `json:"pollUrl,omitempty"`
	Metadata     map[string]any  `json:"metadata,omitempty"` // type-specific fields (industry, website, ...)
	Result       json.RawMessage `json:"result,omitempty"`
	Error        string          `json:"error,omitempty"`
	PollFailures int             `json:"pollFailures,omitempty"` // consecutive poll errors since last success
	SubmittedAt  time.Time       `json:"submittedAt"`
	CompletedAt  *time.Time      `json:"completedAt,omitempty"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
