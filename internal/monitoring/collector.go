// Package monitoring aggregates store state into dashboard metrics.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

// MetricsSnapshot holds a point-in-time view of system activity.
type MetricsSnapshot struct {
	// Search sessions.
	SessionsTotal     int `json:"sessionsTotal"`
	SessionsCompleted int `json:"sessionsCompleted"`
	SessionsFailed    int `json:"sessionsFailed"`
	ResultsStored     int `json:"resultsStored"`

	// Extraction quality across completed sessions' LLM passes.
	AvgExtractionQuality float64 `json:"avgExtractionQuality"`

	// Jobs.
	JobsTotal     int `json:"jobsTotal"`
	JobsActive    int `json:"jobsActive"`
	JobsCompleted int `json:"jobsCompleted"`
	JobsFailed    int `json:"jobsFailed"`

	// Directory size.
	Businesses int `json:"businesses"`

	CollectedAt time.Time `json:"collectedAt"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the most recent sessions and jobs.
func (c *Collector) Collect(ctx context.Context) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{CollectedAt: time.Now().UTC()}

	sessions, err := c.store.ListSearchSessions(ctx, store.SessionFilter{Limit: 1000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list sessions")
	}
	snap.SessionsTotal = len(sessions)

	var qualitySum float64
	var qualityCount int
	for _, sess := range sessions {
		snap.ResultsStored += sess.TotalResults
		switch sess.Status {
		case model.SessionStatusCompleted:
			snap.SessionsCompleted++
		case model.SessionStatusFailed:
			snap.SessionsFailed++
		}

		llmSessions, err := c.store.ListLLMSessions(ctx, sess.ID)
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list llm sessions")
		}
		for _, ls := range llmSessions {
			if ls.Status == model.SessionStatusCompleted {
				qualitySum += ls.ExtractionQuality
				qualityCount++
			}
		}
	}
	if qualityCount > 0 {
		snap.AvgExtractionQuality = qualitySum / float64(qualityCount)
	}

	jobs, err := c.store.ListJobs(ctx, store.JobFilter{Limit: 1000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list jobs")
	}
	snap.JobsTotal = len(jobs)
	for _, j := range jobs {
		switch {
		case j.Status == model.JobStatusCompleted:
			snap.JobsCompleted++
		case j.Status == model.JobStatusFailed:
			snap.JobsFailed++
		default:
			snap.JobsActive++
		}
	}

	businesses, err := c.store.ListBusinesses(ctx, 10000, 0)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list businesses")
	}
	snap.Businesses = len(businesses)

	return snap, nil
}
