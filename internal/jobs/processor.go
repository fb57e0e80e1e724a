package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/pkg/enrich"
)

const (
	// simulatedProgressStep advances progress when the external system
	// reports no progress of its own.
	simulatedProgressStep = 10
	// simulatedProgressCap keeps simulated progress below completion; only
	// a real terminal signal reaches 100.
	simulatedProgressCap = 90

	defaultMaxPollFailures = 5
)

// Processor drives the poll loop over all non-terminal jobs.
type Processor struct {
	registry        *Registry
	client          enrich.Client
	interval        time.Duration
	maxPollFailures int
}

// NewProcessor creates a Processor. interval <= 0 defaults to 5s,
// maxPollFailures <= 0 to 5.
func NewProcessor(registry *Registry, client enrich.Client, interval time.Duration, maxPollFailures int) *Processor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxPollFailures <= 0 {
		maxPollFailures = defaultMaxPollFailures
	}
	return &Processor{
		registry:        registry,
		client:          client,
		interval:        interval,
		maxPollFailures: maxPollFailures,
	}
}

// Run ticks until the context is cancelled.
func (p *Processor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	zap.L().Info("jobs: poll loop started", zap.Duration("interval", p.interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("jobs: poll loop stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick polls every job in the working set once. Safe to call at any
// cadence; terminal jobs drop out of the set so re-polling is a no-op.
func (p *Processor) Tick(ctx context.Context) {
	active, err := p.registry.ListActive(ctx)
	if err != nil {
		zap.L().Warn("jobs: list active failed", zap.Error(err))
		return
	}
	for _, job := range active {
		if err := ctx.Err(); err != nil {
			return
		}
		p.pollOne(ctx, job)
	}
}

func (p *Processor) pollOne(ctx context.Context, job model.Job) {
	if job.PollURL == "" {
		// Nothing to ask; nudge simulated progress so the UI shows life.
		p.advanceSimulated(ctx, job, nil)
		return
	}

	resp, err := p.client.Poll(ctx, job.PollURL)
	if err != nil {
		job.PollFailures++
		zap.L().Warn("jobs: poll failed",
			zap.String("id", job.ID),
			zap.Int("failures", job.PollFailures),
			zap.Error(err),
		)
		if job.PollFailures >= p.maxPollFailures {
			p.finish(ctx, job, model.JobStatusFailed, nil, err.Error())
			return
		}
		// Keep the last known state; the next tick retries.
		p.update(ctx, job)
		return
	}
	job.PollFailures = 0

	switch resp.Status {
	case "completed":
		p.finish(ctx, job, model.JobStatusCompleted, resp.Result, "")
	case "failed":
		p.finish(ctx, job, model.JobStatusFailed, resp.Result, resp.Error)
	default:
		if resp.Status == string(model.JobStatusActive) {
			job.Status = model.JobStatusActive
		} else {
			job.Status = model.JobStatusProcessing
		}
		p.advanceSimulated(ctx, job, resp.Progress)
	}
}

// advanceSimulated adopts externally reported progress when present;
// otherwise it steps the local simulation, capped below completion.
func (p *Processor) advanceSimulated(ctx context.Context, job model.Job, reported *int) {
	if job.Status == model.JobStatusQueued {
		job.Status = model.JobStatusProcessing
	}
	if reported != nil {
		if *reported > job.Progress && *reported <= 100 {
			job.Progress = *reported
		}
	} else if job.Progress < simulatedProgressCap {
		job.Progress += simulatedProgressStep
		if job.Progress > simulatedProgressCap {
			job.Progress = simulatedProgressCap
		}
	}
	p.update(ctx, job)
}

// finish moves a job into a terminal state. completedAt is written once,
// on the first terminal transition.
func (p *Processor) finish(ctx context.Context, job model.Job, status model.JobStatus, result []byte, errMsg string) {
	job.Status = status
	job.Error = errMsg
	if result != nil {
		job.Result = result
	}
	if status == model.JobStatusCompleted {
		job.Progress = 100
	}
	if job.CompletedAt == nil {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
	p.update(ctx, job)

	zap.L().Info("jobs: terminal",
		zap.String("id", job.ID),
		zap.String("status", string(status)),
	)
}

func (p *Processor) update(ctx context.Context, job model.Job) {
	if err := p.registry.Update(ctx, job); err != nil {
		zap.L().Warn("jobs: update failed", zap.String("id", job.ID), zap.Error(err))
	}
}
