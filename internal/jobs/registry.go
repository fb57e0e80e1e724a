// Package jobs tracks asynchronous external work: submission to the
// enrichment API, durable bookkeeping, and the background poll loop.
package jobs

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

// Registry is the job repository. The persistent store is the source of
// truth; an in-memory map serves only as a read-through cache so that
// poll-heavy reads skip the database.
type Registry struct {
	store store.Store

	mu    sync.RWMutex
	cache map[string]model.Job
}

// NewRegistry creates a Registry over the given store.
func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st, cache: make(map[string]model.Job)}
}

// Add persists a new job and primes the cache.
func (r *Registry) Add(ctx context.Context, job model.Job) (*model.Job, error) {
	saved, err := r.store.AddJob(ctx, job)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: add")
	}
	r.put(*saved)
	return saved, nil
}

// Get returns the job by id, from cache when possible. Returns nil when
// the job does not exist.
func (r *Registry) Get(ctx context.Context, id string) (*model.Job, error) {
	r.mu.RLock()
	cached, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	job, err := r.store.GetJob(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: get")
	}
	if job != nil {
		r.put(*job)
	}
	return job, nil
}

// Update writes the job to the store first, then refreshes the cache.
func (r *Registry) Update(ctx context.Context, job model.Job) error {
	if err := r.store.UpdateJob(ctx, job); err != nil {
		return eris.Wrap(err, "jobs: update")
	}
	r.put(job)
	return nil
}

// Delete removes the job permanently.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteJob(ctx, id); err != nil {
		return eris.Wrap(err, "jobs: delete")
	}
	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()
	return nil
}

// List returns jobs matching the filter, straight from the store.
func (r *Registry) List(ctx context.Context, filter store.JobFilter) ([]model.Job, error) {
	jobs, err := r.store.ListJobs(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: list")
	}
	return jobs, nil
}

// ListActive returns the poller's working set: every job not yet in a
// terminal state. Always hits the store so a restarted process resumes
// polling jobs submitted before the restart.
func (r *Registry) ListActive(ctx context.Context) ([]model.Job, error) {
	jobs, err := r.store.ListActiveJobs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "jobs: list active")
	}
	for _, j := range jobs {
		r.put(j)
	}
	return jobs, nil
}

func (r *Registry) put(job model.Job) {
	r.mu.Lock()
	r.cache[job.ID] = job
	r.mu.Unlock()
}
