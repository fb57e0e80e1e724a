package monitoring

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestCollect(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sess, err := st.CreateSearchSession(ctx, model.SearchSession{Queries: []string{"q"}})
	require.NoError(t, err)
	_, err = st.AddSearchResults(ctx, sess.ID, []model.SearchResult{
		{Position: 1, URL: "https://a.com"},
		{Position: 2, URL: "https://b.com"},
	})
	require.NoError(t, err)
	require.NoError(t, st.CompleteSearchSession(ctx, sess.ID, model.SessionStatusCompleted, 1, 0.5))

	llm, err := st.CreateLLMSession(ctx, sess.ID, 2)
	require.NoError(t, err)
	require.NoError(t, st.CompleteLLMSession(ctx, llm.ID, 1, 1, 0, 0.5, model.SessionStatusCompleted))

	job, err := st.AddJob(ctx, model.Job{Type: model.JobTypeKeywordGeneration})
	require.NoError(t, err)
	job.Status = model.JobStatusCompleted
	require.NoError(t, st.UpdateJob(ctx, *job))
	_, err = st.AddJob(ctx, model.Job{Type: model.JobTypeBasicEnrichment})
	require.NoError(t, err)

	_, err = st.SaveBusiness(ctx, model.BusinessRecord{Name: "Acme", Website: "acme.com"})
	require.NoError(t, err)

	snap, err := NewCollector(st).Collect(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.SessionsTotal)
	assert.Equal(t, 1, snap.SessionsCompleted)
	assert.Equal(t, 2, snap.ResultsStored)
	assert.InDelta(t, 0.5, snap.AvgExtractionQuality, 1e-9)
	assert.Equal(t, 2, snap.JobsTotal)
	assert.Equal(t, 1, snap.JobsCompleted)
	assert.Equal(t, 1, snap.JobsActive)
	assert.Equal(t, 1, snap.Businesses)
	assert.False(t, snap.CollectedAt.IsZero())
}

func TestCollect_Empty(t *testing.T) {
	st := newTestStore(t)

	snap, err := NewCollector(st).Collect(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.SessionsTotal)
	assert.Zero(t, snap.AvgExtractionQuality)
	assert.Zero(t, snap.JobsTotal)
}
