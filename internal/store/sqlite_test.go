package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func createTestSession(t *testing.T, st *SQLiteStore) *model.SearchSession {
	t.Helper()
	sess, err := st.CreateSearchSession(context.Background(), model.SearchSession{
		Queries:      []string{"plumbers austin", "plumbing companies austin tx"},
		Industry:     "plumbing",
		City:         "Austin",
		Country:      "US",
		ResultsLimit: 10,
	})
	require.NoError(t, err)
	return sess
}

// --- Search sessions ---

func TestSQLite_SearchSession_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created := createTestSession(t, st)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, model.SessionStatusPending, created.Status)

	got, err := st.GetSearchSession(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Queries, got.Queries)
	assert.Equal(t, "plumbing", got.Industry)
	assert.Equal(t, 10, got.ResultsLimit)
}

func TestSQLite_SearchSession_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetSearchSession(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListSearchSessions_FilterByStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := createTestSession(t, st)
	createTestSession(t, st)
	require.NoError(t, st.CompleteSearchSession(ctx, a.ID, model.SessionStatusCompleted, 2, 1.2))

	completed, err := st.ListSearchSessions(ctx, SessionFilter{Status: model.SessionStatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, a.ID, completed[0].ID)

	all, err := st.ListSearchSessions(ctx, SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// --- Search results ---

func TestSQLite_AddSearchResults_SkipsDuplicateURLs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	sess := createTestSession(t, st)

	stored, err := st.AddSearchResults(ctx, sess.ID, []model.SearchResult{
		{Position: 1, Title: "A", URL: "https://a.com", Query: "q1"},
		{Position: 2, Title: "B", URL: "https://b.com", Query: "q1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	// Re-submitting an overlapping page only stores the new URL.
	stored, err = st.AddSearchResults(ctx, sess.ID, []model.SearchResult{
		{Position: 1, Title: "A again", URL: "https://a.com", Query: "q2"},
		{Position: 3, Title: "C", URL: "https://c.com", Query: "q2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	results, err := st.ListSearchResults(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSQLite_CompleteSearchSession_RecountsFromRows(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	sess := createTestSession(t, st)

	_, err := st.AddSearchResults(ctx, sess.ID, []model.SearchResult{
		{Position: 1, URL: "https://a.com"},
		{Position: 2, URL: "https://a.com"}, // duplicate, skipped
		{Position: 3, URL: "https://b.com"},
	})
	require.NoError(t, err)

	require.NoError(t, st.CompleteSearchSession(ctx, sess.ID, model.SessionStatusCompleted, 2, 0.8))

	got, err := st.GetSearchSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalResults)
	assert.Equal(t, 2, got.SuccessfulQueries)
	assert.Equal(t, model.SessionStatusCompleted, got.Status)
}

func TestSQLite_MarkResultProcessed(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	sess := createTestSession(t, st)

	_, err := st.AddSearchResults(ctx, sess.ID, []model.SearchResult{
		{Position: 1, URL: "https://a.com"},
	})
	require.NoError(t, err)

	results, err := st.ListSearchResults(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].IsProcessed)

	require.NoError(t, st.MarkResultProcessed(ctx, results[0].ID))

	results, err = st.ListSearchResults(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, results[0].IsProcessed)
}

// --- LLM processing audit ---

func TestSQLite_LLMSession_Lifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	search := createTestSession(t, st)

	sess, err := st.CreateLLMSession(ctx, search.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusProcessing, sess.Status)
	assert.Nil(t, sess.EndedAt)

	require.NoError(t, st.CompleteLLMSession(ctx, sess.ID, 3, 1, 1, 0.75, model.SessionStatusCompleted))

	got, err := st.GetLLMSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.Accepted)
	assert.Equal(t, 1, got.Rejected)
	assert.Equal(t, 1, got.Errors)
	assert.InDelta(t, 0.75, got.ExtractionQuality, 1e-9)
	assert.NotNil(t, got.EndedAt)
}

func TestSQLite_RecordLLMResult_StoresPromptAndResponseVerbatim(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	search := createTestSession(t, st)
	sess, err := st.CreateLLMSession(ctx, search.ID, 1)
	require.NoError(t, err)

	prompt := "Analyze this search result:\nTitle: Acme"
	raw := "Sure! Here is the JSON:\n```json\n{\"isCompanyWebsite\": true}\n```"

	rec, err := st.RecordLLMResult(ctx, model.LLMProcessingResult{
		SearchResultID: "sr-1",
		LLMSessionID:   sess.ID,
		Status:         model.ResultStatusAccepted,
		Confidence:     0.9,
		Business: &model.Business{
			Name:             "Acme Plumbing",
			Website:          "https://acmeplumbing.com",
			IsCompanyWebsite: true,
			Confidence:       0.9,
		},
		Prompt:      prompt,
		RawResponse: raw,
	})
	require.NoError(t, err)

	results, err := st.ListLLMResults(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, prompt, results[0].Prompt)
	assert.Equal(t, raw, results[0].RawResponse)
	require.NotNil(t, results[0].Business)
	assert.Equal(t, "Acme Plumbing", results[0].Business.Name)
	assert.Equal(t, rec.ID, results[0].ID)
}

func TestSQLite_RecordLLMResult_OnePerResultPerSession(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	search := createTestSession(t, st)
	sess, err := st.CreateLLMSession(ctx, search.ID, 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := st.RecordLLMResult(ctx, model.LLMProcessingResult{
			SearchResultID: "sr-1",
			LLMSessionID:   sess.ID,
			Status:         model.ResultStatusRejected,
		})
		require.NoError(t, err)
	}

	results, err := st.ListLLMResults(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

// --- Businesses ---

func TestSQLite_SaveBusiness_UpsertByWebsite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.SaveBusiness(ctx, model.BusinessRecord{
		Name:       "Acme Plumbing",
		Website:    "acmeplumbing.com",
		City:       "Austin",
		Categories: []string{"Plumbing"},
		Confidence: 0.8,
	})
	require.NoError(t, err)

	second, err := st.SaveBusiness(ctx, model.BusinessRecord{
		Name:       "Acme Plumbing LLC",
		Website:    "acmeplumbing.com",
		Confidence: 0.95,
	})
	require.NoError(t, err)

	// Same row, original id preserved.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Acme Plumbing LLC", second.Name)
	assert.InDelta(t, 0.95, second.Confidence, 1e-9)

	list, err := st.ListBusinesses(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLite_SetBusinessNotionPage(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b, err := st.SaveBusiness(ctx, model.BusinessRecord{Name: "Acme", Website: "acme.com"})
	require.NoError(t, err)

	require.NoError(t, st.SetBusinessNotionPage(ctx, b.ID, "page-123"))

	got, err := st.GetBusinessByWebsite(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "page-123", got.NotionPageID)
}

// --- Jobs ---

func TestSQLite_Job_Lifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.AddJob(ctx, model.Job{
		Type:     model.JobTypeKeywordGeneration,
		Metadata: map[string]any{"industry": "plumbing"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, job.Status)

	job.Status = model.JobStatusProcessing
	job.Progress = 40
	require.NoError(t, st.UpdateJob(ctx, *job))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "plumbing", got.Metadata["industry"])

	job.Status = model.JobStatusCompleted
	job.Progress = 100
	job.Result = json.RawMessage(`{"keywords": ["emergency plumber"]}`)
	require.NoError(t, st.UpdateJob(ctx, *job))

	got, err = st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keywords": ["emergency plumber"]}`, string(got.Result))
}

func TestSQLite_ListActiveJobs_ExcludesTerminal(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	active, err := st.AddJob(ctx, model.Job{Type: model.JobTypeBasicEnrichment})
	require.NoError(t, err)

	done, err := st.AddJob(ctx, model.Job{Type: model.JobTypeBasicEnrichment})
	require.NoError(t, err)
	done.Status = model.JobStatusCompleted
	require.NoError(t, st.UpdateJob(ctx, *done))

	failed, err := st.AddJob(ctx, model.Job{Type: model.JobTypeKeywordGeneration})
	require.NoError(t, err)
	failed.Status = model.JobStatusFailed
	require.NoError(t, st.UpdateJob(ctx, *failed))

	jobs, err := st.ListActiveJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, active.ID, jobs[0].ID)
}

func TestSQLite_DeleteJob(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	job, err := st.AddJob(ctx, model.Job{Type: model.JobTypeEnhancedEnrichment})
	require.NoError(t, err)

	require.NoError(t, st.DeleteJob(ctx, job.ID))

	got, err := st.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = st.DeleteJob(ctx, job.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
}
