package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

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

func TestExportBusinesses(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.SaveBusiness(ctx, model.BusinessRecord{
		Name:       "Acme Plumbing",
		Website:    "acmeplumbing.ca",
		City:       "Calgary",
		Categories: []string{"Plumbing", "Heating"},
		Confidence: 0.9,
	})
	require.NoError(t, err)
	_, err = st.SaveBusiness(ctx, model.BusinessRecord{
		Name:    "Beta Roofing",
		Website: "betaroofing.com",
	})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "businesses.xlsx")
	n, err := exportBusinesses(ctx, st, out, 100, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3) // header plus two businesses

	var names []string
	for _, row := range sheet.Rows[1:] {
		names = append(names, row.Cells[0].String())
	}
	assert.ElementsMatch(t, []string{"Acme Plumbing", "Beta Roofing"}, names)
}

func TestExportBusinesses_SessionFilter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	sess, err := st.CreateSearchSession(ctx, model.SearchSession{
		Queries: []string{"plumbers calgary"},
	})
	require.NoError(t, err)
	llmSess, err := st.CreateLLMSession(ctx, sess.ID, 1)
	require.NoError(t, err)

	linked, err := st.SaveBusiness(ctx, model.BusinessRecord{
		Name: "Acme Plumbing", Website: "acmeplumbing.ca",
	})
	require.NoError(t, err)
	_, err = st.SaveBusiness(ctx, model.BusinessRecord{
		Name: "Unrelated Roofing", Website: "unrelated.com",
	})
	require.NoError(t, err)

	_, err = st.RecordLLMResult(ctx, model.LLMProcessingResult{
		SearchResultID: "sr-1",
		LLMSessionID:   llmSess.ID,
		Status:         model.ResultStatusAccepted,
		BusinessID:     linked.ID,
	})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "session.xlsx")
	n, err := exportBusinesses(ctx, st, out, 100, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 2)
	assert.Equal(t, "Acme Plumbing", f.Sheets[0].Rows[1].Cells[0].String())
}

func TestExportBusinesses_Empty(t *testing.T) {
	st := newTestStore(t)
	out := filepath.Join(t.TempDir(), "empty.xlsx")

	n, err := exportBusinesses(context.Background(), st, out, 100, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	f, err := xlsx.OpenFile(out)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 1) // header only
}

func TestWriteFormatted_JSON(t *testing.T) {
	var buf bytes.Buffer
	err := writeFormatted(&buf, "json", map[string]string{"hello": "world"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"hello": "world"`)
}

func TestWriteFormatted_YAML(t *testing.T) {
	var buf bytes.Buffer
	err := writeFormatted(&buf, "yaml", map[string]string{"hello": "world"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello: world")
}

func TestWriteFormatted_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := writeFormatted(&buf, "toml", nil)
	assert.Error(t, err)
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "postgres", driverName(""))
	assert.Equal(t, "sqlite", driverName("sqlite"))
}
