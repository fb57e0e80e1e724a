package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
)

func emptyQueryResponse() *notionapi.DatabaseQueryResponse {
	return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{}}
}

func TestSyncBusiness_CreatesWhenMissing(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-dir", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(emptyQueryResponse(), nil).Once()
	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		if req.Parent.DatabaseID != notionapi.DatabaseID("db-dir") {
			return false
		}
		up, ok := req.Properties["Website"].(notionapi.URLProperty)
		return ok && up.URL == "https://acmeplumbing.ca"
	})).Return(&notionapi.Page{ID: "page-1"}, nil).Once()

	syncer := NewSyncer(mc, "db-dir")
	pageID, created, err := syncer.SyncBusiness(ctx, model.BusinessRecord{
		ID:      "b-1",
		Name:    "Acme Plumbing",
		Website: "acmeplumbing.ca",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "page-1", pageID)
	mc.AssertExpectations(t)
}

func TestSyncBusiness_UpdatesExistingPage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-dir", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "page-old"}},
		}, nil).Once()
	mc.On("UpdatePage", ctx, "page-old", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "page-old"}, nil).Once()

	syncer := NewSyncer(mc, "db-dir")
	pageID, created, err := syncer.SyncBusiness(ctx, model.BusinessRecord{
		ID:      "b-1",
		Name:    "Acme Plumbing",
		Website: "acmeplumbing.ca",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "page-old", pageID)
	mc.AssertExpectations(t)
}

func TestSyncAll_CountsAndWriteBack(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-dir", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(emptyQueryResponse(), nil).Twice()
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(&notionapi.Page{ID: "page-new"}, nil).Twice()

	syncer := NewSyncer(mc, "db-dir")
	synced := map[string]string{}
	stats, err := syncer.SyncAll(ctx, []model.BusinessRecord{
		{ID: "b-1", Name: "Acme", Website: "acme.com"},
		{ID: "b-2", Name: "Beta", Website: "beta.io"},
	}, func(businessID, pageID string) {
		synced[businessID] = pageID
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
	assert.Zero(t, stats.Updated)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, "page-new", synced["b-1"])
	assert.Equal(t, "page-new", synced["b-2"])
	mc.AssertExpectations(t)
}

func TestSyncAll_FailureCountedNotFatal(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-dir", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()
	mc.On("QueryDatabase", ctx, "db-dir", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(emptyQueryResponse(), nil).Once()
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(&notionapi.Page{ID: "page-new"}, nil).Once()

	syncer := NewSyncer(mc, "db-dir")
	stats, err := syncer.SyncAll(ctx, []model.BusinessRecord{
		{ID: "b-1", Website: "acme.com"},
		{ID: "b-2", Website: "beta.io"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Created)
	mc.AssertExpectations(t)
}

func TestSyncAll_ContextCancelled(t *testing.T) {
	mc := new(MockClient)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	syncer := NewSyncer(mc, "db-dir")
	_, err := syncer.SyncAll(ctx, []model.BusinessRecord{{ID: "b-1", Website: "acme.com"}}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestBuildBusinessProperties(t *testing.T) {
	props := buildBusinessProperties(model.BusinessRecord{
		Name:          "Acme Plumbing",
		Website:       "acmeplumbing.ca",
		City:          "Calgary",
		StateProvince: "AB",
		Country:       "Canada",
		Categories:    []string{"Plumbing", "Heating"},
		Confidence:    0.9,
		SourceURL:     "https://acmeplumbing.ca/about",
	}, "https://acmeplumbing.ca")

	title, ok := props["Name"].(notionapi.TitleProperty)
	require.True(t, ok)
	assert.Equal(t, "Acme Plumbing", title.Title[0].Text.Content)

	website, ok := props["Website"].(notionapi.URLProperty)
	require.True(t, ok)
	assert.Equal(t, "https://acmeplumbing.ca", website.URL)

	loc, ok := props["Location"].(notionapi.RichTextProperty)
	require.True(t, ok)
	assert.Equal(t, "Calgary, AB, Canada", loc.RichText[0].Text.Content)

	cats, ok := props["Categories"].(notionapi.MultiSelectProperty)
	require.True(t, ok)
	require.Len(t, cats.MultiSelect, 2)
	assert.Equal(t, "Plumbing", cats.MultiSelect[0].Name)

	conf, ok := props["Confidence"].(notionapi.NumberProperty)
	require.True(t, ok)
	assert.InDelta(t, 0.9, conf.Number, 1e-9)

	source, ok := props["Source"].(notionapi.URLProperty)
	require.True(t, ok)
	assert.Equal(t, "https://acmeplumbing.ca/about", source.URL)
}

func TestBuildBusinessProperties_Minimal(t *testing.T) {
	props := buildBusinessProperties(model.BusinessRecord{
		Name:    "Beta",
		Website: "beta.io",
	}, "https://beta.io")

	assert.Contains(t, props, "Name")
	assert.Contains(t, props, "Website")
	assert.NotContains(t, props, "Location")
	assert.NotContains(t, props, "Categories")
	assert.NotContains(t, props, "Source")
}
