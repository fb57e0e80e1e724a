package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
)

// Syncer upserts business records into one Notion database. The Website
// property is the upsert key, so re-running a sync updates pages in place
// instead of duplicating them.
type Syncer struct {
	client Client
	dbID   string
}

// NewSyncer creates a Syncer targeting the given database.
func NewSyncer(client Client, dbID string) *Syncer {
	return &Syncer{client: client, dbID: dbID}
}

// SyncStats summarizes one SyncAll run.
type SyncStats struct {
	Created int
	Updated int
	Failed  int
}

// SyncBusiness upserts one business. Returns the page ID and whether a
// new page was created.
func (s *Syncer) SyncBusiness(ctx context.Context, b model.BusinessRecord) (string, bool, error) {
	websiteURL := normalizeURL(b.Website)
	props := buildBusinessProperties(b, websiteURL)

	existing, err := FindPageByWebsite(ctx, s.client, s.dbID, websiteURL)
	if err != nil {
		return "", false, eris.Wrap(err, "notion: sync lookup")
	}

	if existing != nil {
		page, err := s.client.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{
			Properties: props,
		})
		if err != nil {
			return "", false, eris.Wrap(err, fmt.Sprintf("notion: sync update %s", b.Website))
		}
		return string(page.ID), false, nil
	}

	page, err := s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.dbID),
		},
		Properties: props,
	})
	if err != nil {
		return "", false, eris.Wrap(err, fmt.Sprintf("notion: sync create %s", b.Website))
	}
	return string(page.ID), true, nil
}

// SyncAll upserts every business, calling onSynced after each successful
// page write so callers can persist the page ID. Individual failures are
// logged and counted; only context cancellation stops the run.
func (s *Syncer) SyncAll(ctx context.Context, businesses []model.BusinessRecord, onSynced func(businessID, pageID string)) (*SyncStats, error) {
	stats := &SyncStats{}
	for _, b := range businesses {
		if ctx.Err() != nil {
			return stats, eris.Wrap(ctx.Err(), "notion: sync cancelled")
		}
		pageID, created, err := s.SyncBusiness(ctx, b)
		if err != nil {
			stats.Failed++
			zap.L().Warn("notion: sync business failed",
				zap.String("website", b.Website), zap.Error(err))
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
		if onSynced != nil {
			onSynced(b.ID, pageID)
		}
	}
	return stats, nil
}

// buildBusinessProperties maps a business record onto the directory
// database schema: Name title, Website URL, Location rich_text,
// Categories multi_select, Confidence number, Source URL.
func buildBusinessProperties(b model.BusinessRecord, websiteURL string) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: b.Name}},
			},
		},
		"Website": notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  websiteURL,
		},
		"Confidence": notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: b.Confidence,
		},
	}

	if loc := joinLocation(b.City, b.StateProvince, b.Country); loc != "" {
		props["Location"] = notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: loc}},
			},
		}
	}

	if len(b.Categories) > 0 {
		opts := make([]notionapi.Option, 0, len(b.Categories))
		for _, cat := range b.Categories {
			opts = append(opts, notionapi.Option{Name: cat})
		}
		props["Categories"] = notionapi.MultiSelectProperty{
			Type:        notionapi.PropertyTypeMultiSelect,
			MultiSelect: opts,
		}
	}

	if b.SourceURL != "" {
		props["Source"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  b.SourceURL,
		}
	}

	return props
}

// normalizeURL ensures a stored bare domain has an https:// scheme prefix.
func normalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}

func joinLocation(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
