package main

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

var exportFlags struct {
	out     string
	limit   int
	session string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export extracted businesses to an xlsx workbook",
	Long:  "Writes businesses to a spreadsheet, optionally restricted to those extracted during one search session.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := exportBusinesses(cmd.Context(), env.Store, exportFlags.out, exportFlags.limit, exportFlags.session)
		if err != nil {
			return err
		}
		zap.L().Info("exported businesses", zap.Int("count", n), zap.String("file", exportFlags.out))
		return nil
	},
}

func exportBusinesses(ctx context.Context, st store.Store, path string, limit int, sessionID string) (int, error) {
	businesses, err := st.ListBusinesses(ctx, limit, 0)
	if err != nil {
		return 0, eris.Wrap(err, "export: list businesses")
	}

	if sessionID != "" {
		keep, err := sessionBusinessIDs(ctx, st, sessionID)
		if err != nil {
			return 0, err
		}
		var filtered []model.BusinessRecord
		for _, b := range businesses {
			if keep[b.ID] {
				filtered = append(filtered, b)
			}
		}
		businesses = filtered
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Businesses")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Name", "Website", "City", "State/Province", "Country", "Categories", "Confidence", "Source", "Notion Page"} {
		header.AddCell().SetString(h)
	}

	for _, b := range businesses {
		row := sheet.AddRow()
		row.AddCell().SetString(b.Name)
		row.AddCell().SetString(b.Website)
		row.AddCell().SetString(b.City)
		row.AddCell().SetString(b.StateProvince)
		row.AddCell().SetString(b.Country)
		row.AddCell().SetString(strings.Join(b.Categories, ", "))
		row.AddCell().SetFloat(b.Confidence)
		row.AddCell().SetString(b.SourceURL)
		row.AddCell().SetString(b.NotionPageID)
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrap(err, "export: save workbook")
	}
	return len(businesses), nil
}

// sessionBusinessIDs collects the businesses saved while classifying one
// search session, via the model-decision audit rows.
func sessionBusinessIDs(ctx context.Context, st store.Store, sessionID string) (map[string]bool, error) {
	llmSessions, err := st.ListLLMSessions(ctx, sessionID)
	if err != nil {
		return nil, eris.Wrap(err, "export: list llm sessions")
	}
	ids := make(map[string]bool)
	for _, ls := range llmSessions {
		results, err := st.ListLLMResults(ctx, ls.ID)
		if err != nil {
			return nil, eris.Wrap(err, "export: list llm results")
		}
		for _, r := range results {
			if r.BusinessID != "" {
				ids[r.BusinessID] = true
			}
		}
	}
	return ids, nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.out, "out", "businesses.xlsx", "output file path")
	exportCmd.Flags().IntVar(&exportFlags.limit, "limit", 10000, "max businesses to export")
	exportCmd.Flags().StringVar(&exportFlags.session, "session", "", "only businesses from this search session")
	rootCmd.AddCommand(exportCmd)
}
