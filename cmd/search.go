package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/search"
)

var searchFlags struct {
	limit        int
	page         int
	maxAgeDays   int
	requireDates bool
	exclude      []string
	trace        bool
	classify     bool
	industry     string
	location     string
	city         string
	state        string
	country      string
	session      string
}

var searchCmd = &cobra.Command{
	Use:   "search <query> [query...]",
	Short: "Run search queries and optionally classify the results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		resp, err := env.Search.Run(cmd.Context(), search.Request{
			Queries:                 args,
			ResultsLimit:            searchFlags.limit,
			Page:                    searchFlags.page,
			MaxAgeDays:              searchFlags.maxAgeDays,
			RequireDateFiltering:    searchFlags.requireDates,
			Filters:                 model.SearchFilters{ExcludeDomains: searchFlags.exclude},
			EnableTraceability:      searchFlags.trace,
			Classify:                searchFlags.classify,
			Industry:                searchFlags.industry,
			Location:                searchFlags.location,
			City:                    searchFlags.city,
			StateProvince:           searchFlags.state,
			Country:                 searchFlags.country,
			ExistingSearchSessionID: searchFlags.session,
		})
		if err != nil {
			return err
		}

		if resp.Traceability.Enabled {
			zap.L().Info("search session recorded",
				zap.String("sessionId", resp.Traceability.SessionID),
				zap.Int("resultsStored", resp.Traceability.ResultsStored))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", 0, "results per query (default from config)")
	searchCmd.Flags().IntVar(&searchFlags.page, "page", 1, "result page")
	searchCmd.Flags().IntVar(&searchFlags.maxAgeDays, "max-age-days", 0, "only results indexed within N days")
	searchCmd.Flags().BoolVar(&searchFlags.requireDates, "require-dates", false, "drop results the provider cannot date-filter")
	searchCmd.Flags().StringSliceVar(&searchFlags.exclude, "exclude", nil, "domains to exclude from results")
	searchCmd.Flags().BoolVar(&searchFlags.trace, "trace", true, "record the search session")
	searchCmd.Flags().BoolVar(&searchFlags.classify, "classify", false, "classify results into businesses")
	searchCmd.Flags().StringVar(&searchFlags.industry, "industry", "", "target industry for classification")
	searchCmd.Flags().StringVar(&searchFlags.location, "location", "", "target location for classification")
	searchCmd.Flags().StringVar(&searchFlags.city, "city", "", "target city")
	searchCmd.Flags().StringVar(&searchFlags.state, "state", "", "target state or province")
	searchCmd.Flags().StringVar(&searchFlags.country, "country", "", "target country")
	searchCmd.Flags().StringVar(&searchFlags.session, "session", "", "continue an existing search session")
	rootCmd.AddCommand(searchCmd)
}
