package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

var sessionsFlags struct {
	status   string
	industry string
	limit    int
	offset   int
	format   string
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect recorded search sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List search sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sessions, err := env.Store.ListSearchSessions(cmd.Context(), store.SessionFilter{
			Status:   model.SessionStatus(sessionsFlags.status),
			Industry: sessionsFlags.industry,
			Limit:    sessionsFlags.limit,
			Offset:   sessionsFlags.offset,
		})
		if err != nil {
			return err
		}
		return writeFormatted(os.Stdout, sessionsFlags.format, sessions)
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session with its results and model decisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		sess, err := env.Store.GetSearchSession(ctx, args[0])
		if err != nil {
			return err
		}
		if sess == nil {
			return eris.New("session not found")
		}

		results, err := env.Store.ListSearchResults(ctx, sess.ID)
		if err != nil {
			return err
		}
		llmSessions, err := env.Store.ListLLMSessions(ctx, sess.ID)
		if err != nil {
			return err
		}

		type llmDetail struct {
			Session model.LLMProcessingSession  `json:"session" yaml:"session"`
			Results []model.LLMProcessingResult `json:"results" yaml:"results"`
		}
		detail := struct {
			Session     model.SearchSession  `json:"session" yaml:"session"`
			Results     []model.SearchResult `json:"results" yaml:"results"`
			LLMSessions []llmDetail          `json:"llmSessions" yaml:"llmSessions"`
		}{Session: *sess, Results: results}

		for _, ls := range llmSessions {
			llmResults, err := env.Store.ListLLMResults(ctx, ls.ID)
			if err != nil {
				return err
			}
			detail.LLMSessions = append(detail.LLMSessions, llmDetail{Session: ls, Results: llmResults})
		}

		return writeFormatted(os.Stdout, sessionsFlags.format, detail)
	},
}

// writeFormatted renders v as indented JSON or YAML.
func writeFormatted(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(v)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return eris.New("unknown output format " + format)
	}
}

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsFlags.format, "format", "json", "output format (json or yaml)")
	sessionsListCmd.Flags().StringVar(&sessionsFlags.status, "status", "", "filter by status")
	sessionsListCmd.Flags().StringVar(&sessionsFlags.industry, "industry", "", "filter by industry")
	sessionsListCmd.Flags().IntVar(&sessionsFlags.limit, "limit", 50, "max sessions to list")
	sessionsListCmd.Flags().IntVar(&sessionsFlags.offset, "offset", 0, "list offset")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
