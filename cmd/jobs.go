package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/model"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
)

var jobsFlags struct {
	status   string
	jobType  string
	limit    int
	enhanced bool
	watch    bool
	format   string
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage background keyword and enrichment jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		jobList, err := env.Registry.List(cmd.Context(), store.JobFilter{
			Status: model.JobStatus(jobsFlags.status),
			Type:   model.JobType(jobsFlags.jobType),
			Limit:  jobsFlags.limit,
		})
		if err != nil {
			return err
		}
		return writeFormatted(os.Stdout, jobsFlags.format, jobList)
	},
}

var jobsKeywordsCmd = &cobra.Command{
	Use:   "keywords <industry>",
	Short: "Submit a keyword generation job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Submitter.SubmitKeywords(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		zap.L().Info("keyword job submitted", zap.String("jobId", job.ID))
		return runPollerIfWatching(cmd, env, job.ID)
	},
}

var jobsEnrichCmd = &cobra.Command{
	Use:   "enrich <website>",
	Short: "Submit a business enrichment job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		job, err := env.Submitter.SubmitEnrichment(cmd.Context(), args[0], jobsFlags.enhanced)
		if err != nil {
			return err
		}
		zap.L().Info("enrichment job submitted",
			zap.String("jobId", job.ID), zap.Bool("enhanced", jobsFlags.enhanced))
		return runPollerIfWatching(cmd, env, job.ID)
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		return env.Registry.Delete(cmd.Context(), args[0])
	},
}

// runPollerIfWatching drives the poll loop inline until the submitted job
// reaches a terminal status. Without --watch the command returns after
// submission; the serve poller picks the job up.
func runPollerIfWatching(cmd *cobra.Command, env *env, jobID string) error {
	if !jobsFlags.watch {
		return nil
	}
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "jobs: watch cancelled")
		case <-time.After(time.Duration(cfg.Jobs.PollIntervalSecs) * time.Second):
		}
		env.Processor.Tick(ctx)

		job, err := env.Registry.Get(ctx, jobID)
		if err != nil {
			return err
		}
		if job == nil {
			return eris.New("jobs: job disappeared while watching")
		}
		zap.L().Info("job progress",
			zap.String("jobId", job.ID),
			zap.String("status", string(job.Status)),
			zap.Int("progress", job.Progress))
		if job.Status.IsTerminal() {
			return writeFormatted(os.Stdout, jobsFlags.format, job)
		}
	}
}

func init() {
	jobsCmd.PersistentFlags().StringVar(&jobsFlags.format, "format", "json", "output format (json or yaml)")
	jobsListCmd.Flags().StringVar(&jobsFlags.status, "status", "", "filter by status")
	jobsListCmd.Flags().StringVar(&jobsFlags.jobType, "type", "", "filter by job type")
	jobsListCmd.Flags().IntVar(&jobsFlags.limit, "limit", 50, "max jobs to list")
	jobsKeywordsCmd.Flags().BoolVar(&jobsFlags.watch, "watch", false, "poll until the job completes")
	jobsEnrichCmd.Flags().BoolVar(&jobsFlags.watch, "watch", false, "poll until the job completes")
	jobsEnrichCmd.Flags().BoolVar(&jobsFlags.enhanced, "enhanced", false, "request enhanced enrichment")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsKeywordsCmd)
	jobsCmd.AddCommand(jobsEnrichCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
	rootCmd.AddCommand(jobsCmd)
}
