package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/pkg/notion"
)

var notionFlags struct {
	limit int
	db    string
}

var notionSyncCmd = &cobra.Command{
	Use:   "notion-sync",
	Short: "Publish extracted businesses to the Notion directory database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Notion.Token == "" {
			return eris.New("notion token is not configured")
		}
		dbID := notionFlags.db
		if dbID == "" {
			dbID = cfg.Notion.DirectoryDB
		}
		if dbID == "" {
			return eris.New("notion directory database is not configured")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		ctx := cmd.Context()
		businesses, err := env.Store.ListBusinesses(ctx, notionFlags.limit, 0)
		if err != nil {
			return err
		}

		syncer := notion.NewSyncer(notion.NewClient(cfg.Notion.Token), dbID)
		stats, err := syncer.SyncAll(ctx, businesses, func(businessID, pageID string) {
			if err := env.Store.SetBusinessNotionPage(ctx, businessID, pageID); err != nil {
				zap.L().Warn("notion-sync: record page id failed",
					zap.String("businessId", businessID), zap.Error(err))
			}
		})
		if err != nil {
			return err
		}

		zap.L().Info("notion sync complete",
			zap.Int("created", stats.Created),
			zap.Int("updated", stats.Updated),
			zap.Int("failed", stats.Failed))
		return nil
	},
}

func init() {
	notionSyncCmd.Flags().IntVar(&notionFlags.limit, "limit", 10000, "max businesses to sync")
	notionSyncCmd.Flags().StringVar(&notionFlags.db, "db", "", "directory database ID (default from config)")
	rootCmd.AddCommand(notionSyncCmd)
}
