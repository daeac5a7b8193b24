package main

import (
	"github.com/spf13/cobra"
	"github.com/voterlookup/epic-extractor/internal/cli"
	"github.com/voterlookup/epic-extractor/internal/config"
	"github.com/voterlookup/epic-extractor/internal/store"
	"github.com/voterlookup/epic-extractor/pkg/log"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting migration")
		defer zap.S().Info("Db migrated")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Errorw("initializing data store", "error", err)
			return err
		}

		st := store.NewStore(db)
		defer st.Close()

		if err := cli.Migrate(cmd.Context(), cfg, db); err != nil {
			zap.S().Errorw("migrating", "error", err)
			return err
		}

		return nil
	},
}
