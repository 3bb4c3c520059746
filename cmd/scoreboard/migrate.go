package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/playperu/scoreboard/internal/database"
	"github.com/playperu/scoreboard/internal/migrations"
)

func newMigrateCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the SQLite database at DB_PATH.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(stdout)
			if err != nil {
				return err
			}

			db, err := database.Open(cmd.Context(), cfg.DBPath)
			if err != nil {
				return fmt.Errorf("connecting to sqlite: %w", err)
			}
			defer db.Close()

			if err := migrations.Run(db); err != nil {
				return err
			}
			version, err := migrations.Version(db)
			if err != nil {
				return err
			}
			logger.Info("schema up to date", "path", cfg.DBPath, "version", version)
			return nil
		},
	}
}
