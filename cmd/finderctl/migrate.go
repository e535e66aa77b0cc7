package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"campusfinder/internal/database"
	"campusfinder/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := repository.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		log.Info().Msg("schema is up to date")
		return nil
	},
}
