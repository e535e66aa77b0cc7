package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"campusfinder/internal/database"
	"campusfinder/internal/modules/resource"
	"campusfinder/internal/repository"
)

var (
	recountDryRun  bool
	recountWorkers int
)

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Rebuild average ratings and favorite counts from the review and favorite rows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, db, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		store := repository.NewStore(db, cfg.Auth.DefaultAvatarURL)
		drifts, err := resource.Recount(cmd.Context(), store, recountDryRun, recountWorkers)
		if err != nil {
			return err
		}
		for _, d := range drifts {
			log.Info().
				Int64("resource_id", d.Stored.ResourceID).
				Float64("stored_rating", d.Stored.AverageRating).
				Float64("actual_rating", d.Actual.AverageRating).
				Int64("stored_reviews", d.Stored.ReviewCount).
				Int64("actual_reviews", d.Actual.ReviewCount).
				Int64("stored_favorites", d.Stored.FavoriteCount).
				Int64("actual_favorites", d.Actual.FavoriteCount).
				Msg("drift")
		}
		log.Info().Int("drifted", len(drifts)).Bool("dry_run", recountDryRun).Msg("recount finished")
		return nil
	},
}

func init() {
	recountCmd.Flags().BoolVar(&recountDryRun, "dry-run", false, "report drift without writing")
	recountCmd.Flags().IntVar(&recountWorkers, "workers", 4, "resources checked in parallel")
}
