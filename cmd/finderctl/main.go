// Command finderctl runs maintenance tasks against the campusfinder database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"campusfinder/internal/config"
	"campusfinder/internal/database"
	"campusfinder/internal/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "finderctl",
	Short:         "Maintenance commands for campusfinder",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(migrateCmd, recountCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Error().Err(err).Msg("finderctl failed")
		os.Exit(1)
	}
}

// openDB loads the same configuration the API uses.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init("finderctl", cfg.AppEnv, cfg.Log.Level)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
