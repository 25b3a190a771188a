package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"maintenance-service/internal/config"
	"maintenance-service/internal/db"
	"maintenance-service/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database if needed and apply the schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	if err := db.EnsureDatabase(cmd.Context(), cfg.DB.DSN, log); err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}

	cfg.DB.AutoMigrate = false
	database, err := db.New(cfg, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Msg("migrations applied")
	return nil
}
