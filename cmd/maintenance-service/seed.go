package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"maintenance-service/internal/config"
	"maintenance-service/internal/db"
	"maintenance-service/internal/logger"
	"maintenance-service/internal/model"
	"maintenance-service/internal/repository"
	"maintenance-service/internal/service"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the bootstrap admin from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD",
	RunE:  runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Seed.AdminEmail == "" || cfg.Seed.AdminPassword == "" {
		return fmt.Errorf("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required")
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	database, err := db.New(cfg, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = db.Close(database) }()

	users := service.NewUserService(repository.NewUserRepository(database), cfg.Auth.BcryptCost)
	admin, created, err := users.Bootstrap(cmd.Context(), service.UserInput{
		Name:     "Administrator",
		Email:    cfg.Seed.AdminEmail,
		Role:     model.RoleAdmin,
		Password: cfg.Seed.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info().Uint64("user_id", admin.ID).Str("email", admin.Email).Msg("admin created")
	} else {
		log.Info().Uint64("user_id", admin.ID).Str("email", admin.Email).Msg("admin already exists")
	}
	return nil
}
