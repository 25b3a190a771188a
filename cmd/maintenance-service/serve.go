package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"maintenance-service/internal/auth"
	"maintenance-service/internal/broker"
	"maintenance-service/internal/config"
	"maintenance-service/internal/db"
	httphandler "maintenance-service/internal/http"
	"maintenance-service/internal/http/middleware"
	"maintenance-service/internal/logger"
	"maintenance-service/internal/notify"
	"maintenance-service/internal/repository"
	"maintenance-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the outbox dispatcher",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := db.EnsureDatabase(ctx, cfg.DB.DSN, log); err != nil {
			log.Warn().Err(err).Msg("database bootstrap failed")
		}
	}
	database, err := db.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer func() {
		if err := db.Close(database); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}()

	store := repository.NewStore(database)
	fanout := notify.NewFanout(store.Users(), store.Notifications(), log)
	services := httphandler.Services{
		Interventions: service.NewInterventionService(store, fanout, log),
		Tickets:       service.NewTicketService(store, fanout, log),
		Plannings:     service.NewPlanningService(store.Plannings()),
		Messages:      service.NewMessageService(store, fanout),
		Users:         service.NewUserService(store.Users(), cfg.Auth.BcryptCost),
		Notifications: service.NewNotificationService(store.Notifications()),
		Stats:         service.NewStatsService(store.Stats()),
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil && cfg.Redis.Addr != "" {
		log.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unavailable, rate limiting disabled")
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	publisher, err := broker.New(cfg, rdb, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to start broadcast publisher")
		return err
	}
	defer func() { _ = publisher.Close() }()
	if cfg.Broadcast.Driver != config.BroadcastNone {
		dispatcher := broker.NewDispatcher(store, publisher, cfg.Broadcast.Outbox, log)
		go dispatcher.Run(ctx)
	}

	handler := httphandler.NewHandler(services, func(ctx context.Context) error {
		return db.HealthCheck(ctx, database)
	}, log)
	router := httphandler.NewRouter(
		handler,
		middleware.Auth(auth.NewParser(cfg.Auth.AccessSecret)),
		middleware.RateLimit(cfg.RateLimit, rdb, log),
		cfg.Environment,
	)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("broadcast", cfg.Broadcast.Driver).Msg("starting maintenance service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server stopped")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
