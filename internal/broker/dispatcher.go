package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"maintenance-service/internal/config"
	"maintenance-service/internal/repository"
)

// Dispatcher drains the outbox into a Publisher. Rows are claimed with row
// locks, so several instances can run side by side.
type Dispatcher struct {
	store     repository.Store
	publisher Publisher
	cfg       config.OutboxConfig
	log       zerolog.Logger
	now       func() time.Time
}

func NewDispatcher(store repository.Store, publisher Publisher, cfg config.OutboxConfig, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		log:       log.With().Str("component", "outbox").Logger(),
		now:       time.Now,
	}
}

// Run polls the outbox until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	d.log.Info().Dur("poll_interval", d.cfg.PollInterval).Msg("outbox dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.log.Error().Err(err).Msg("outbox dispatch failed")
			}
		}
	}
}

// DispatchOnce publishes one batch of pending events and returns how many
// were delivered. Publish failures are recorded on the row; an event is
// dropped once it has used up its attempts.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	delivered := 0
	err := d.store.WithinTx(ctx, func(tx repository.Store) error {
		events, err := tx.Outbox().ClaimPending(ctx, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, event := range events {
			logger := d.log.With().
				Str("event_id", event.ID.String()).
				Str("event_type", string(event.EventType)).
				Uint64("aggregate_id", event.AggregateID).
				Logger()

			if err := d.publisher.Publish(ctx, event); err != nil {
				var dropAt *time.Time
				if d.cfg.MaxAttempts > 0 && event.Attempts+1 >= d.cfg.MaxAttempts {
					now := d.now()
					dropAt = &now
					logger.Error().Err(err).Int("attempts", event.Attempts+1).Msg("outbox event dropped")
				} else {
					logger.Warn().Err(err).Int("attempts", event.Attempts+1).Msg("outbox publish failed")
				}
				if err := tx.Outbox().MarkFailed(ctx, event.ID, err.Error(), dropAt); err != nil {
					return err
				}
				continue
			}

			if err := tx.Outbox().MarkDelivered(ctx, event.ID, d.now()); err != nil {
				return err
			}
			delivered++
			logger.Debug().Msg("outbox event delivered")
		}
		return nil
	})
	return delivered, err
}
