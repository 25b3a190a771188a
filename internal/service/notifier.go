package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

// Notifier delivers notifications after a transaction commits. It never
// reports delivery failures to the caller.
type Notifier interface {
	InterventionAssigned(ctx context.Context, i model.Intervention)
	InterventionStatusChanged(ctx context.Context, i model.Intervention, oldStatus model.InterventionStatus)
	ReportSubmitted(ctx context.Context, i model.Intervention)
	NewTicket(ctx context.Context, t model.Ticket)
	TicketCancelled(ctx context.Context, t model.Ticket, cancelled []model.Intervention)
	TicketComment(ctx context.Context, t model.Ticket, c model.Comment)
	ContactMessage(ctx context.Context, m model.Message)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func requireAuthenticated(principal model.Principal) error {
	if principal.UserID == 0 || !principal.Role.Valid() {
		return ErrUnauthenticated
	}
	return nil
}
