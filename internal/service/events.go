package service

import (
	"context"
	"fmt"
	"time"

	"maintenance-service/internal/model"
	"maintenance-service/internal/notify"
	"maintenance-service/internal/repository"
)

type interventionEvent struct {
	InterventionID uint64                   `json:"intervention_id"`
	TicketID       *uint64                  `json:"ticket_id,omitempty"`
	TechnicianID   uint64                   `json:"technician_id"`
	Status         model.InterventionStatus `json:"status"`
	OldStatus      model.InterventionStatus `json:"old_status,omitempty"`
	ScheduledAt    *time.Time               `json:"scheduled_at,omitempty"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	ReportID       *uint64                  `json:"report_id,omitempty"`
}

func newInterventionEvent(i model.Intervention) interventionEvent {
	return interventionEvent{
		InterventionID: i.ID,
		TicketID:       i.TicketID,
		TechnicianID:   i.TechnicianID,
		Status:         i.Status,
		ScheduledAt:    i.ScheduledAt,
		CompletedAt:    i.CompletedAt,
	}
}

type ticketEvent struct {
	TicketID  uint64               `json:"ticket_id"`
	OwnerID   uint64               `json:"owner_id"`
	Status    model.TicketStatus   `json:"status"`
	Priority  model.TicketPriority `json:"priority"`
	Cancelled []uint64             `json:"cancelled_interventions,omitempty"`
}

type messageEvent struct {
	MessageID uint64 `json:"message_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
}

func appendEvent(ctx context.Context, tx repository.Store, eventType model.EventType, aggregateID uint64, recipients notify.Recipients, payload interface{}) error {
	event, err := model.NewOutboxEvent(eventType, aggregateID, recipients.IDs(), payload)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	if err := tx.Outbox().Append(ctx, event); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}

func adminRecipients(ctx context.Context, tx repository.Store) ([]model.User, error) {
	admins, err := tx.Users().ListByRole(ctx, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("load admins: %w", err)
	}
	return admins, nil
}
