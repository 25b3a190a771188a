package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventType string

const (
	EventInterventionAssigned      EventType = "intervention.assigned"
	EventInterventionStatusChanged EventType = "intervention.status_changed"
	EventInterventionCompleted     EventType = "intervention.completed"
	EventTicketCreated             EventType = "ticket.created"
	EventTicketStatusChanged       EventType = "ticket.status_changed"
	EventContactMessageReceived    EventType = "contact_message.received"
)

// OutboxEvent is a domain event committed with the business transaction and
// relayed to the broadcast broker afterwards.
type OutboxEvent struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EventType   EventType       `gorm:"type:varchar(64);not null" json:"event_type"`
	AggregateID uint64          `gorm:"not null" json:"aggregate_id"`
	Recipients  json.RawMessage `gorm:"type:jsonb;not null" json:"recipients"`
	Payload     json.RawMessage `gorm:"type:jsonb;not null" json:"payload"`
	Attempts    int             `gorm:"not null;default:0" json:"attempts"`
	LastError   *string         `gorm:"type:text" json:"last_error,omitempty"`
	DeliveredAt *time.Time      `json:"delivered_at,omitempty"`
	DroppedAt   *time.Time      `json:"dropped_at,omitempty"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewOutboxEvent marshals recipients and payload into an undelivered event.
func NewOutboxEvent(eventType EventType, aggregateID uint64, recipients []uint64, payload interface{}) (*OutboxEvent, error) {
	if recipients == nil {
		recipients = []uint64{}
	}
	rcpt, err := json.Marshal(recipients)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Recipients:  rcpt,
		Payload:     body,
	}, nil
}

// RecipientIDs decodes the recipient list; malformed lists decode as empty.
func (e OutboxEvent) RecipientIDs() []uint64 {
	var ids []uint64
	if err := json.Unmarshal(e.Recipients, &ids); err != nil {
		return nil
	}
	return ids
}
