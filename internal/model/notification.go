package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationInterventionAssigned  NotificationType = "intervention_assigned"
	NotificationInterventionScheduled NotificationType = "intervention_scheduled"
	NotificationInterventionStatus    NotificationType = "intervention_status_updated"
	NotificationNewTicket             NotificationType = "new_ticket"
	NotificationTicketCancelled       NotificationType = "ticket_cancelled"
	NotificationTicketComment         NotificationType = "ticket_comment"
	NotificationContactMessage        NotificationType = "contact_message"
)

// NotificationData is the structured payload stored in notifications.data.
type NotificationData struct {
	Type           NotificationType `json:"type"`
	Message        string           `json:"message"`
	InterventionID *uint64          `json:"intervention_id,omitempty"`
	TicketID       *uint64          `json:"ticket_id,omitempty"`
	MessageID      *uint64          `json:"message_id,omitempty"`
	Status         string           `json:"status,omitempty"`
	Title          string           `json:"title,omitempty"`
	Name           string           `json:"name,omitempty"`
	Email          string           `json:"email,omitempty"`
	Subject        string           `json:"subject,omitempty"`
}

func (d NotificationData) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *NotificationData) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*d = NotificationData{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into NotificationData", src)
	}
	return json.Unmarshal(raw, d)
}

// Notification is a persisted per-recipient notice. DedupKey, when set, makes the
// row unique per (recipient, type, key).
type Notification struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Type         NotificationType `gorm:"type:varchar(64);not null" json:"type"`
	NotifiableID uint64           `gorm:"not null;index" json:"notifiable_id"`
	Data         NotificationData `gorm:"type:jsonb;not null" json:"data"`
	DedupKey     *string          `gorm:"type:varchar(128)" json:"-"`
	ReadAt       *time.Time       `json:"read_at"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
