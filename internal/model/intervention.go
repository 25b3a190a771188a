package model

import "time"

type InterventionStatus string

const (
	InterventionStatusPending    InterventionStatus = "pending"
	InterventionStatusScheduled  InterventionStatus = "scheduled"
	InterventionStatusInProgress InterventionStatus = "in_progress"
	InterventionStatusCompleted  InterventionStatus = "completed"
	InterventionStatusCancelled  InterventionStatus = "cancelled"
)

func (s InterventionStatus) Valid() bool {
	switch s {
	case InterventionStatusPending, InterventionStatusScheduled, InterventionStatusInProgress,
		InterventionStatusCompleted, InterventionStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further work happens on an intervention in this status.
func (s InterventionStatus) Terminal() bool {
	return s == InterventionStatusCompleted || s == InterventionStatusCancelled
}

type Intervention struct {
	ID           uint64             `gorm:"primaryKey" json:"id"`
	Title        string             `gorm:"type:varchar(255);not null" json:"title"`
	Description  *string            `gorm:"type:text" json:"description"`
	Status       InterventionStatus `gorm:"type:varchar(32);not null;default:'pending'" json:"status"`
	ScheduledAt  *time.Time         `json:"scheduled_at"`
	CompletedAt  *time.Time         `json:"completed_at"`
	TicketID     *uint64            `gorm:"index" json:"ticket_id"`
	TechnicianID uint64             `gorm:"column:user_id;not null;index" json:"user_id"`
	Location     *string            `gorm:"type:varchar(255)" json:"location"`
	Latitude     *float64           `json:"latitude"`
	Longitude    *float64           `json:"longitude"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	Ticket     *Ticket              `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
	Technician *User                `gorm:"foreignKey:TechnicianID" json:"user,omitempty"`
	Planning   *Planning            `gorm:"foreignKey:InterventionID" json:"planning,omitempty"`
	Reports    []InterventionReport `gorm:"foreignKey:InterventionID" json:"reports,omitempty"`
}

func (Intervention) TableName() string {
	return "interventions"
}

// OwnerID returns the id of the client who filed the intervention's ticket, if loaded.
func (i Intervention) OwnerID() (uint64, bool) {
	if i.Ticket == nil {
		return 0, false
	}
	return i.Ticket.UserID, true
}

type Planning struct {
	ID             uint64    `gorm:"primaryKey" json:"id"`
	InterventionID uint64    `gorm:"not null;uniqueIndex" json:"intervention_id"`
	TechnicianID   uint64    `gorm:"not null;index" json:"technician_id"`
	PlannedDate    time.Time `gorm:"type:date;not null" json:"planned_date"`
	Status         string    `gorm:"type:varchar(32);not null" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Intervention *Intervention `gorm:"foreignKey:InterventionID" json:"intervention,omitempty"`
	Technician   *User         `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
}

func (Planning) TableName() string {
	return "plannings"
}

// PlannedDateOf is the calendar date of ts, as midnight UTC.
func PlannedDateOf(ts time.Time) time.Time {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "draft"
	ReportStatusSubmitted ReportStatus = "submitted"
	ReportStatusApproved  ReportStatus = "approved"
)

type InterventionReport struct {
	ID             uint64       `gorm:"primaryKey" json:"id"`
	InterventionID uint64       `gorm:"not null;index" json:"intervention_id"`
	TechnicianID   uint64       `gorm:"not null" json:"technician_id"`
	Report         string       `gorm:"type:text;not null" json:"report"`
	Content        string       `gorm:"type:text" json:"content"`
	WorkedHours    *float64     `json:"worked_hours"`
	Status         ReportStatus `gorm:"type:varchar(16);not null;default:'draft'" json:"status"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`

	Intervention *Intervention `gorm:"foreignKey:InterventionID" json:"intervention,omitempty"`
}

func (InterventionReport) TableName() string {
	return "intervention_reports"
}
