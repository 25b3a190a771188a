package model

import "time"

type UserBrief struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func BriefOf(u *User) *UserBrief {
	if u == nil {
		return nil
	}
	return &UserBrief{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// TicketRecord is a ticket with its assignment spelled out for clients.
type TicketRecord struct {
	Ticket
	AssignedToUserID *uint64 `json:"assigned_to_user_id"`
	TechnicianName   *string `json:"technician_name"`
}

func NewTicketRecord(t Ticket) TicketRecord {
	record := TicketRecord{Ticket: t, AssignedToUserID: t.AssignedTo}
	if t.Technician != nil {
		name := t.Technician.Name
		record.TechnicianName = &name
	}
	return record
}

// AssignmentRecord confirms a committed technician assignment.
type AssignmentRecord struct {
	ID                  uint64        `json:"id"`
	TicketID            *uint64       `json:"ticket_id"`
	UserID              uint64        `json:"user_id"`
	AssignedToUserID    *uint64       `json:"assigned_to_user_id"`
	TechnicianName      *string       `json:"technician_name"`
	Success             bool          `json:"success"`
	AssignmentConfirmed bool          `json:"assignment_confirmed"`
	Intervention        *Intervention `json:"intervention"`
}

type ReportContent struct {
	Title           string  `json:"title"`
	Summary         string  `json:"summary"`
	Findings        *string `json:"findings"`
	Recommendations *string `json:"recommendations"`
}

type DateRange struct {
	From *time.Time
	To   *time.Time
}
