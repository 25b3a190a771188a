package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

// Store is the Entity Store. Repositories obtained from the Store passed to a
// WithinTx callback share that transaction.
type Store interface {
	Users() UserRepository
	Tickets() TicketRepository
	Interventions() InterventionRepository
	Plannings() PlanningRepository
	Reports() ReportRepository
	Comments() CommentRepository
	Messages() MessageRepository
	Notifications() NotificationRepository
	Outbox() OutboxRepository
	Stats() StatsRepository

	// WithinTx runs fn in one transaction; any returned error rolls it back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// UserChanges lists the user columns to overwrite. Nil fields are left as is.
type UserChanges struct {
	Name  *string
	Email *string
	Phone *string
	Role  *model.Role
}

func (c UserChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Phone == nil && c.Role == nil
}

type UserRepository interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id uint64, changes UserChanges) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64) error
}

type TicketFilter struct {
	Scope    model.Scope
	Statuses []model.TicketStatus
	Priority *model.TicketPriority
	Search   string
	Limit    int
	Offset   int
}

// TicketChanges lists the ticket columns to overwrite. Nil fields are left as is.
type TicketChanges struct {
	Title              *string
	Description        *string
	Priority           *model.TicketPriority
	Status             *model.TicketStatus
	AssignedTo         *uint64
	ClearAssignee      bool
	CancellationReason *string
}

func (c TicketChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Priority == nil && c.Status == nil &&
		c.AssignedTo == nil && !c.ClearAssignee && c.CancellationReason == nil
}

type TicketRepository interface {
	Create(ctx context.Context, ticket *model.Ticket) error
	GetByID(ctx context.Context, id uint64) (*model.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]model.Ticket, error)
	Update(ctx context.Context, id uint64, changes TicketChanges) error
	Assign(ctx context.Context, id uint64, technicianID uint64, status model.TicketStatus) error
	UpdateStatus(ctx context.Context, id uint64, status model.TicketStatus) error
	Delete(ctx context.Context, id uint64) error
}

type InterventionFilter struct {
	Scope         model.Scope
	Statuses      []model.InterventionStatus
	TicketID      *uint64
	ScheduledFrom *time.Time
	ScheduledTo   *time.Time
	Ascending     bool
}

type InterventionChanges struct {
	TechnicianID *uint64
	Title        *string
	Description  *string
	ScheduledAt  *time.Time
	Location     *string
	Latitude     *float64
	Longitude    *float64
}

func (c InterventionChanges) Empty() bool {
	return c.TechnicianID == nil && c.Title == nil && c.Description == nil && c.ScheduledAt == nil &&
		c.Location == nil && c.Latitude == nil && c.Longitude == nil
}

type InterventionRepository interface {
	Create(ctx context.Context, intervention *model.Intervention) error
	// GetByID loads the ticket with its owner, the technician and the planning.
	GetByID(ctx context.Context, id uint64) (*model.Intervention, error)
	// GetForUpdate is GetByID holding a row lock on the intervention until
	// the surrounding transaction ends; call inside WithinTx.
	GetForUpdate(ctx context.Context, id uint64) (*model.Intervention, error)
	List(ctx context.Context, filter InterventionFilter) ([]model.Intervention, error)
	Update(ctx context.Context, id uint64, changes InterventionChanges) error
	UpdateStatus(ctx context.Context, id uint64, status model.InterventionStatus, completedAt *time.Time) error
	Delete(ctx context.Context, id uint64) error
	LogStatusChange(ctx context.Context, entry *model.InterventionStatusLog) error
}

type PlanningFilter struct {
	TechnicianID *uint64
	From         *time.Time
	To           *time.Time
	Status       string
}

type PlanningRepository interface {
	// Upsert creates or updates the planning row keyed by InterventionID.
	Upsert(ctx context.Context, planning *model.Planning) error
	GetByID(ctx context.Context, id uint64) (*model.Planning, error)
	GetByInterventionID(ctx context.Context, interventionID uint64) (*model.Planning, error)
	List(ctx context.Context, filter PlanningFilter) ([]model.Planning, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.InterventionReport) error
	List(ctx context.Context, limit, offset int) ([]model.InterventionReport, int64, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	GetByID(ctx context.Context, id uint64) (*model.Comment, error)
	ListByTicket(ctx context.Context, ticketID uint64) ([]model.Comment, error)
	Delete(ctx context.Context, id uint64) error
}

type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	GetByID(ctx context.Context, id uint64) (*model.Message, error)
	List(ctx context.Context) ([]model.Message, error)
	MarkRead(ctx context.Context, id uint64) error
}

type NotificationRepository interface {
	// InsertUnique stores n unless a row with the same recipient, type and
	// dedup key exists. It reports whether a row was written.
	InsertUnique(ctx context.Context, n *model.Notification) (bool, error)
	ListByRecipient(ctx context.Context, recipientID uint64) ([]model.Notification, error)
	CountUnread(ctx context.Context, recipientID uint64) (int64, error)
	// MarkRead stamps one unread notification of the recipient; anything else
	// is gorm.ErrRecordNotFound.
	MarkRead(ctx context.Context, recipientID uint64, id uuid.UUID, at time.Time) error
	MarkAllRead(ctx context.Context, recipientID uint64, at time.Time) (int64, error)
	Delete(ctx context.Context, recipientID uint64, id uuid.UUID) error
}

type OutboxRepository interface {
	Append(ctx context.Context, event *model.OutboxEvent) error
	// ClaimPending locks up to limit undelivered events; call inside WithinTx.
	ClaimPending(ctx context.Context, limit int) ([]model.OutboxEvent, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed records a failed attempt; a non-nil dropAt gives up on the event.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, dropAt *time.Time) error
}

type DayCount struct {
	Day   time.Time
	Count int64
}

type LabelCount struct {
	Label string
	Count int64
}

// StatsRepository backs the admin dashboard with aggregate queries.
type StatsRepository interface {
	CountUsersByRole(ctx context.Context, role model.Role) (int64, error)
	CountTicketsByStatus(ctx context.Context, status model.TicketStatus) (int64, error)
	// TicketsPerDay groups tickets created at or after since by UTC calendar day.
	TicketsPerDay(ctx context.Context, since time.Time) ([]DayCount, error)
	// TopTechnicians ranks technicians by completed interventions, including
	// those with none.
	TopTechnicians(ctx context.Context, limit int) ([]LabelCount, error)
	TicketsByCategory(ctx context.Context) ([]LabelCount, error)
	RecentTickets(ctx context.Context, limit int) ([]model.Ticket, error)
	RecentCompletedInterventions(ctx context.Context, limit int) ([]model.Intervention, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository                 { return NewUserRepository(s.db) }
func (s *gormStore) Tickets() TicketRepository             { return NewTicketRepository(s.db) }
func (s *gormStore) Interventions() InterventionRepository { return NewInterventionRepository(s.db) }
func (s *gormStore) Plannings() PlanningRepository         { return NewPlanningRepository(s.db) }
func (s *gormStore) Reports() ReportRepository             { return NewReportRepository(s.db) }
func (s *gormStore) Comments() CommentRepository           { return NewCommentRepository(s.db) }
func (s *gormStore) Messages() MessageRepository           { return NewMessageRepository(s.db) }
func (s *gormStore) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *gormStore) Outbox() OutboxRepository              { return NewOutboxRepository(s.db) }
func (s *gormStore) Stats() StatsRepository                { return NewStatsRepository(s.db) }

func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
