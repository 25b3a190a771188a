package repository

import (
	"context"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

type ticketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *ticketRepository) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Technician").
		First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]model.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&model.Ticket{})
	query = applyTicketScope(query, filter.Scope)

	if len(filter.Statuses) > 0 {
		query = query.Where("tickets.status IN ?", filter.Statuses)
	}
	if filter.Priority != nil {
		query = query.Where("tickets.priority = ?", *filter.Priority)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("(tickets.title ILIKE ? OR tickets.description ILIKE ?)", pattern, pattern)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	} else {
		query = query.Limit(200)
	}

	var tickets []model.Ticket
	if err := query.Order("tickets.created_at DESC").
		Preload("Owner").
		Preload("Technician").
		Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) Update(ctx context.Context, id uint64, changes TicketChanges) error {
	data := map[string]interface{}{}
	if changes.Title != nil {
		data["title"] = *changes.Title
	}
	if changes.Description != nil {
		data["description"] = *changes.Description
	}
	if changes.Priority != nil {
		data["priority"] = *changes.Priority
	}
	if changes.Status != nil {
		data["status"] = *changes.Status
	}
	if changes.AssignedTo != nil {
		data["assigned_to"] = *changes.AssignedTo
	} else if changes.ClearAssignee {
		data["assigned_to"] = gorm.Expr("NULL")
	}
	if changes.CancellationReason != nil {
		data["cancellation_reason"] = *changes.CancellationReason
	}
	if len(data) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id = ?", id).
		Updates(data).Error
}

func (r *ticketRepository) Assign(ctx context.Context, id uint64, technicianID uint64, status model.TicketStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"assigned_to": technicianID,
			"status":      status,
		}).Error
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id uint64, status model.TicketStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// Delete removes the ticket; interventions.ticket_id is nulled by the foreign key.
func (r *ticketRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&model.Ticket{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func applyTicketScope(query *gorm.DB, scope model.Scope) *gorm.DB {
	switch scope.Type {
	case model.ScopeAll:
		return query
	case model.ScopeTechnician:
		return query.Where("tickets.assigned_to = ?", scope.UserID)
	case model.ScopeOwner:
		return query.Where("tickets.user_id = ?", scope.UserID)
	default:
		return query.Where("1=0")
	}
}
