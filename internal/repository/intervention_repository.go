package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-service/internal/model"
)

type interventionRepository struct {
	db *gorm.DB
}

func NewInterventionRepository(db *gorm.DB) InterventionRepository {
	return &interventionRepository{db: db}
}

func (r *interventionRepository) Create(ctx context.Context, intervention *model.Intervention) error {
	return r.db.WithContext(ctx).Omit("Ticket", "Technician", "Planning", "Reports").Create(intervention).Error
}

func (r *interventionRepository) GetByID(ctx context.Context, id uint64) (*model.Intervention, error) {
	return r.load(r.db.WithContext(ctx), id)
}

func (r *interventionRepository) GetForUpdate(ctx context.Context, id uint64) (*model.Intervention, error) {
	return r.load(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *interventionRepository) load(query *gorm.DB, id uint64) (*model.Intervention, error) {
	var intervention model.Intervention
	if err := query.
		Preload("Ticket").
		Preload("Ticket.Owner").
		Preload("Ticket.Technician").
		Preload("Technician").
		Preload("Planning").
		First(&intervention, id).Error; err != nil {
		return nil, err
	}
	return &intervention, nil
}

func (r *interventionRepository) List(ctx context.Context, filter InterventionFilter) ([]model.Intervention, error) {
	query := r.db.WithContext(ctx).
		Model(&model.Intervention{}).
		Joins("LEFT JOIN tickets tk ON tk.id = interventions.ticket_id")

	query = applyInterventionScope(query, filter.Scope)

	if len(filter.Statuses) > 0 {
		query = query.Where("interventions.status IN ?", filter.Statuses)
	}
	if filter.TicketID != nil {
		query = query.Where("interventions.ticket_id = ?", *filter.TicketID)
	}
	if filter.ScheduledFrom != nil {
		query = query.Where("interventions.scheduled_at >= ?", *filter.ScheduledFrom)
	}
	if filter.ScheduledTo != nil {
		query = query.Where("interventions.scheduled_at <= ?", *filter.ScheduledTo)
	}

	order := "interventions.scheduled_at DESC NULLS LAST"
	if filter.Ascending {
		order = "interventions.scheduled_at ASC NULLS LAST"
	}

	var interventions []model.Intervention
	if err := query.Order(order).
		Preload("Ticket").
		Preload("Ticket.Owner").
		Preload("Technician").
		Find(&interventions).Error; err != nil {
		return nil, err
	}
	return interventions, nil
}

func (r *interventionRepository) Update(ctx context.Context, id uint64, changes InterventionChanges) error {
	data := map[string]interface{}{}
	if changes.TechnicianID != nil {
		data["user_id"] = *changes.TechnicianID
	}
	if changes.Title != nil {
		data["title"] = *changes.Title
	}
	if changes.Description != nil {
		data["description"] = *changes.Description
	}
	if changes.ScheduledAt != nil {
		data["scheduled_at"] = *changes.ScheduledAt
	}
	if changes.Location != nil {
		data["location"] = *changes.Location
	}
	if changes.Latitude != nil {
		data["latitude"] = *changes.Latitude
	}
	if changes.Longitude != nil {
		data["longitude"] = *changes.Longitude
	}
	if len(data) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.Intervention{}).
		Where("id = ?", id).
		Updates(data).Error
}

func (r *interventionRepository) UpdateStatus(ctx context.Context, id uint64, status model.InterventionStatus, completedAt *time.Time) error {
	data := map[string]interface{}{
		"status": status,
	}
	if completedAt != nil {
		data["completed_at"] = *completedAt
	}
	return r.db.WithContext(ctx).
		Model(&model.Intervention{}).
		Where("id = ?", id).
		Updates(data).Error
}

func (r *interventionRepository) Delete(ctx context.Context, id uint64) error {
	result := r.db.WithContext(ctx).Delete(&model.Intervention{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *interventionRepository) LogStatusChange(ctx context.Context, entry *model.InterventionStatusLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func applyInterventionScope(query *gorm.DB, scope model.Scope) *gorm.DB {
	switch scope.Type {
	case model.ScopeAll:
		return query
	case model.ScopeTechnician:
		return query.Where("interventions.user_id = ?", scope.UserID)
	case model.ScopeOwner:
		return query.Where("tk.user_id = ?", scope.UserID)
	default:
		return query.Where("1=0")
	}
}
