package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountUsersByRole(ctx context.Context, role model.Role) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("role = ?", role).
		Count(&count).Error
	return count, err
}

func (r *statsRepository) CountTicketsByStatus(ctx context.Context, status model.TicketStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *statsRepository) TicketsPerDay(ctx context.Context, since time.Time) ([]DayCount, error) {
	var rows []DayCount
	err := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Select("DATE(created_at AT TIME ZONE 'UTC') AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) TopTechnicians(ctx context.Context, limit int) ([]LabelCount, error) {
	var rows []LabelCount
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Select("users.name AS label, COUNT(interventions.id) AS count").
		Joins("LEFT JOIN interventions ON interventions.user_id = users.id AND interventions.status = ?", model.InterventionStatusCompleted).
		Where("users.role = ?", model.RoleTechnician).
		Group("users.id, users.name").
		Order("count DESC, users.name ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) TicketsByCategory(ctx context.Context) ([]LabelCount, error) {
	var rows []LabelCount
	err := r.db.WithContext(ctx).
		Model(&model.Ticket{}).
		Select("category AS label, COUNT(*) AS count").
		Group("category").
		Order("category ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *statsRepository) RecentTickets(ctx context.Context, limit int) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Order("created_at DESC").
		Limit(limit).
		Find(&tickets).Error
	return tickets, err
}

func (r *statsRepository) RecentCompletedInterventions(ctx context.Context, limit int) ([]model.Intervention, error) {
	var interventions []model.Intervention
	err := r.db.WithContext(ctx).
		Preload("Technician").
		Where("status = ?", model.InterventionStatusCompleted).
		Order("created_at DESC").
		Limit(limit).
		Find(&interventions).Error
	return interventions, err
}
