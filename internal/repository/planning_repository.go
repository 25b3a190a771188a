package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"maintenance-service/internal/model"
)

type planningRepository struct {
	db *gorm.DB
}

func NewPlanningRepository(db *gorm.DB) PlanningRepository {
	return &planningRepository{db: db}
}

func (r *planningRepository) Upsert(ctx context.Context, planning *model.Planning) error {
	return r.db.WithContext(ctx).
		Omit("Intervention", "Technician").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "intervention_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"technician_id", "planned_date", "status", "updated_at"}),
		}).
		Create(planning).Error
}

func (r *planningRepository) GetByID(ctx context.Context, id uint64) (*model.Planning, error) {
	var planning model.Planning
	if err := r.db.WithContext(ctx).
		Preload("Intervention").
		Preload("Technician").
		First(&planning, id).Error; err != nil {
		return nil, err
	}
	return &planning, nil
}

func (r *planningRepository) GetByInterventionID(ctx context.Context, interventionID uint64) (*model.Planning, error) {
	var planning model.Planning
	if err := r.db.WithContext(ctx).
		Where("intervention_id = ?", interventionID).
		First(&planning).Error; err != nil {
		return nil, err
	}
	return &planning, nil
}

func (r *planningRepository) List(ctx context.Context, filter PlanningFilter) ([]model.Planning, error) {
	query := r.db.WithContext(ctx).Model(&model.Planning{})

	if filter.TechnicianID != nil {
		query = query.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.From != nil {
		query = query.Where("planned_date >= ?", model.PlannedDateOf(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("planned_date <= ?", model.PlannedDateOf(*filter.To))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var plannings []model.Planning
	if err := query.Order("planned_date ASC").
		Preload("Intervention").
		Preload("Technician").
		Find(&plannings).Error; err != nil {
		return nil, err
	}
	return plannings, nil
}
