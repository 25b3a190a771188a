package repository

import (
	"context"

	"gorm.io/gorm"

	"maintenance-service/internal/model"
)

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Create(ctx context.Context, report *model.InterventionReport) error {
	return r.db.WithContext(ctx).Omit("Intervention").Create(report).Error
}

func (r *reportRepository) List(ctx context.Context, limit, offset int) ([]model.InterventionReport, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.InterventionReport{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []model.InterventionReport
	if err := r.db.WithContext(ctx).
		Preload("Intervention").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&reports).Error; err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}
