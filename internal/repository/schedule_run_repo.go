package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/models"
)

// ScheduleRunRepository persists the history of scheduling passes.
type ScheduleRunRepository interface {
	Create(ctx context.Context, run *models.ScheduleRun) error
	ListByItem(ctx context.Context, itemID uint, limit int) ([]models.ScheduleRun, error)
}

type scheduleRunRepository struct {
	db *gorm.DB
}

// NewScheduleRunRepository constructs the schedule run repository.
func NewScheduleRunRepository(db *gorm.DB) ScheduleRunRepository {
	return &scheduleRunRepository{db: db}
}

func (r *scheduleRunRepository) Create(ctx context.Context, run *models.ScheduleRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *scheduleRunRepository) ListByItem(ctx context.Context, itemID uint, limit int) ([]models.ScheduleRun, error) {
	query := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []models.ScheduleRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
