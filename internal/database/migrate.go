package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/models"
)

// Migrate creates or updates the scheduler tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Item{}, &models.Chunk{}, &models.ScheduleRun{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
