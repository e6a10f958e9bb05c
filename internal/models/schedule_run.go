package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// ScheduleOutcomeComplete means every required minute was placed.
	ScheduleOutcomeComplete = "complete"
	// ScheduleOutcomePartial means the deadline was reached with minutes left over.
	ScheduleOutcomePartial = "partial"
	// ScheduleOutcomeFailed means the run aborted on a persistence error.
	ScheduleOutcomeFailed = "failed"
)

// ScheduleRun records the result of one scheduling pass for an item.
type ScheduleRun struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	ItemID           uint              `gorm:"not null;index" json:"item_id"`
	OwnerID          uint              `gorm:"not null;index" json:"owner_id"`
	Outcome          string            `gorm:"size:16;not null" json:"outcome"`
	RequestedMinutes int               `gorm:"not null" json:"requested_minutes"`
	ScheduledMinutes int               `gorm:"not null" json:"scheduled_minutes"`
	RemainingMinutes int               `gorm:"not null" json:"remaining_minutes"`
	ChunkCount       int               `gorm:"not null" json:"chunk_count"`
	Metadata         datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt        time.Time         `json:"created_at"`
}
