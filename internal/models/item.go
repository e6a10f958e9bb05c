package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// ItemKindActivity marks a recurring or personal activity.
	ItemKindActivity = "activity"
	// ItemKindHomework marks a homework item with a hand-in deadline.
	ItemKindHomework = "homework"
)

// ItemNameMaxLength bounds Item.Name.
const ItemNameMaxLength = 30

// Item is a schedulable unit of work whose required time is split into chunks.
type Item struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	OwnerID          uint           `gorm:"not null;index" json:"owner_id"`
	Kind             string         `gorm:"size:16;not null" json:"kind"`
	Name             string         `gorm:"size:30;not null" json:"name"`
	Description      string         `gorm:"type:text" json:"description"`
	Due              time.Time      `gorm:"not null;index" json:"due"`
	StartDate        datatypes.Date `gorm:"not null" json:"start_date"`
	TotalTimeNeeded  int            `gorm:"not null" json:"total_time_needed"`
	MaxChunkDuration int            `gorm:"not null" json:"max_chunk_duration"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	Chunks           []Chunk        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"chunks,omitempty"`
}

// BeforeSave normalises the kind, name and deadline before persisting.
func (i *Item) BeforeSave(tx *gorm.DB) error {
	i.Kind = NormalizeItemKind(i.Kind)
	i.Name = strings.TrimSpace(i.Name)
	i.Due = i.Due.UTC()
	return nil
}

// StartDay returns the first schedulable calendar day.
func (i Item) StartDay() time.Time {
	return time.Time(i.StartDate)
}

// NormalizeItemKind maps free-form input to a known kind, defaulting to homework.
func NormalizeItemKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ItemKindActivity:
		return ItemKindActivity
	default:
		return ItemKindHomework
	}
}
