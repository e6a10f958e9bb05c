package models

import "time"

// Chunk is one contiguous block of scheduled work for an item. Chunks are
// written once by the scheduler and never updated.
type Chunk struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"not null;index" json:"item_id"`
	OwnerID   uint      `gorm:"not null;index:idx_chunks_owner_start,priority:1" json:"owner_id"`
	StartTime time.Time `gorm:"not null;index:idx_chunks_owner_start,priority:2;index:idx_chunks_range,priority:1" json:"start_time"`
	EndTime   time.Time `gorm:"not null;index:idx_chunks_range,priority:2" json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	Item      Item      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Minutes returns the chunk length in whole minutes.
func (c Chunk) Minutes() int {
	return int(c.EndTime.Sub(c.StartTime) / time.Minute)
}
