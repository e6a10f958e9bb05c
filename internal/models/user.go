package models

import "time"

// User owns items and carries optional scheduling overrides. A nil override
// falls back to the system default.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	BreakTime *int      `json:"break_time"`
	ChunkTime *int      `json:"chunk_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
