package dto

import "time"

// CalendarEntry pairs a chunk with its owning item.
type CalendarEntry struct {
	ChunkID   uint      `json:"chunk_id"`
	ItemID    uint      `json:"item_id"`
	ItemName  string    `json:"item_name"`
	ItemKind  string    `json:"item_kind"`
	Due       time.Time `json:"due"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Minutes   int       `json:"minutes"`
}

// CalendarDay lists the entries intersecting one day, ordered by start time.
type CalendarDay struct {
	Date    string          `json:"date"`
	Entries []CalendarEntry `json:"entries"`
}

// CalendarMonthResponse holds every day of a month, including empty ones.
type CalendarMonthResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}
