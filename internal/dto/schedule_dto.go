package dto

import "time"

// Schedule event types.
const (
	ScheduleEventItemScheduled = "item.scheduled"
	ScheduleEventItemDeleted   = "item.deleted"
	ScheduleEventStreamReady   = "stream.ready"
)

// ScheduleSummary reports how much of an item's need was placed.
type ScheduleSummary struct {
	RequestedMinutes int             `json:"requested_minutes"`
	ScheduledMinutes int             `json:"scheduled_minutes"`
	RemainingMinutes int             `json:"remaining_minutes"`
	Complete         bool            `json:"complete"`
	Chunks           []ChunkResponse `json:"chunks"`
}

// ItemScheduleResponse is returned after an item is created, updated or rescheduled.
type ItemScheduleResponse struct {
	Item     ItemResponse    `json:"item"`
	Schedule ScheduleSummary `json:"schedule"`
}

// ScheduleEvent is pushed to subscribers whenever an owner's calendar changes.
type ScheduleEvent struct {
	Type             string    `json:"type"`
	OwnerID          uint      `json:"owner_id"`
	ItemID           uint      `json:"item_id"`
	ItemName         string    `json:"item_name,omitempty"`
	ScheduledMinutes int       `json:"scheduled_minutes"`
	RemainingMinutes int       `json:"remaining_minutes"`
	Complete         bool      `json:"complete"`
	OccurredAt       time.Time `json:"occurred_at"`
	CorrelationID    string    `json:"correlation_id,omitempty"`
}
