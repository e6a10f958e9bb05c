package dto

import (
	"time"

	"github.com/noah-isme/hwplan-api/internal/models"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ItemCreateRequest describes the payload for registering a new item.
type ItemCreateRequest struct {
	Kind             string `json:"kind" validate:"omitempty,oneof=activity homework"`
	Name             string `json:"name" validate:"required,max=512"`
	Description      string `json:"description" validate:"omitempty,max=2000"`
	Due              string `json:"due" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	StartDate        string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	TotalTimeNeeded  int    `json:"total_time_needed" validate:"gte=0"`
	MaxChunkDuration int    `json:"max_chunk_duration" validate:"required,gt=0"`
}

// ItemUpdateRequest describes a partial item update. Any change reschedules the item.
type ItemUpdateRequest struct {
	Kind             *string `json:"kind" validate:"omitempty,oneof=activity homework"`
	Name             *string `json:"name" validate:"omitempty,min=1,max=512"`
	Description      *string `json:"description" validate:"omitempty,max=2000"`
	Due              *string `json:"due" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	StartDate        *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	TotalTimeNeeded  *int    `json:"total_time_needed" validate:"omitempty,gte=0"`
	MaxChunkDuration *int    `json:"max_chunk_duration" validate:"omitempty,gt=0"`
}

// ItemListRequest captures list filters.
type ItemListRequest struct {
	Kind     string `query:"kind" validate:"omitempty,oneof=activity homework"`
	Search   string `query:"search"`
	Sort     string `query:"sort"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ItemListResponse wraps a page of items.
type ItemListResponse struct {
	Items      []ItemResponse `json:"items"`
	Pagination PaginationMeta `json:"pagination"`
}

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ItemResponse is the serialized representation returned to API clients.
type ItemResponse struct {
	ID               uint            `json:"id"`
	OwnerID          uint            `json:"owner_id"`
	Kind             string          `json:"kind"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Due              time.Time       `json:"due"`
	StartDate        string          `json:"start_date"`
	TotalTimeNeeded  int             `json:"total_time_needed"`
	MaxChunkDuration int             `json:"max_chunk_duration"`
	ScheduledMinutes int             `json:"scheduled_minutes"`
	Chunks           []ChunkResponse `json:"chunks"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ChunkResponse describes one scheduled block.
type ChunkResponse struct {
	ID        uint      `json:"id"`
	ItemID    uint      `json:"item_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Minutes   int       `json:"minutes"`
}

// NewItemResponse converts a model and its chunks into a DTO.
func NewItemResponse(model models.Item, chunks []models.Chunk) ItemResponse {
	responses := NewChunkResponseSlice(chunks)
	scheduled := 0
	for _, chunk := range responses {
		scheduled += chunk.Minutes
	}

	return ItemResponse{
		ID:               model.ID,
		OwnerID:          model.OwnerID,
		Kind:             model.Kind,
		Name:             model.Name,
		Description:      model.Description,
		Due:              model.Due,
		StartDate:        model.StartDay().Format(DateLayout),
		TotalTimeNeeded:  model.TotalTimeNeeded,
		MaxChunkDuration: model.MaxChunkDuration,
		ScheduledMinutes: scheduled,
		Chunks:           responses,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewChunkResponse converts a chunk model into a DTO.
func NewChunkResponse(model models.Chunk) ChunkResponse {
	return ChunkResponse{
		ID:        model.ID,
		ItemID:    model.ItemID,
		StartTime: model.StartTime,
		EndTime:   model.EndTime,
		Minutes:   model.Minutes(),
	}
}

// NewChunkResponseSlice converts chunk models into DTOs.
func NewChunkResponseSlice(chunks []models.Chunk) []ChunkResponse {
	responses := make([]ChunkResponse, 0, len(chunks))
	for _, chunk := range chunks {
		responses = append(responses, NewChunkResponse(chunk))
	}
	return responses
}
