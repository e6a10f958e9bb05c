package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/models"
)

// ChunkRepository defines persistence operations for scheduled chunks.
//
// Times are stored in UTC so range predicates compare consistently across
// drivers.
type ChunkRepository interface {
	ListBusy(ctx context.Context, ownerID uint, from, to time.Time) ([]models.Chunk, error)
	ListForItem(ctx context.Context, itemID uint) ([]models.Chunk, error)
	ListCalendar(ctx context.Context, ownerID uint, from, to time.Time) ([]models.Chunk, error)
	Create(ctx context.Context, chunk *models.Chunk) error
	DeleteByItem(ctx context.Context, itemID uint) (int64, error)
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository instantiates a GORM-backed chunk repository.
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// ListBusy returns the owner's chunks intersecting [from, to), ordered by start.
func (r *chunkRepository) ListBusy(ctx context.Context, ownerID uint, from, to time.Time) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := r.overlapping(ctx, ownerID, from, to).
		Order("start_time ASC").
		Order("id ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

func (r *chunkRepository) ListForItem(ctx context.Context, itemID uint) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("start_time ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

// ListCalendar is ListBusy with the owning item preloaded.
func (r *chunkRepository) ListCalendar(ctx context.Context, ownerID uint, from, to time.Time) ([]models.Chunk, error) {
	var chunks []models.Chunk
	err := r.overlapping(ctx, ownerID, from, to).
		Preload("Item").
		Order("start_time ASC").
		Order("id ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

func (r *chunkRepository) Create(ctx context.Context, chunk *models.Chunk) error {
	chunk.StartTime = chunk.StartTime.UTC()
	chunk.EndTime = chunk.EndTime.UTC()
	return r.db.WithContext(ctx).Omit("Item").Create(chunk).Error
}

func (r *chunkRepository) DeleteByItem(ctx context.Context, itemID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("item_id = ?", itemID).Delete(&models.Chunk{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *chunkRepository) overlapping(ctx context.Context, ownerID uint, from, to time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Chunk{}).
		Where("owner_id = ?", ownerID).
		Where("start_time < ? AND end_time > ?", to.UTC(), from.UTC())
}
