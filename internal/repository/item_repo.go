package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/models"
)

// ItemFilter describes owner scoping, search and pagination for item lists.
type ItemFilter struct {
	OwnerID  uint
	Kind     string
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// ItemRepository defines persistence operations for schedulable items.
type ItemRepository interface {
	List(ctx context.Context, filter ItemFilter) ([]models.Item, int64, error)
	GetByID(ctx context.Context, id uint) (models.Item, error)
	Create(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id uint) error
}

type itemRepository struct {
	db *gorm.DB
}

// NewItemRepository instantiates a GORM-backed repository.
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) List(ctx context.Context, filter ItemFilter) ([]models.Item, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{}).Where("owner_id = ?", filter.OwnerID)

	if filter.Kind != "" {
		query = query.Where("kind = ?", models.NormalizeItemKind(filter.Kind))
	}

	if filter.Search != "" {
		pattern := "%" + strings.ToLower(strings.TrimSpace(filter.Search)) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(normalizeItemSort(filter.Sort))

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var items []models.Item
	err := query.Preload("Chunks", func(db *gorm.DB) *gorm.DB {
		return db.Order("start_time ASC")
	}).Find(&items).Error
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *itemRepository) GetByID(ctx context.Context, id uint) (models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return models.Item{}, err
	}

	return item, nil
}

func (r *itemRepository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Omit("Chunks").Create(item).Error
}

func (r *itemRepository) Update(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Omit("Chunks").Save(item).Error
}

// Delete removes the item and its chunks in one transaction.
func (r *itemRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&models.Chunk{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Item{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func normalizeItemSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "-due", "due:desc", "due.desc":
		return "due DESC"
	case "name", "name:asc", "name.asc":
		return "name ASC"
	case "-name", "name:desc", "name.desc":
		return "name DESC"
	case "created_at", "created_at:asc", "created_at.asc":
		return "created_at ASC"
	case "-created_at", "created_at:desc", "created_at.desc":
		return "created_at DESC"
	default:
		return "due ASC"
	}
}
