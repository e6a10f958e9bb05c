package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/models"
	"github.com/noah-isme/hwplan-api/internal/observability"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

const (
	defaultItemPageSize = 20
	maxItemPageSize     = 100
)

// ItemService manages items and keeps their chunks in sync with every change.
type ItemService interface {
	List(ctx context.Context, ownerID uint, req dto.ItemListRequest) (dto.ItemListResponse, error)
	Get(ctx context.Context, ownerID, id uint) (dto.ItemResponse, error)
	Create(ctx context.Context, ownerID uint, payload dto.ItemCreateRequest) (dto.ItemScheduleResponse, error)
	Update(ctx context.Context, ownerID, id uint, payload dto.ItemUpdateRequest) (dto.ItemScheduleResponse, error)
	Reschedule(ctx context.Context, ownerID, id uint) (dto.ItemScheduleResponse, error)
	Delete(ctx context.Context, ownerID, id uint) error
}

type itemService struct {
	items     repository.ItemRepository
	chunks    repository.ChunkRepository
	schedules ScheduleService
	policies  PolicyService
	calendar  CalendarService
	events    EventPublisher
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	location  *time.Location
	logger    zerolog.Logger
	now       func() time.Time
}

// NewItemService wires the item service. calendar and events may be nil.
func NewItemService(
	items repository.ItemRepository,
	chunks repository.ChunkRepository,
	schedules ScheduleService,
	policies PolicyService,
	calendar CalendarService,
	events EventPublisher,
	validate *validator.Validate,
	location *time.Location,
	logger zerolog.Logger,
) ItemService {
	if location == nil {
		location = time.UTC
	}

	return &itemService{
		items:     items,
		chunks:    chunks,
		schedules: schedules,
		policies:  policies,
		calendar:  calendar,
		events:    events,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		location:  location,
		logger:    logger.With().Str("component", "item_service").Logger(),
		now:       time.Now,
	}
}

func (s *itemService) List(ctx context.Context, ownerID uint, req dto.ItemListRequest) (dto.ItemListResponse, error) {
	if ownerID == 0 {
		return dto.ItemListResponse{}, ErrOwnerRequired
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.ItemListResponse{}, err
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultItemPageSize
	}
	if pageSize > maxItemPageSize {
		pageSize = maxItemPageSize
	}

	items, total, err := s.items.List(ctx, repository.ItemFilter{
		OwnerID:  ownerID,
		Kind:     req.Kind,
		Search:   req.Search,
		Sort:     req.Sort,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return dto.ItemListResponse{}, persistenceError("list items", err)
	}

	responses := make([]dto.ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewItemResponse(item, item.Chunks))
	}

	return dto.ItemListResponse{
		Items: responses,
		Pagination: dto.PaginationMeta{
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
		},
	}, nil
}

func (s *itemService) Get(ctx context.Context, ownerID, id uint) (dto.ItemResponse, error) {
	item, err := s.load(ctx, ownerID, id)
	if err != nil {
		return dto.ItemResponse{}, err
	}

	chunks, err := s.chunks.ListForItem(ctx, item.ID)
	if err != nil {
		return dto.ItemResponse{}, persistenceError("list item chunks", err)
	}

	return dto.NewItemResponse(item, chunks), nil
}

// Create validates and stores the item, then schedules it. An item that
// needs no time is stored without chunks.
func (s *itemService) Create(ctx context.Context, ownerID uint, payload dto.ItemCreateRequest) (dto.ItemScheduleResponse, error) {
	if ownerID == 0 {
		return dto.ItemScheduleResponse{}, ErrOwnerRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.ItemScheduleResponse{}, err
	}

	due, err := time.Parse(time.RFC3339, payload.Due)
	if err != nil {
		return dto.ItemScheduleResponse{}, fmt.Errorf("%w: due: %v", ErrInvalidItem, err)
	}
	startDate, err := s.parseStartDate(payload.StartDate)
	if err != nil {
		return dto.ItemScheduleResponse{}, err
	}

	item := models.Item{
		OwnerID:          ownerID,
		Kind:             payload.Kind,
		Name:             s.sanitize(payload.Name),
		Description:      s.sanitize(payload.Description),
		Due:              due,
		StartDate:        startDate,
		TotalTimeNeeded:  payload.TotalTimeNeeded,
		MaxChunkDuration: payload.MaxChunkDuration,
	}
	if err := checkItemName(item.Name); err != nil {
		return dto.ItemScheduleResponse{}, err
	}

	policy, err := s.policies.ForUser(ctx, ownerID)
	if err != nil {
		return dto.ItemScheduleResponse{}, err
	}
	if item.TotalTimeNeeded > 0 {
		if err := validateSchedule(requestFor(item), policy, s.location); err != nil {
			return dto.ItemScheduleResponse{}, err
		}
	}

	if err := s.items.Create(ctx, &item); err != nil {
		return dto.ItemScheduleResponse{}, persistenceError("create item", err)
	}

	result := ScheduleResult{}
	if item.TotalTimeNeeded > 0 {
		result, err = s.schedules.ScheduleItem(ctx, item, policy)
		s.invalidate(ctx, ownerID)
		if err != nil {
			return newItemScheduleResponse(item, result), err
		}
	}

	s.logger.Info().
		Uint("item_id", item.ID).
		Uint("owner_id", ownerID).
		Int("scheduled_minutes", result.ScheduledMinutes).
		Int("remaining_minutes", result.Remaining).
		Msg("item created")

	return newItemScheduleResponse(item, result), nil
}

// Update applies the changes and reschedules the item from scratch.
func (s *itemService) Update(ctx context.Context, ownerID, id uint, payload dto.ItemUpdateRequest) (dto.ItemScheduleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ItemScheduleResponse{}, err
	}

	item, err := s.load(ctx, ownerID, id)
	if err != nil {
		return dto.ItemScheduleResponse{}, err
	}

	if payload.Kind != nil {
		item.Kind = *payload.Kind
	}
	if payload.Name != nil {
		item.Name = s.sanitize(*payload.Name)
		if err := checkItemName(item.Name); err != nil {
			return dto.ItemScheduleResponse{}, err
		}
	}
	if payload.Description != nil {
		item.Description = s.sanitize(*payload.Description)
	}
	if payload.Due != nil {
		due, err := time.Parse(time.RFC3339, *payload.Due)
		if err != nil {
			return dto.ItemScheduleResponse{}, fmt.Errorf("%w: due: %v", ErrInvalidItem, err)
		}
		item.Due = due
	}
	if payload.StartDate != nil {
		startDate, err := s.parseStartDate(*payload.StartDate)
		if err != nil {
			return dto.ItemScheduleResponse{}, err
		}
		item.StartDate = startDate
	}
	if payload.TotalTimeNeeded != nil {
		item.TotalTimeNeeded = *payload.TotalTimeNeeded
	}
	if payload.MaxChunkDuration != nil {
		item.MaxChunkDuration = *payload.MaxChunkDuration
	}

	policy, err := s.policies.ForUser(ctx, ownerID)
	if err != nil {
		return dto.ItemScheduleResponse{}, err
	}
	if item.TotalTimeNeeded > 0 {
		if err := validateSchedule(requestFor(item), policy, s.location); err != nil {
			return dto.ItemScheduleResponse{}, err
		}
	}

	if err := s.items.Update(ctx, &item); err != nil {
		return dto.ItemScheduleResponse{}, persistenceError("update item", err)
	}

	result, err := s.reschedule(ctx, item, policy)
	if err != nil {
		return newItemScheduleResponse(item, result), err
	}

	return newItemScheduleResponse(item, result), nil
}

func (s *itemService) Reschedule(ctx context.Context, ownerID, id uint) (dto.ItemScheduleResponse, error) {
	item, err := s.load(ctx, ownerID, id)
	if err != nil {
		return dto.ItemScheduleResponse{}, err
	}

	policy, err := s.policies.ForUser(ctx, ownerID)
	if err != nil {
		return dto.ItemScheduleResponse{}, err
	}

	result, err := s.reschedule(ctx, item, policy)
	return newItemScheduleResponse(item, result), err
}

func (s *itemService) Delete(ctx context.Context, ownerID, id uint) error {
	item, err := s.load(ctx, ownerID, id)
	if err != nil {
		return err
	}

	// A pass still running for this owner finishes before the item goes.
	err = s.schedules.WithOwnerClaim(ctx, ownerID, func(ctx context.Context) error {
		if err := s.items.Delete(ctx, item.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return persistenceError("delete item", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)

	if s.events != nil {
		s.events.Publish(ctx, dto.ScheduleEvent{
			Type:          dto.ScheduleEventItemDeleted,
			OwnerID:       ownerID,
			ItemID:        item.ID,
			ItemName:      item.Name,
			Complete:      true,
			OccurredAt:    s.now().UTC(),
			CorrelationID: observability.CorrelationID(ctx),
		})
	}

	s.logger.Info().Uint("item_id", item.ID).Uint("owner_id", ownerID).Msg("item deleted")
	return nil
}

func (s *itemService) reschedule(ctx context.Context, item models.Item, policy scheduler.Policy) (ScheduleResult, error) {
	defer s.invalidate(ctx, item.OwnerID)

	if item.TotalTimeNeeded <= 0 {
		if _, err := s.schedules.Clear(ctx, item); err != nil {
			return ScheduleResult{}, err
		}
		return ScheduleResult{}, nil
	}

	return s.schedules.Reschedule(ctx, item, policy)
}

func (s *itemService) load(ctx context.Context, ownerID, id uint) (models.Item, error) {
	if ownerID == 0 {
		return models.Item{}, ErrOwnerRequired
	}

	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Item{}, ErrItemNotFound
		}
		return models.Item{}, persistenceError("load item", err)
	}
	if item.OwnerID != ownerID {
		return models.Item{}, ErrItemNotFound
	}
	return item, nil
}

func (s *itemService) parseStartDate(value string) (datatypes.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		y, m, d := s.now().In(s.location).Date()
		return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)), nil
	}

	parsed, err := time.Parse(dto.DateLayout, value)
	if err != nil {
		return datatypes.Date{}, fmt.Errorf("%w: start_date: %v", ErrInvalidItem, err)
	}
	return datatypes.Date(parsed), nil
}

// sanitize strips markup and returns plain text.
func (s *itemService) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

func (s *itemService) invalidate(ctx context.Context, ownerID uint) {
	if s.calendar != nil {
		s.calendar.Invalidate(ctx, ownerID)
	}
}

func checkItemName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty after sanitization", ErrInvalidItem)
	}
	if utf8.RuneCountInString(name) > models.ItemNameMaxLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidItem, models.ItemNameMaxLength)
	}
	return nil
}

func newItemScheduleResponse(item models.Item, result ScheduleResult) dto.ItemScheduleResponse {
	chunks := dto.NewChunkResponseSlice(result.Chunks)
	remaining := result.Remaining
	if remaining < 0 {
		remaining = 0
	}

	return dto.ItemScheduleResponse{
		Item: dto.NewItemResponse(item, result.Chunks),
		Schedule: dto.ScheduleSummary{
			RequestedMinutes: item.TotalTimeNeeded,
			ScheduledMinutes: result.ScheduledMinutes,
			RemainingMinutes: remaining,
			Complete:         remaining == 0,
			Chunks:           chunks,
		},
	}
}
