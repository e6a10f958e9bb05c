package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/models"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

// CalendarService answers month and day views over an owner's chunks.
type CalendarService interface {
	Month(ctx context.Context, ownerID uint, year, month int) (dto.CalendarMonthResponse, error)
	Day(ctx context.Context, ownerID uint, year, month, day int) (dto.CalendarDay, error)
	Invalidate(ctx context.Context, ownerID uint)
}

type calendarService struct {
	chunks   repository.ChunkRepository
	cache    *redis.Client
	cacheTTL time.Duration
	location *time.Location
	logger   zerolog.Logger
}

// NewCalendarService constructs a calendar service. A nil cache disables caching.
func NewCalendarService(chunks repository.ChunkRepository, cache *redis.Client, ttl time.Duration, location *time.Location, logger zerolog.Logger) CalendarService {
	if location == nil {
		location = time.UTC
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &calendarService{
		chunks:   chunks,
		cache:    cache,
		cacheTTL: ttl,
		location: location,
		logger:   logger.With().Str("component", "calendar_service").Logger(),
	}
}

func (s *calendarService) Month(ctx context.Context, ownerID uint, year, month int) (dto.CalendarMonthResponse, error) {
	if err := validateCalendarDate(year, month, 1); err != nil {
		return dto.CalendarMonthResponse{}, err
	}

	var response dto.CalendarMonthResponse
	cacheKey := s.cacheKey(ctx, ownerID, fmt.Sprintf("%04d-%02d", year, month))
	if s.readCache(ctx, cacheKey, &response) {
		return response, nil
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 1, 0)
	days, err := s.collect(ctx, ownerID, from, to)
	if err != nil {
		return dto.CalendarMonthResponse{}, err
	}

	response = dto.CalendarMonthResponse{Year: year, Month: month, Days: days}
	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

func (s *calendarService) Day(ctx context.Context, ownerID uint, year, month, day int) (dto.CalendarDay, error) {
	if err := validateCalendarDate(year, month, day); err != nil {
		return dto.CalendarDay{}, err
	}

	var response dto.CalendarDay
	cacheKey := s.cacheKey(ctx, ownerID, fmt.Sprintf("%04d-%02d-%02d", year, month, day))
	if s.readCache(ctx, cacheKey, &response) {
		return response, nil
	}

	from := time.Date(year, time.Month(month), day, 0, 0, 0, 0, s.location)
	days, err := s.collect(ctx, ownerID, from, scheduler.NextDay(from))
	if err != nil {
		return dto.CalendarDay{}, err
	}

	response = days[0]
	s.writeCache(ctx, cacheKey, response)
	return response, nil
}

// Invalidate bumps the owner's cache generation so earlier entries are never read again.
func (s *calendarService) Invalidate(ctx context.Context, ownerID uint) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Incr(ctx, s.versionKey(ownerID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("owner_id", ownerID).Msg("failed to invalidate calendar cache")
	}
}

// collect returns one bucket per day in [from, to). A chunk crossing midnight
// appears under every day it touches.
func (s *calendarService) collect(ctx context.Context, ownerID uint, from, to time.Time) ([]dto.CalendarDay, error) {
	chunks, err := s.chunks.ListCalendar(ctx, ownerID, from, to)
	if err != nil {
		return nil, persistenceError("load calendar", err)
	}

	days := make([]dto.CalendarDay, 0, 31)
	index := make(map[string]int)
	for day := from; day.Before(to); day = scheduler.NextDay(day) {
		key := day.Format(dto.DateLayout)
		index[key] = len(days)
		days = append(days, dto.CalendarDay{Date: key, Entries: []dto.CalendarEntry{}})
	}

	for _, chunk := range chunks {
		entry := newCalendarEntry(chunk, s.location)
		for day := scheduler.Midnight(chunk.StartTime, s.location); day.Before(chunk.EndTime) && day.Before(to); day = scheduler.NextDay(day) {
			if position, ok := index[day.Format(dto.DateLayout)]; ok {
				days[position].Entries = append(days[position].Entries, entry)
			}
		}
	}

	return days, nil
}

func newCalendarEntry(chunk models.Chunk, loc *time.Location) dto.CalendarEntry {
	return dto.CalendarEntry{
		ChunkID:   chunk.ID,
		ItemID:    chunk.ItemID,
		ItemName:  chunk.Item.Name,
		ItemKind:  chunk.Item.Kind,
		Due:       chunk.Item.Due.In(loc),
		StartTime: chunk.StartTime.In(loc),
		EndTime:   chunk.EndTime.In(loc),
		Minutes:   chunk.Minutes(),
	}
}

func validateCalendarDate(year, month, day int) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidCalendarRange, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidCalendarRange, month)
	}
	if day < 1 || day > daysIn(year, month) {
		return fmt.Errorf("%w: day %d", ErrInvalidCalendarRange, day)
	}
	return nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (s *calendarService) versionKey(ownerID uint) string {
	return fmt.Sprintf("calendar:%d:version", ownerID)
}

func (s *calendarService) cacheKey(ctx context.Context, ownerID uint, suffix string) string {
	if s.cache == nil {
		return ""
	}

	version, err := s.cache.Get(ctx, s.versionKey(ownerID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn().Err(err).Msg("failed to read calendar cache version")
		return ""
	}
	return fmt.Sprintf("calendar:%d:v%d:%s", ownerID, version, suffix)
}

func (s *calendarService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil || key == "" {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read calendar cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt calendar cache entry")
		return false
	}

	s.logger.Debug().Str("key", key).Msg("calendar cache hit")
	return true
}

func (s *calendarService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || key == "" {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode calendar cache entry")
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store calendar cache")
	}
}
