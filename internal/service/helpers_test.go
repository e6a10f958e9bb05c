package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/models"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

var monday = time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Item{}, &models.Chunk{}, &models.ScheduleRun{}))
	return db
}

func newItem(t *testing.T, db *gorm.DB, ownerID uint, total, maxChunk int, start time.Time, due time.Time) models.Item {
	t.Helper()
	item := models.Item{
		OwnerID:          ownerID,
		Name:             fmt.Sprintf("item-%d-%d", ownerID, total),
		Due:              due,
		StartDate:        datatypes.Date(start),
		TotalTimeNeeded:  total,
		MaxChunkDuration: maxChunk,
	}
	require.NoError(t, repository.NewItemRepository(db).Create(context.Background(), &item))
	return item
}

func clock(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.ScheduleEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.ScheduleEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) all() []dto.ScheduleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.ScheduleEvent(nil), p.events...)
}

type serviceFixture struct {
	db        *gorm.DB
	chunks    repository.ChunkRepository
	runs      repository.ScheduleRunRepository
	events    *recordingPublisher
	schedules ScheduleService
	policies  PolicyService
	items     ItemService
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	db := setupServiceDB(t)
	chunks := repository.NewChunkRepository(db)
	runs := repository.NewScheduleRunRepository(db)
	events := &recordingPublisher{}
	validate := validator.New()

	schedules := NewScheduleService(chunks, runs, events, time.UTC, testLogger())
	policies := NewPolicyService(repository.NewUserRepository(db), scheduler.DefaultPolicy(), validate, testLogger())
	items := NewItemService(repository.NewItemRepository(db), chunks, schedules, policies, nil, events, validate, time.UTC, testLogger())
	items.(*itemService).now = func() time.Time { return monday.Add(8 * time.Hour) }

	return serviceFixture{
		db:        db,
		chunks:    chunks,
		runs:      runs,
		events:    events,
		schedules: schedules,
		policies:  policies,
		items:     items,
	}
}

func requireNoOverlap(t *testing.T, chunks []models.Chunk) {
	t.Helper()
	for i := range chunks {
		require.True(t, chunks[i].EndTime.After(chunks[i].StartTime))
		for j := i + 1; j < len(chunks); j++ {
			a := scheduler.Interval{Start: chunks[i].StartTime, End: chunks[i].EndTime}
			b := scheduler.Interval{Start: chunks[j].StartTime, End: chunks[j].EndTime}
			require.False(t, a.Overlaps(b), "chunks %d and %d overlap", chunks[i].ID, chunks[j].ID)
		}
	}
}
