package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/models"
	"github.com/noah-isme/hwplan-api/internal/observability"
	"github.com/noah-isme/hwplan-api/internal/repository"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

type failingChunkRepo struct {
	repository.ChunkRepository
	allowed int
}

func (r *failingChunkRepo) Create(ctx context.Context, chunk *models.Chunk) error {
	if r.allowed == 0 {
		return errors.New("disk full")
	}
	r.allowed--
	return r.ChunkRepository.Create(ctx, chunk)
}

func TestScheduleItemPlacesChunkAfterLeadingBreak(t *testing.T) {
	f := newServiceFixture(t)
	item := newItem(t, f.db, 1, 30, 60, monday, clock(monday, 36, 0))

	result, err := f.schedules.ScheduleItem(context.Background(), item, scheduler.DefaultPolicy())
	require.NoError(t, err)
	require.True(t, result.Complete())
	require.Len(t, result.Chunks, 1)
	require.True(t, result.Chunks[0].StartTime.Equal(clock(monday, 0, 15)))
	require.True(t, result.Chunks[0].EndTime.Equal(clock(monday, 0, 45)))

	stored, err := f.chunks.ListForItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	runs, err := f.runs.ListByItem(context.Background(), item.ID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, models.ScheduleOutcomeComplete, runs[0].Outcome)
	require.Equal(t, 30, runs[0].ScheduledMinutes)

	events := f.events.all()
	require.Len(t, events, 1)
	require.Equal(t, dto.ScheduleEventItemScheduled, events[0].Type)
	require.True(t, events[0].Complete)
}

func TestScheduleItemReportsShortfallAsPartialSuccess(t *testing.T) {
	f := newServiceFixture(t)
	item := newItem(t, f.db, 1, 1500, 60, monday, clock(monday, 24, 0))

	result, err := f.schedules.ScheduleItem(context.Background(), item, scheduler.DefaultPolicy())
	require.NoError(t, err)
	require.False(t, result.Complete())
	require.Len(t, result.Chunks, 18)
	require.Equal(t, 1080, result.ScheduledMinutes)
	require.Equal(t, 420, result.Remaining)
	require.True(t, result.Chunks[17].EndTime.Equal(clock(monday, 22, 30)))

	runs, err := f.runs.ListByItem(context.Background(), item.ID, 1)
	require.NoError(t, err)
	require.Equal(t, models.ScheduleOutcomePartial, runs[0].Outcome)
	require.Equal(t, 420, runs[0].RemainingMinutes)
	require.EqualValues(t, 1, runs[0].Metadata["days"])

	events := f.events.all()
	require.Len(t, events, 1)
	require.False(t, events[0].Complete)
	require.Equal(t, 420, events[0].RemainingMinutes)
}

func TestScheduleItemWorksAroundOwnersOtherChunks(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	due := clock(monday, 48, 0)

	first := newItem(t, f.db, 1, 120, 60, monday, due)
	second := newItem(t, f.db, 1, 120, 45, monday, due)
	stranger := newItem(t, f.db, 2, 60, 60, monday, due)

	_, err := f.schedules.ScheduleItem(ctx, first, scheduler.DefaultPolicy())
	require.NoError(t, err)
	result, err := f.schedules.ScheduleItem(ctx, second, scheduler.DefaultPolicy())
	require.NoError(t, err)
	require.Equal(t, 120, result.ScheduledMinutes)

	other, err := f.schedules.ScheduleItem(ctx, stranger, scheduler.DefaultPolicy())
	require.NoError(t, err)
	require.True(t, other.Chunks[0].StartTime.Equal(clock(monday, 0, 15)))

	all, err := f.chunks.ListBusy(ctx, 1, monday, clock(monday, 48, 0))
	require.NoError(t, err)
	require.Len(t, all, 5)
	requireNoOverlap(t, all)

	// second item starts after the first item's two chunks and their breaks
	require.True(t, result.Chunks[0].StartTime.Equal(clock(monday, 2, 45)))
}

func TestScheduleItemRejectsInvalidRequestWithoutWriting(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	sameDay := newItem(t, f.db, 1, 60, 30, monday, clock(monday, 18, 0))
	_, err := f.schedules.ScheduleItem(ctx, sameDay, scheduler.DefaultPolicy())
	require.ErrorIs(t, err, scheduler.ErrInvalidScheduleRequest)

	noChunkSize := newItem(t, f.db, 1, 60, 0, monday, clock(monday, 48, 0))
	_, err = f.schedules.ScheduleItem(ctx, noChunkSize, scheduler.DefaultPolicy())
	require.ErrorIs(t, err, ErrInvalidScheduleRequest)

	valid := newItem(t, f.db, 1, 60, 30, monday, clock(monday, 48, 0))
	_, err = f.schedules.ScheduleItem(ctx, valid, scheduler.Policy{BreakTime: -1, MinChunkDuration: 10, DayEnd: 1380})
	require.ErrorIs(t, err, ErrInvalidScheduleRequest)

	busy, err := f.chunks.ListBusy(ctx, 1, monday, clock(monday, 72, 0))
	require.NoError(t, err)
	require.Empty(t, busy)

	runs, err := f.runs.ListByItem(ctx, sameDay.ID, 0)
	require.NoError(t, err)
	require.Empty(t, runs)
	require.Empty(t, f.events.all())
}

func TestScheduleItemKeepsCommittedChunksOnPersistenceError(t *testing.T) {
	f := newServiceFixture(t)
	chunks := &failingChunkRepo{ChunkRepository: f.chunks, allowed: 2}
	svc := NewScheduleService(chunks, f.runs, f.events, time.UTC, testLogger())
	item := newItem(t, f.db, 1, 300, 60, monday, clock(monday, 48, 0))

	result, err := svc.ScheduleItem(context.Background(), item, scheduler.DefaultPolicy())
	require.Error(t, err)
	require.True(t, IsPersistenceError(err))

	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	require.Equal(t, "save chunk", persistence.Op)

	require.Len(t, result.Chunks, 2)
	require.Equal(t, 180, result.Remaining)

	stored, err := f.chunks.ListForItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	runs, err := f.runs.ListByItem(context.Background(), item.ID, 1)
	require.NoError(t, err)
	require.Equal(t, models.ScheduleOutcomeFailed, runs[0].Outcome)
	require.Empty(t, f.events.all())
}

func TestRescheduleReplacesExistingChunks(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	item := newItem(t, f.db, 1, 90, 30, monday, clock(monday, 48, 0))

	_, err := f.schedules.ScheduleItem(ctx, item, scheduler.DefaultPolicy())
	require.NoError(t, err)

	item.MaxChunkDuration = 90
	result, err := f.schedules.Reschedule(ctx, item, scheduler.DefaultPolicy())
	require.NoError(t, err)
	require.Len(t, result.Chunks, 1)
	require.True(t, result.Chunks[0].StartTime.Equal(clock(monday, 0, 15)))

	stored, err := f.chunks.ListForItem(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	deleted, err := f.schedules.Clear(ctx, item)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestScheduleItemSerialisesPassesForSameOwner(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	due := clock(monday, 72, 0)

	items := make([]models.Item, 0, 6)
	for i := 0; i < 6; i++ {
		items = append(items, newItem(t, f.db, 1, 100+i*10, 45, monday, due))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(items))
	for _, item := range items {
		wg.Add(1)
		go func(item models.Item) {
			defer wg.Done()
			_, err := f.schedules.ScheduleItem(ctx, item, scheduler.DefaultPolicy())
			errs <- err
		}(item)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := f.chunks.ListBusy(ctx, 1, monday, due)
	require.NoError(t, err)
	requireNoOverlap(t, all)

	total := 0
	for _, chunk := range all {
		total += chunk.Minutes()
	}
	require.Equal(t, 100+110+120+130+140+150, total)
}

func TestScheduleItemHonoursCancelledContext(t *testing.T) {
	f := newServiceFixture(t)
	item := newItem(t, f.db, 1, 60, 30, monday, clock(monday, 48, 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.schedules.ScheduleItem(ctx, item, scheduler.DefaultPolicy())
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, result.Chunks)
	require.Equal(t, 60, result.Remaining)
}

func TestScheduleItemTagsRunAndEventWithCorrelationID(t *testing.T) {
	f := newServiceFixture(t)
	ctx := observability.WithCorrelationID(context.Background(), "req-42")
	item := newItem(t, f.db, 1, 30, 60, monday, clock(monday, 36, 0))

	_, err := f.schedules.ScheduleItem(ctx, item, scheduler.DefaultPolicy())
	require.NoError(t, err)

	runs, err := f.runs.ListByItem(ctx, item.ID, 1)
	require.NoError(t, err)
	require.Equal(t, "req-42", runs[0].Metadata["correlation_id"])

	events := f.events.all()
	require.Len(t, events, 1)
	require.Equal(t, "req-42", events[0].CorrelationID)

	other := newItem(t, f.db, 2, 30, 60, monday, clock(monday, 36, 0))
	_, err = f.schedules.ScheduleItem(context.Background(), other, scheduler.DefaultPolicy())
	require.NoError(t, err)
	runs, err = f.runs.ListByItem(context.Background(), other.ID, 1)
	require.NoError(t, err)
	require.NotContains(t, runs[0].Metadata, "correlation_id")
}
