package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hwplan-api/internal/dto"
	"github.com/noah-isme/hwplan-api/internal/models"
	"github.com/noah-isme/hwplan-api/internal/scheduler"
)

func intPtr(v int) *int {
	return &v
}

func TestResolvePolicyPrefersUserOverrides(t *testing.T) {
	defaults := scheduler.DefaultPolicy()

	cases := []struct {
		name      string
		user      *models.User
		wantBreak int
		wantChunk int
	}{
		{name: "no user", user: nil, wantBreak: 15, wantChunk: 10},
		{name: "no overrides", user: &models.User{ID: 1}, wantBreak: 15, wantChunk: 10},
		{name: "break only", user: &models.User{ID: 1, BreakTime: intPtr(5)}, wantBreak: 5, wantChunk: 10},
		{name: "both", user: &models.User{ID: 1, BreakTime: intPtr(0), ChunkTime: intPtr(25)}, wantBreak: 0, wantChunk: 25},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := ResolvePolicy(tc.user, defaults)
			require.Equal(t, tc.wantBreak, policy.BreakTime)
			require.Equal(t, tc.wantChunk, policy.MinChunkDuration)
			require.Equal(t, defaults.DayEnd, policy.DayEnd)
		})
	}
}

func TestPolicyServiceForUserFallsBackToDefaults(t *testing.T) {
	f := newServiceFixture(t)

	policy, err := f.policies.ForUser(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, scheduler.DefaultPolicy(), policy)

	response, err := f.policies.Get(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, response.BreakOverridden)
	require.Equal(t, 1380, response.DayEnd)
}

func TestPolicyServiceUpdateStoresOverrides(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	response, err := f.policies.Update(ctx, 7, dto.PolicyUpdateRequest{BreakTime: intPtr(5), ChunkTime: intPtr(20)})
	require.NoError(t, err)
	require.True(t, response.BreakOverridden)
	require.Equal(t, 20, response.MinChunkDuration)

	policy, err := f.policies.ForUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 5, policy.BreakTime)
	require.Equal(t, 20, policy.MinChunkDuration)

	response, err = f.policies.Update(ctx, 7, dto.PolicyUpdateRequest{ChunkTime: intPtr(20)})
	require.NoError(t, err)
	require.False(t, response.BreakOverridden)
	require.Equal(t, 15, response.BreakTime)
}

func TestPolicyServiceUpdateRejectsInvalidValues(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.policies.Update(context.Background(), 7, dto.PolicyUpdateRequest{BreakTime: intPtr(-5)})
	require.Error(t, err)

	_, err = f.policies.Update(context.Background(), 0, dto.PolicyUpdateRequest{})
	require.ErrorIs(t, err, ErrOwnerRequired)
}

func TestScheduleItemUsesUserBreakTime(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.policies.Update(ctx, 3, dto.PolicyUpdateRequest{BreakTime: intPtr(5)})
	require.NoError(t, err)
	policy, err := f.policies.ForUser(ctx, 3)
	require.NoError(t, err)

	item := newItem(t, f.db, 3, 60, 30, monday, clock(monday, 48, 0))
	result, err := f.schedules.ScheduleItem(ctx, item, policy)
	require.NoError(t, err)
	require.Len(t, result.Chunks, 2)
	require.True(t, result.Chunks[0].StartTime.Equal(clock(monday, 0, 5)))
	require.True(t, result.Chunks[1].StartTime.Equal(clock(monday, 0, 40)))
}
