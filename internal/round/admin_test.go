package round

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/scenario"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

func TestAddAndRemoveTeam(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	team, err := svc.AddTeam(ctx, "  red ")
	require.NoError(t, err)
	assert.Equal(t, "red", team.ID)
	assert.Equal(t, 1500, team.Cash)

	_, err = svc.AddTeam(ctx, "red")
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	_, err = svc.AddTeam(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidTeamID)

	require.NoError(t, svc.RemoveTeam(ctx, "red"))
	assert.ErrorIs(t, svc.RemoveTeam(ctx, "red"), storage.ErrNotFound)
}

func TestLocking(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "a", "b")

	team, err := svc.ToggleLock(ctx, "a")
	require.NoError(t, err)
	assert.True(t, team.Locked)
	team, err = svc.ToggleLock(ctx, "a")
	require.NoError(t, err)
	assert.False(t, team.Locked)

	n, err := svc.LockAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = svc.SubmitChoice(ctx, "b", dirty)
	assert.ErrorIs(t, err, ErrTeamLocked)

	_, err = svc.UnlockAll(ctx)
	require.NoError(t, err)
	_, err = svc.SubmitChoice(ctx, "b", dirty)
	assert.NoError(t, err)
}

func TestGlobalBonus(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "a", "b")

	n, err := svc.GlobalBonus(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = svc.GlobalBonus(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = svc.GlobalBonus(ctx, -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	board, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	for _, st := range board {
		assert.Equal(t, 2100, st.Team.Cash)
	}
}

func TestAdjustOverrideAndReset(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red")

	team, err := svc.AdjustTeam(ctx, "red", -200, 4)
	require.NoError(t, err)
	assert.Equal(t, 1300, team.Cash)
	assert.Equal(t, 4, team.CarbonDebt)

	team, err = svc.OverrideTeam(ctx, "red", 9000, 150)
	require.NoError(t, err)
	assert.Equal(t, 9000, team.Cash)
	assert.Equal(t, 150, team.CarbonDebt)

	st, err := svc.Standing(ctx, "red")
	require.NoError(t, err)
	assert.InDelta(t, 5400.0, st.Score, 1e-9, "debt above the cap scores as the cap")

	_, err = svc.SubmitChoice(ctx, "red", standard)
	require.NoError(t, err)
	team, err = svc.ResetTeam(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, market.TeamState{ID: "red", Cash: 1500, PendingChoice: market.TierNone}, team)

	_, err = svc.AdjustTeam(ctx, "ghost", 1, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = svc.OverrideTeam(ctx, "ghost", 1, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAdjustTeamSaturates(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red")

	_, err := svc.OverrideTeam(ctx, "red", math.MaxInt-10, math.MinInt+10)
	require.NoError(t, err)
	team, err := svc.AdjustTeam(ctx, "red", 100, -100)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, team.Cash)
	assert.Equal(t, math.MinInt, team.CarbonDebt)

	_, err = svc.GlobalBonus(ctx, 500)
	require.NoError(t, err)
	st, err := svc.Standing(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, st.Team.Cash)
	assert.Greater(t, st.Score, 0.0)
}

func TestResetGame(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red", "blue")

	_, err := svc.SubmitChoice(ctx, "red", dirty)
	require.NoError(t, err)
	_, err = svc.SetEvent(ctx, "The Economic Recession")
	require.NoError(t, err)
	_, err = svc.SettleRound(ctx)
	require.NoError(t, err)
	_, err = svc.StartNextRound(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Broadcast(ctx, "Round two!"))

	settings := scenario.Defaults()
	settings.StartingCash = 1000
	settings.WelcomeMessage = "Fresh start"
	svc.UpdateSettings(settings)
	require.NoError(t, svc.ResetGame(ctx))

	cfg, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.GlobalConfig{CurrentRound: 1, ActiveEvent: market.EventNone, SystemMessage: "Fresh start"}, cfg)

	board, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	for _, st := range board {
		assert.Equal(t, 1000, st.Team.Cash)
		assert.Equal(t, 0, st.Team.CarbonDebt)
		assert.Equal(t, 0, st.Team.SettledRound)
	}
	require.Len(t, svc.Journal().Entries(), 1)
}

func TestBroadcast(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)
	assert.ErrorIs(t, svc.Broadcast(ctx, "  "), ErrEmptyMessage)
	require.NoError(t, svc.Broadcast(ctx, "Market closes in 5 minutes"))
	cfg, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Market closes in 5 minutes", cfg.SystemMessage)
}

func TestRankTiesShareRank(t *testing.T) {
	teams := []market.TeamState{
		{ID: "c", Cash: 1000},
		{ID: "a", Cash: 1000},
		{ID: "b", Cash: 2000},
		{ID: "d", Cash: 0, CarbonDebt: -10},
	}
	board := Rank(teams, 1)
	var ids []string
	var ranks []int
	for _, st := range board {
		ids = append(ids, st.Team.ID)
		ranks = append(ranks, st.Rank)
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
}
