// Package storagetest holds behavior every storage.Store must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

// Welcome is the system message stores under test must be opened with.
const Welcome = "Welcome!"

// Run exercises a store implementation. open must return an empty store
// seeded with Welcome.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Run("seeded config", func(t *testing.T) { testSeededConfig(t, open(t)) })
	t.Run("team lifecycle", func(t *testing.T) { testTeamLifecycle(t, open(t)) })
	t.Run("update team", func(t *testing.T) { testUpdateTeam(t, open(t)) })
	t.Run("update all and clear", func(t *testing.T) { testUpdateAll(t, open(t)) })
	t.Run("config values", func(t *testing.T) { testConfigValues(t, open(t)) })
	t.Run("advance round", func(t *testing.T) { testAdvanceRound(t, open(t)) })
	t.Run("concurrent updates", func(t *testing.T) { testConcurrentUpdates(t, open(t)) })
	t.Run("cancelled context", func(t *testing.T) { testCancelled(t, open(t)) })
}

func testSeededConfig(t *testing.T, s storage.Store) {
	cfg, err := s.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, market.GlobalConfig{CurrentRound: 1, ActiveEvent: market.EventNone, SystemMessage: Welcome}, cfg)
}

func testTeamLifecycle(t *testing.T, s storage.Store) {
	ctx := context.Background()
	red := market.TeamState{ID: "red", Cash: 1500, CarbonDebt: -2, PendingChoice: market.TierDirty, LastActionRound: 1, Locked: true}
	require.NoError(t, s.CreateTeam(ctx, red))
	require.NoError(t, s.CreateTeam(ctx, market.TeamState{ID: "blue", Cash: 10}))
	assert.ErrorIs(t, s.CreateTeam(ctx, market.TeamState{ID: " red "}), storage.ErrAlreadyExists)
	assert.Error(t, s.CreateTeam(ctx, market.TeamState{ID: " "}))

	got, err := s.GetTeam(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, red, got)

	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "blue", teams[0].ID)
	assert.Equal(t, "red", teams[1].ID)

	require.NoError(t, s.WriteTeamStats(ctx, "blue", 99, 7))
	got, err = s.GetTeam(ctx, "blue")
	require.NoError(t, err)
	assert.Equal(t, 99, got.Cash)
	assert.Equal(t, 7, got.CarbonDebt)
	assert.ErrorIs(t, s.WriteTeamStats(ctx, "ghost", 1, 1), storage.ErrNotFound)

	require.NoError(t, s.DeleteTeam(ctx, "blue"))
	assert.ErrorIs(t, s.DeleteTeam(ctx, "blue"), storage.ErrNotFound)
	_, err = s.GetTeam(ctx, "blue")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdateTeam(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateTeam(ctx, market.TeamState{ID: "red", Cash: 1500}))

	after, err := s.UpdateTeam(ctx, "red", func(ts *market.TeamState) error {
		ts.Cash += 200
		ts.CarbonDebt++
		ts.PendingChoice = market.TierStandard
		ts.SettledRound = 1
		ts.ID = "renamed"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "red", after.ID, "the id is not writable")
	assert.Equal(t, 1700, after.Cash)

	boom := errors.New("boom")
	_, err = s.UpdateTeam(ctx, "red", func(ts *market.TeamState) error {
		ts.Cash = 0
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetTeam(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, market.TeamState{ID: "red", Cash: 1700, CarbonDebt: 1, PendingChoice: market.TierStandard, SettledRound: 1}, got)

	_, err = s.UpdateTeam(ctx, "ghost", func(*market.TeamState) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testUpdateAll(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateTeam(ctx, market.TeamState{ID: id, Cash: 100, PendingChoice: market.TierEthical}))
	}
	n, err := s.UpdateAllTeams(ctx, func(ts *market.TeamState) { ts.Cash += 500 })
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.ClearPendingChoices(ctx))
	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	for _, ts := range teams {
		assert.Equal(t, 600, ts.Cash, ts.ID)
		assert.Equal(t, market.TierNone, ts.PendingChoice, ts.ID)
	}
}

func testConfigValues(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.SetConfigValue(ctx, storage.KeyCurrentRound, "4"))
	require.NoError(t, s.SetConfigValue(ctx, storage.KeyActiveEvent, "The Tech Breakthrough"))
	require.NoError(t, s.SetConfigValue(ctx, storage.KeySystemMessage, "hello"))
	assert.ErrorIs(t, s.SetConfigValue(ctx, "weather", "sunny"), storage.ErrUnknownConfigKey)
	assert.Error(t, s.SetConfigValue(ctx, storage.KeyCurrentRound, "four"))

	cfg, err := s.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.GlobalConfig{CurrentRound: 4, ActiveEvent: market.EventTechBreakthrough, SystemMessage: "hello"}, cfg)

	require.NoError(t, s.SetConfigValue(ctx, storage.KeyActiveEvent, "Meteor"))
	require.NoError(t, s.SetConfigValue(ctx, storage.KeyCurrentRound, "-3"))
	cfg, err = s.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.EventNone, cfg.ActiveEvent, "unknown stored event reads as none")
	assert.Equal(t, 1, cfg.CurrentRound)
}

func testAdvanceRound(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateTeam(ctx, market.TeamState{ID: "a", PendingChoice: market.TierDirty, SettledRound: 1}))
	require.NoError(t, s.CreateTeam(ctx, market.TeamState{ID: "b", PendingChoice: market.TierEthical}))
	require.NoError(t, s.SetConfigValue(ctx, storage.KeyActiveEvent, "The Carbon Tax"))

	next, err := s.AdvanceRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	cfg, err := s.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.GlobalConfig{CurrentRound: 2, ActiveEvent: market.EventNone, SystemMessage: Welcome}, cfg)

	teams, err := s.ListTeams(ctx)
	require.NoError(t, err)
	for _, ts := range teams {
		assert.Equal(t, market.TierNone, ts.PendingChoice, ts.ID)
	}
	assert.Equal(t, 1, teams[0].SettledRound, "settlement stamps survive the advance")

	require.NoError(t, s.SetConfigValue(ctx, storage.KeyCurrentRound, "0"))
	next, err = s.AdvanceRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next, "an unreadable round counts as round 1")
}

func testConcurrentUpdates(t *testing.T, s storage.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateTeam(ctx, market.TeamState{ID: "red"}))

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := s.UpdateTeam(ctx, "red", func(ts *market.TeamState) error {
					ts.Cash++
					return nil
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	got, err := s.GetTeam(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, got.Cash, "no lost updates")
}

func testCancelled(t *testing.T, s storage.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ListTeams(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.GetConfig(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.AdvanceRound(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
