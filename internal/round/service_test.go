package round

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/scenario"
	"github.com/xtding233/carbon-crafts/internal/storage"
	"github.com/xtding233/carbon-crafts/internal/storage/memory"
)

const (
	ethical  = "Tier A (Ethical)"
	standard = "Tier B (Standard)"
	dirty    = "Tier C (Dirty)"
)

func newService(t *testing.T, store storage.Store, teams ...string) *Service {
	t.Helper()
	if store == nil {
		store = memory.New(scenario.DefaultWelcomeMessage)
	}
	svc := New(store, scenario.Defaults(),
		WithRNG(market.NewSeededRNG(1)),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	for _, id := range teams {
		_, err := svc.AddTeam(context.Background(), id)
		require.NoError(t, err)
	}
	return svc
}

func TestSubmitChoiceStampsRound(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red")

	team, err := svc.SubmitChoice(ctx, "red", standard)
	require.NoError(t, err)
	assert.Equal(t, market.TierStandard, team.PendingChoice)
	assert.Equal(t, 1, team.LastActionRound)
	assert.Equal(t, market.PhaseChoiceSubmitted, market.PhaseOf(team, 1))

	team, err = svc.SubmitChoice(ctx, "red", dirty)
	require.NoError(t, err, "re-submitting before settlement overwrites")
	assert.Equal(t, market.TierDirty, team.PendingChoice)
}

func TestSubmitChoiceRejections(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red", "blue", "poor")

	_, err := svc.SubmitChoice(ctx, "red", "Tier D (Mystery)")
	assert.ErrorIs(t, err, ErrInvalidTier)
	_, err = svc.SubmitChoice(ctx, "red", "None")
	assert.ErrorIs(t, err, ErrInvalidTier)

	_, err = svc.ToggleLock(ctx, "blue")
	require.NoError(t, err)
	_, err = svc.SubmitChoice(ctx, "blue", ethical)
	assert.ErrorIs(t, err, ErrTeamLocked)

	_, err = svc.OverrideTeam(ctx, "poor", 600, 0)
	require.NoError(t, err)
	_, err = svc.SubmitChoice(ctx, "poor", standard)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = svc.SubmitChoice(ctx, "poor", dirty)
	assert.NoError(t, err)

	_, err = svc.SubmitChoice(ctx, "ghost", dirty)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.SubmitChoice(ctx, "red", standard)
	require.NoError(t, err)
	_, err = svc.SettleRound(ctx)
	require.NoError(t, err)
	_, err = svc.SubmitChoice(ctx, "red", ethical)
	assert.ErrorIs(t, err, ErrAlreadySettled)
}

func TestEndToEndRound(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red", "idle")

	_, err := svc.SubmitChoice(ctx, "red", standard)
	require.NoError(t, err)
	rep, err := svc.SettleRound(ctx)
	require.NoError(t, err)

	require.Len(t, rep.Settled, 1)
	assert.Equal(t, 1, rep.Skipped)
	res := rep.Settled[0]
	assert.Equal(t, "red", res.TeamID)
	assert.Equal(t, 1700, res.Cash)
	assert.Equal(t, 1, res.CarbonDebt)
	assert.Equal(t, "Market Stable. Tier B (Standard).", res.Outcome.LogMessage)

	st, err := svc.Standing(ctx, "red")
	require.NoError(t, err)
	assert.InDelta(t, 2010.0, st.Score, 1e-9)
	assert.Equal(t, market.PhaseSettled.String(), st.Phase)

	next, err := svc.StartNextRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next)

	team, err := svc.store.GetTeam(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, market.TierNone, team.PendingChoice)
	assert.Equal(t, market.PhaseAwaitingChoice, market.PhaseOf(team, next))
}

func TestSettleRoundAtMostOnce(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red")

	_, err := svc.SubmitChoice(ctx, "red", dirty)
	require.NoError(t, err)
	_, err = svc.SettleRound(ctx)
	require.NoError(t, err)

	rep, err := svc.SettleRound(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Settled)
	assert.Equal(t, 1, rep.Skipped)

	team, err := svc.store.GetTeam(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, 2000, team.Cash)
	assert.Equal(t, 3, team.CarbonDebt)
}

// Applying the same outcome twice drifts the state; the settled-round stamp
// is what keeps a repeated admin click from doing that.
func TestRepeatedApplyDrifts(t *testing.T) {
	s := market.TeamState{ID: "red", Cash: 1500}
	once := market.Settle(s, market.TierStandard, market.EventNone).Apply(s)
	twice := market.Settle(once, market.TierStandard, market.EventNone).Apply(once)
	assert.NotEqual(t, once, twice)
	assert.Equal(t, 1900, twice.Cash)
	assert.Equal(t, 2, twice.CarbonDebt)
}

func TestConcurrentSettleIsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	teams := []string{"a", "b", "c", "d", "e", "f"}
	svc := newService(t, nil, teams...)
	for _, id := range teams {
		_, err := svc.SubmitChoice(ctx, id, ethical)
		require.NoError(t, err)
	}
	require.NoError(t, func() error { _, err := svc.SetEvent(ctx, "The Viral Expose"); return err }())

	var wg sync.WaitGroup
	var mu sync.Mutex
	settled := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep, err := svc.SettleRound(ctx)
			assert.NoError(t, err)
			mu.Lock()
			settled += len(rep.Settled)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, len(teams), settled)
	board, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	for _, st := range board {
		assert.Equal(t, 2300, st.Team.Cash, st.Team.ID)
		assert.Equal(t, -1, st.Team.CarbonDebt, st.Team.ID)
	}
}

func TestConcurrentSubmitAndAdvance(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.SubmitChoice(ctx, "red", dirty)
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.StartNextRound(ctx)
		}()
	}
	wg.Wait()

	cfg, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 21, cfg.CurrentRound)
	team, err := svc.store.GetTeam(ctx, "red")
	require.NoError(t, err)
	if team.PendingChoice != market.TierNone {
		assert.Equal(t, cfg.CurrentRound, team.LastActionRound, "a surviving choice belongs to the current round")
	}
}

func TestInvalidStoredChoiceSettlesToNoOp(t *testing.T) {
	ctx := context.Background()
	store := memory.New("hi")
	svc := newService(t, store, "red")
	_, err := store.UpdateTeam(ctx, "red", func(t *market.TeamState) error {
		t.PendingChoice = market.TierInvalid
		return nil
	})
	require.NoError(t, err)

	rep, err := svc.SettleRound(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Settled, 1)
	assert.Equal(t, market.InvalidChoiceLog, rep.Settled[0].Outcome.LogMessage)
	assert.Equal(t, 1500, rep.Settled[0].Cash)
}

type flakyStore struct {
	storage.Store
	failFor string
}

var errDisk = errors.New("disk on fire")

func (f *flakyStore) UpdateTeam(ctx context.Context, id string, fn func(*market.TeamState) error) (market.TeamState, error) {
	if id == f.failFor {
		return market.TeamState{}, errDisk
	}
	return f.Store.UpdateTeam(ctx, id, fn)
}

func (f *flakyStore) AdvanceRound(ctx context.Context) (int, error) {
	if f.failFor == "advance" {
		return 0, errDisk
	}
	return f.Store.AdvanceRound(ctx)
}

func TestStartNextRoundFailureLeavesRoundIntact(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("hi")
	svc := newService(t, mem, "red")
	_, err := svc.SubmitChoice(ctx, "red", dirty)
	require.NoError(t, err)
	_, err = svc.SetEvent(ctx, "The Carbon Tax")
	require.NoError(t, err)

	svc.store = &flakyStore{Store: mem, failFor: "advance"}
	_, err = svc.StartNextRound(ctx)
	require.ErrorIs(t, err, errDisk)

	svc.store = mem
	cfg, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.CurrentRound)
	assert.Equal(t, market.EventCarbonTax, cfg.ActiveEvent)
	team, err := mem.GetTeam(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, market.TierDirty, team.PendingChoice, "choice kept for a retry")

	next, err := svc.StartNextRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
}

func TestSettleRoundContinuesPastStoreErrors(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("hi")
	svc := newService(t, mem, "a", "b", "c")
	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.SubmitChoice(ctx, id, dirty)
		require.NoError(t, err)
	}

	svc.store = &flakyStore{Store: mem, failFor: "b"}
	rep, err := svc.SettleRound(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errDisk)
	assert.Contains(t, err.Error(), "settle team b")
	assert.Len(t, rep.Settled, 2)
	assert.Equal(t, 1, rep.Failed)

	svc.store = mem
	rep, err = svc.SettleRound(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Settled, 1, "retry settles only the team that failed")
	assert.Equal(t, "b", rep.Settled[0].TeamID)
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	ev, err := svc.SetEvent(ctx, "The Carbon Tax")
	require.NoError(t, err)
	assert.Equal(t, market.EventCarbonTax, ev)

	_, err = svc.SetEvent(ctx, "Alien Invasion")
	assert.ErrorIs(t, err, ErrUnknownEvent)

	require.NoError(t, svc.ClearEvent(ctx))
	cfg, err := svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.EventNone, cfg.ActiveEvent)

	drawn, err := svc.DrawEvent(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, market.EventNone, drawn)
	cfg, err = svc.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, drawn, cfg.ActiveEvent)

	settings := scenario.Defaults()
	settings.EventPool = []string{"The Tech Breakthrough"}
	svc.UpdateSettings(settings)
	drawn, err = svc.DrawEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, market.EventTechBreakthrough, drawn)
}

func TestCarbonTaxUsesEnteringDebt(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil, "red")
	_, err := svc.OverrideTeam(ctx, "red", 1500, 5)
	require.NoError(t, err)
	_, err = svc.SubmitChoice(ctx, "red", dirty)
	require.NoError(t, err)
	_, err = svc.SetEvent(ctx, "The Carbon Tax")
	require.NoError(t, err)

	rep, err := svc.SettleRound(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Settled, 1)
	assert.Equal(t, 0, rep.Settled[0].Outcome.NetProfit)
	assert.Equal(t, 8, rep.Settled[0].CarbonDebt)
	assert.Equal(t, "TAX: Paid $500 fine.", rep.Settled[0].Outcome.LogMessage)
}
