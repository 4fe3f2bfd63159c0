package round

import (
	"context"
	"fmt"
	"strings"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

// AddTeam registers a team with the scenario's starting cash and debt.
func (s *Service) AddTeam(ctx context.Context, id string) (market.TeamState, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return market.TeamState{}, ErrInvalidTeamID
	}
	team := s.freshTeam(id)
	if err := s.store.CreateTeam(ctx, team); err != nil {
		return market.TeamState{}, fmt.Errorf("add team %s: %w", id, err)
	}
	s.adminEntry(ctx, id, "Team added.")
	return team, nil
}

func (s *Service) RemoveTeam(ctx context.Context, id string) error {
	if err := s.store.DeleteTeam(ctx, id); err != nil {
		return fmt.Errorf("remove team %s: %w", id, err)
	}
	s.adminEntry(ctx, id, "Team removed.")
	return nil
}

// ToggleLock flips the team's admin lock.
func (s *Service) ToggleLock(ctx context.Context, id string) (market.TeamState, error) {
	team, err := s.store.UpdateTeam(ctx, id, func(t *market.TeamState) error {
		t.Locked = !t.Locked
		return nil
	})
	if err != nil {
		return market.TeamState{}, fmt.Errorf("toggle lock %s: %w", id, err)
	}
	state := "unlocked"
	if team.Locked {
		state = "locked"
	}
	s.adminEntry(ctx, team.ID, "Team "+state+".")
	return team, nil
}

func (s *Service) LockAll(ctx context.Context) (int, error) {
	return s.setAllLocked(ctx, true)
}

func (s *Service) UnlockAll(ctx context.Context) (int, error) {
	return s.setAllLocked(ctx, false)
}

func (s *Service) setAllLocked(ctx context.Context, locked bool) (int, error) {
	n, err := s.store.UpdateAllTeams(ctx, func(t *market.TeamState) { t.Locked = locked })
	if err != nil {
		return 0, fmt.Errorf("set lock on all teams: %w", err)
	}
	if locked {
		s.adminEntry(ctx, "", fmt.Sprintf("Locked %d teams.", n))
	} else {
		s.adminEntry(ctx, "", fmt.Sprintf("Unlocked %d teams.", n))
	}
	return n, nil
}

// GlobalBonus adds amount to every team's cash. Zero means the scenario's
// stimulus amount.
func (s *Service) GlobalBonus(ctx context.Context, amount int) (int, error) {
	if amount == 0 {
		amount = s.Settings().Stimulus
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	n, err := s.store.UpdateAllTeams(ctx, func(t *market.TeamState) { t.Cash = market.SaturatingAdd(t.Cash, amount) })
	if err != nil {
		return 0, fmt.Errorf("global bonus: %w", err)
	}
	s.adminEntry(ctx, "", fmt.Sprintf("Stimulus of $%d paid to %d teams.", amount, n))
	return n, nil
}

// AdjustTeam shifts a team's cash and debt by the given deltas.
func (s *Service) AdjustTeam(ctx context.Context, id string, cashDelta, debtDelta int) (market.TeamState, error) {
	team, err := s.store.UpdateTeam(ctx, id, func(t *market.TeamState) error {
		t.Cash = market.SaturatingAdd(t.Cash, cashDelta)
		t.CarbonDebt = market.SaturatingAdd(t.CarbonDebt, debtDelta)
		return nil
	})
	if err != nil {
		return market.TeamState{}, fmt.Errorf("adjust team %s: %w", id, err)
	}
	s.adminEntry(ctx, team.ID, fmt.Sprintf("Adjusted cash %+d, debt %+d.", cashDelta, debtDelta))
	return team, nil
}

// OverrideTeam writes cash and debt directly, outside of settlement.
func (s *Service) OverrideTeam(ctx context.Context, id string, cash, debt int) (market.TeamState, error) {
	if err := s.store.WriteTeamStats(ctx, id, cash, debt); err != nil {
		return market.TeamState{}, fmt.Errorf("override team %s: %w", id, err)
	}
	team, err := s.store.GetTeam(ctx, id)
	if err != nil {
		return market.TeamState{}, fmt.Errorf("override team %s: %w", id, err)
	}
	s.adminEntry(ctx, team.ID, fmt.Sprintf("Stats set to cash $%d, debt %d.", cash, debt))
	return team, nil
}

// ResetTeam puts one team back to its starting state.
func (s *Service) ResetTeam(ctx context.Context, id string) (market.TeamState, error) {
	team, err := s.store.UpdateTeam(ctx, id, func(t *market.TeamState) error {
		*t = s.freshTeam(t.ID)
		return nil
	})
	if err != nil {
		return market.TeamState{}, fmt.Errorf("reset team %s: %w", id, err)
	}
	s.adminEntry(ctx, team.ID, "Team reset.")
	return team, nil
}

// ResetGame resets every team and the global config to round 1 with no event
// and the welcome message. The journal is cleared.
func (s *Service) ResetGame(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "round.Reset")
	defer span.End()

	settings := s.Settings()
	if _, err := s.store.UpdateAllTeams(ctx, func(t *market.TeamState) {
		*t = s.freshTeam(t.ID)
	}); err != nil {
		return s.fail(span, fmt.Errorf("reset teams: %w", err))
	}
	for key, value := range storage.DefaultConfig(settings.WelcomeMessage) {
		if err := s.store.SetConfigValue(ctx, key, value); err != nil {
			return s.fail(span, fmt.Errorf("reset %s: %w", key, err))
		}
	}
	s.journal.Reset()
	s.journal.Add(Entry{Round: 1, Kind: KindRound, Message: "Game reset."})
	s.logger.Printf("game reset (scenario %q)", settings.Version)
	return nil
}

func (s *Service) freshTeam(id string) market.TeamState {
	settings := s.Settings()
	return market.TeamState{
		ID:            id,
		Cash:          settings.StartingCash,
		CarbonDebt:    settings.StartingDebt,
		PendingChoice: market.TierNone,
	}
}
