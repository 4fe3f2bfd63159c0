// Package memory provides an in-process Store for tests and single-machine
// classroom sessions that do not need to survive a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

type Store struct {
	mu     sync.Mutex
	teams  map[string]market.TeamState
	config map[storage.ConfigKey]string
}

// New returns an empty store whose config is seeded with welcome as the
// system message.
func New(welcome string) *Store {
	return &Store{
		teams:  map[string]market.TeamState{},
		config: storage.DefaultConfig(welcome),
	}
}

func (s *Store) GetTeam(ctx context.Context, id string) (market.TeamState, error) {
	if err := ctx.Err(); err != nil {
		return market.TeamState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.teams[strings.TrimSpace(id)]
	if !ok {
		return market.TeamState{}, storage.ErrNotFound
	}
	return t, nil
}

// ListTeams returns every team ordered by id.
func (s *Store) ListTeams(ctx context.Context) ([]market.TeamState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]market.TeamState, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateTeam(ctx context.Context, team market.TeamState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	team.ID = strings.TrimSpace(team.ID)
	if team.ID == "" {
		return fmt.Errorf("team id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[team.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.teams[team.ID] = team
	return nil
}

func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	if _, ok := s.teams[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.teams, id)
	return nil
}

// UpdateTeam holds the store lock across fn, so concurrent updates to the
// same team serialize.
func (s *Store) UpdateTeam(ctx context.Context, id string, fn func(*market.TeamState) error) (market.TeamState, error) {
	if err := ctx.Err(); err != nil {
		return market.TeamState{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id = strings.TrimSpace(id)
	t, ok := s.teams[id]
	if !ok {
		return market.TeamState{}, storage.ErrNotFound
	}
	if err := fn(&t); err != nil {
		return market.TeamState{}, err
	}
	t.ID = id
	s.teams[id] = t
	return t, nil
}

func (s *Store) UpdateAllTeams(ctx context.Context, fn func(*market.TeamState)) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.teams {
		fn(&t)
		t.ID = id
		s.teams[id] = t
	}
	return len(s.teams), nil
}

func (s *Store) WriteTeamStats(ctx context.Context, id string, cash, debt int) error {
	_, err := s.UpdateTeam(ctx, id, func(t *market.TeamState) error {
		t.Cash = cash
		t.CarbonDebt = debt
		return nil
	})
	return err
}

func (s *Store) ClearPendingChoices(ctx context.Context) error {
	_, err := s.UpdateAllTeams(ctx, func(t *market.TeamState) {
		t.PendingChoice = market.TierNone
	})
	return err
}

func (s *Store) AdvanceRound(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.teams {
		t.PendingChoice = market.TierNone
		s.teams[id] = t
	}
	next := market.SaturatingAdd(storage.NormalizeConfig(s.config).CurrentRound, 1)
	s.config[storage.KeyActiveEvent] = market.EventNoneID
	s.config[storage.KeyCurrentRound] = strconv.Itoa(next)
	return next, nil
}

func (s *Store) GetConfig(ctx context.Context) (market.GlobalConfig, error) {
	if err := ctx.Err(); err != nil {
		return market.GlobalConfig{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make(map[storage.ConfigKey]string, len(s.config))
	for k, v := range s.config {
		rows[k] = v
	}
	return storage.NormalizeConfig(rows), nil
}

func (s *Store) SetConfigValue(ctx context.Context, key storage.ConfigKey, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !key.Valid() {
		return fmt.Errorf("%w: %q", storage.ErrUnknownConfigKey, key)
	}
	if key == storage.KeyCurrentRound {
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("current round must be an integer: %q", value)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config[key] = value
	return nil
}

func (s *Store) Close() error { return nil }

var _ storage.Store = (*Store)(nil)
