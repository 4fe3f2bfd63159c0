package round

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

// Standing is a team's place on the leaderboard.
type Standing struct {
	Rank  int              `json:"rank"`
	Team  market.TeamState `json:"team"`
	Score float64          `json:"score"`
	Phase string           `json:"phase"`
}

// Leaderboard ranks every team by eco-score, highest first. Equal scores are
// ordered by team id and share a rank.
func (s *Service) Leaderboard(ctx context.Context) ([]Standing, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return Rank(teams, cfg.CurrentRound), nil
}

// Rank scores and orders teams as of round.
func Rank(teams []market.TeamState, round int) []Standing {
	out := make([]Standing, len(teams))
	for i, t := range teams {
		out[i] = Standing{
			Team:  t,
			Score: market.ScoreTeam(t),
			Phase: market.PhaseOf(t, round).String(),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Team.ID < out[j].Team.ID
	})
	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

// Standing returns one team's leaderboard entry.
func (s *Service) Standing(ctx context.Context, id string) (Standing, error) {
	board, err := s.Leaderboard(ctx)
	if err != nil {
		return Standing{}, err
	}
	id = strings.TrimSpace(id)
	for _, st := range board {
		if st.Team.ID == id {
			return st, nil
		}
	}
	return Standing{}, fmt.Errorf("standing for %s: %w", id, storage.ErrNotFound)
}
