// Package storage defines persistence contracts for team and game state.
package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/xtding233/carbon-crafts/internal/market"
)

var (
	// ErrNotFound indicates a requested team record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a team with the same id already exists.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrUnknownConfigKey indicates a write to a config key the game does not use.
	ErrUnknownConfigKey = errors.New("unknown config key")
)

// ConfigKey names one row of the key/value config table.
type ConfigKey string

const (
	KeyCurrentRound  ConfigKey = "current_round"
	KeyActiveEvent   ConfigKey = "active_event"
	KeySystemMessage ConfigKey = "system_message"
)

// ConfigKeys lists every key a store must hold.
func ConfigKeys() []ConfigKey {
	return []ConfigKey{KeyCurrentRound, KeyActiveEvent, KeySystemMessage}
}

// Valid reports whether k is a known config key.
func (k ConfigKey) Valid() bool {
	switch k {
	case KeyCurrentRound, KeyActiveEvent, KeySystemMessage:
		return true
	}
	return false
}

// Store persists teams and the global config.
//
// UpdateTeam is the per-team critical section: fn sees the current row and
// its edits are written back atomically. If fn returns an error nothing is
// written and the error is returned unchanged.
//
// AdvanceRound clears every pending choice, resets the active event and bumps
// the round as one atomic step, returning the new round.
type Store interface {
	GetTeam(ctx context.Context, id string) (market.TeamState, error)
	ListTeams(ctx context.Context) ([]market.TeamState, error)
	CreateTeam(ctx context.Context, team market.TeamState) error
	DeleteTeam(ctx context.Context, id string) error
	UpdateTeam(ctx context.Context, id string, fn func(*market.TeamState) error) (market.TeamState, error)
	UpdateAllTeams(ctx context.Context, fn func(*market.TeamState)) (int, error)
	WriteTeamStats(ctx context.Context, id string, cash, debt int) error
	ClearPendingChoices(ctx context.Context) error
	AdvanceRound(ctx context.Context) (int, error)

	GetConfig(ctx context.Context) (market.GlobalConfig, error)
	SetConfigValue(ctx context.Context, key ConfigKey, value string) error

	Close() error
}

// RawTeam is a team row before normalization. Columns are loosely typed so
// corrupt or legacy values degrade instead of failing the read.
type RawTeam struct {
	ID              string
	Cash            any
	CarbonDebt      any
	PendingChoice   any
	LastActionRound any
	SettledRound    any
	Locked          any
}

// NormalizeTeam is the one place stored rows become market.TeamState.
// Non-numeric numbers become 0 and an unrecognized choice becomes
// market.TierInvalid so settlement fails closed on it.
func NormalizeTeam(raw RawTeam) market.TeamState {
	return market.TeamState{
		ID:              strings.TrimSpace(raw.ID),
		Cash:            market.Int(raw.Cash),
		CarbonDebt:      market.Int(raw.CarbonDebt),
		PendingChoice:   normalizeChoice(raw.PendingChoice),
		LastActionRound: market.Int(raw.LastActionRound),
		SettledRound:    market.Int(raw.SettledRound),
		Locked:          truthy(raw.Locked),
	}
}

func truthy(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return market.Int(v) != 0
}

func normalizeChoice(v any) market.Tier {
	var s string
	switch x := v.(type) {
	case nil:
		return market.TierNone
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return market.TierInvalid
	}
	tier, err := market.ParseTier(s)
	if err != nil {
		return market.TierInvalid
	}
	return tier
}

// FormatChoice is the stored form of a pending choice.
func FormatChoice(t market.Tier) string {
	return t.String()
}

// DefaultConfig is the config of a fresh game.
func DefaultConfig(welcome string) map[ConfigKey]string {
	return map[ConfigKey]string{
		KeyCurrentRound:  "1",
		KeyActiveEvent:   market.EventNoneID,
		KeySystemMessage: welcome,
	}
}

// NormalizeConfig turns stored key/value rows into a GlobalConfig. A missing
// or unreadable round is round 1; an unknown event is no event.
func NormalizeConfig(rows map[ConfigKey]string) market.GlobalConfig {
	round := market.Int(rows[KeyCurrentRound])
	if round < 1 {
		round = 1
	}
	event, _ := market.ParseEvent(rows[KeyActiveEvent])
	return market.GlobalConfig{
		CurrentRound:  round,
		ActiveEvent:   event,
		SystemMessage: rows[KeySystemMessage],
	}
}
