// Package round runs a Carbon Crafts game over a storage.Store: it accepts
// team choices, settles rounds at most once per team, advances rounds and
// carries out admin actions.
package round

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/scenario"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

const tracerName = "github.com/xtding233/carbon-crafts/internal/round"

// Service is the round orchestrator. Choice submission and settlement share
// mu; round advance and full reset take it exclusively so no choice lands
// while choices are being cleared.
type Service struct {
	store   storage.Store
	journal *Journal
	rng     market.RandomSource
	tracer  trace.Tracer
	logger  *log.Logger

	mu sync.RWMutex

	settingsMu sync.RWMutex
	settings   scenario.Settings
}

// Option customizes a Service.
type Option func(*Service)

// WithRNG sets the randomness used by DrawEvent.
func WithRNG(rng market.RandomSource) Option {
	return func(s *Service) { s.rng = rng }
}

// WithLogger sets where lifecycle lines are printed.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(store storage.Store, settings scenario.Settings, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: settings,
		journal:  NewJournal(settings.JournalSize),
		rng:      market.DefaultRNG(),
		tracer:   otel.Tracer(tracerName),
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the scenario settings in effect.
func (s *Service) Settings() scenario.Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// UpdateSettings swaps in reloaded settings. Existing teams keep their state;
// only new teams, resets and later bonuses see the new values.
func (s *Service) UpdateSettings(settings scenario.Settings) {
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
	s.journal.Resize(settings.JournalSize)
}

func (s *Service) Journal() *Journal { return s.journal }

// State returns the global config.
func (s *Service) State(ctx context.Context) (market.GlobalConfig, error) {
	return s.store.GetConfig(ctx)
}

// SubmitChoice records tierID as the team's pending choice for the current
// round. A team may change its mind until it is settled.
func (s *Service) SubmitChoice(ctx context.Context, teamID, tierID string) (market.TeamState, error) {
	tier, err := market.ParseTier(tierID)
	if err != nil || !tier.Valid() {
		return market.TeamState{}, fmt.Errorf("%w: %q", ErrInvalidTier, tierID)
	}
	sup, _ := market.Lookup(tier)

	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return market.TeamState{}, fmt.Errorf("load config: %w", err)
	}
	team, err := s.store.UpdateTeam(ctx, teamID, func(t *market.TeamState) error {
		switch {
		case t.Locked:
			return ErrTeamLocked
		case t.SettledRound >= cfg.CurrentRound:
			return ErrAlreadySettled
		case t.Cash < sup.UnitCost:
			return fmt.Errorf("%w: need $%d, have $%d", ErrInsufficientFunds, sup.UnitCost, t.Cash)
		}
		t.PendingChoice = tier
		t.LastActionRound = cfg.CurrentRound
		return nil
	})
	if err != nil {
		return market.TeamState{}, fmt.Errorf("submit choice for %s: %w", teamID, err)
	}
	return team, nil
}

// TeamResult is one team's line in a settlement report.
type TeamResult struct {
	TeamID     string         `json:"team_id"`
	Tier       string         `json:"tier"`
	Outcome    market.Outcome `json:"outcome"`
	Cash       int            `json:"cash"`
	CarbonDebt int            `json:"carbon_debt"`
}

// Report summarizes one SettleRound call.
type Report struct {
	RunID   string       `json:"run_id"`
	Round   int          `json:"round"`
	Event   string       `json:"event"`
	Settled []TeamResult `json:"settled"`
	Skipped int          `json:"skipped"` // no choice, or already settled
	Failed  int          `json:"failed"`
}

// SettleRound applies the active event to every team holding a pending
// choice. Each team is settled inside its own store transaction and stamped
// with the round, so calling SettleRound again (or concurrently) never
// settles a team twice. A store failure on one team does not stop the rest;
// all failures are returned joined.
func (s *Service) SettleRound(ctx context.Context) (Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, span := s.tracer.Start(ctx, "round.Settle")
	defer span.End()

	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return Report{}, s.fail(span, fmt.Errorf("load config: %w", err))
	}
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return Report{}, s.fail(span, fmt.Errorf("list teams: %w", err))
	}

	rep := Report{
		RunID:   uuid.NewString(),
		Round:   cfg.CurrentRound,
		Event:   cfg.ActiveEvent.String(),
		Settled: []TeamResult{},
	}
	span.SetAttributes(
		attribute.String("carbon.run_id", rep.RunID),
		attribute.Int("carbon.round", rep.Round),
		attribute.String("carbon.event", rep.Event),
	)

	var errs []error
	for _, snapshot := range teams {
		if snapshot.PendingChoice == market.TierNone || snapshot.SettledRound >= cfg.CurrentRound {
			rep.Skipped++
			continue
		}
		var (
			out  market.Outcome
			tier market.Tier
		)
		after, err := s.store.UpdateTeam(ctx, snapshot.ID, func(t *market.TeamState) error {
			if t.PendingChoice == market.TierNone || t.SettledRound >= cfg.CurrentRound {
				return errSkip
			}
			tier = t.PendingChoice
			out = market.Settle(*t, tier, cfg.ActiveEvent)
			*t = out.Apply(*t)
			t.SettledRound = cfg.CurrentRound
			return nil
		})
		switch {
		case errors.Is(err, errSkip), errors.Is(err, storage.ErrNotFound):
			rep.Skipped++
			continue
		case err != nil:
			rep.Failed++
			errs = append(errs, fmt.Errorf("settle team %s: %w", snapshot.ID, err))
			continue
		}
		rep.Settled = append(rep.Settled, TeamResult{
			TeamID:     after.ID,
			Tier:       tier.String(),
			Outcome:    out,
			Cash:       after.Cash,
			CarbonDebt: after.CarbonDebt,
		})
		s.journal.Add(Entry{
			Round:   cfg.CurrentRound,
			Kind:    KindSettlement,
			TeamID:  after.ID,
			Message: fmt.Sprintf("%s: %s (net %+d, debt %+d)", tier, out.LogMessage, out.NetProfit, out.DebtDelta),
		})
	}

	span.SetAttributes(
		attribute.Int("carbon.settled", len(rep.Settled)),
		attribute.Int("carbon.skipped", rep.Skipped),
	)
	s.logger.Printf("round %d settled under %q: %d settled, %d skipped, %d failed",
		rep.Round, rep.Event, len(rep.Settled), rep.Skipped, rep.Failed)

	if err := errors.Join(errs...); err != nil {
		return rep, s.fail(span, err)
	}
	return rep, nil
}

// StartNextRound clears every pending choice, resets the event and bumps the
// round counter in one store step. It returns the new round number.
func (s *Service) StartNextRound(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "round.Advance")
	defer span.End()

	next, err := s.store.AdvanceRound(ctx)
	if err != nil {
		return 0, s.fail(span, fmt.Errorf("advance round: %w", err))
	}
	span.SetAttributes(attribute.Int("carbon.round", next))

	s.journal.Add(Entry{Round: next, Kind: KindRound, Message: fmt.Sprintf("Round %d started.", next)})
	s.logger.Printf("round %d started", next)
	return next, nil
}

// SetEvent activates the event named id for the current round. "None"
// clears it.
func (s *Service) SetEvent(ctx context.Context, id string) (market.Event, error) {
	ev, ok := market.ParseEvent(id)
	if !ok {
		return market.EventNone, fmt.Errorf("%w: %q", ErrUnknownEvent, id)
	}
	return ev, s.setEvent(ctx, ev)
}

func (s *Service) ClearEvent(ctx context.Context) error {
	return s.setEvent(ctx, market.EventNone)
}

// DrawEvent activates an event drawn uniformly from the scenario's pool.
func (s *Service) DrawEvent(ctx context.Context) (market.Event, error) {
	ev, err := market.DrawEvent(s.Settings().Events(), s.rng)
	if err != nil {
		return market.EventNone, err
	}
	return ev, s.setEvent(ctx, ev)
}

func (s *Service) setEvent(ctx context.Context, ev market.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.store.SetConfigValue(ctx, storage.KeyActiveEvent, ev.String()); err != nil {
		return fmt.Errorf("set event: %w", err)
	}
	round := 0
	if cfg, err := s.store.GetConfig(ctx); err == nil {
		round = cfg.CurrentRound
	}
	s.journal.Add(Entry{Round: round, Kind: KindEvent, Message: "Active event: " + ev.String()})
	return nil
}

// Broadcast replaces the system message every team sees.
func (s *Service) Broadcast(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}
	if err := s.store.SetConfigValue(ctx, storage.KeySystemMessage, message); err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	s.adminEntry(ctx, "", "Broadcast: "+message)
	return nil
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) adminEntry(ctx context.Context, teamID, message string) {
	round := 0
	if cfg, err := s.store.GetConfig(ctx); err == nil {
		round = cfg.CurrentRound
	}
	s.journal.Add(Entry{Round: round, Kind: KindAdmin, TeamID: teamID, Message: message})
}
