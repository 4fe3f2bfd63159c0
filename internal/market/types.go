package market

// TeamState is the canonical per-team record. Stores normalize whatever they
// persist into this shape before the engine sees it.
type TeamState struct {
	ID              string `json:"id"`
	Cash            int    `json:"cash"`
	CarbonDebt      int    `json:"carbon_debt"`       // unbounded; clamped only when scoring
	PendingChoice   Tier   `json:"inventory_choice"`  // TierNone when nothing is submitted
	LastActionRound int    `json:"last_action_round"` // round of the latest submitted choice, 0 = never
	SettledRound    int    `json:"settled_round"`     // last round this team was settled in, 0 = never
	Locked          bool   `json:"locked"`            // admin lock, blocks new choices
}

// GlobalConfig is the singleton game state threaded into settlement.
type GlobalConfig struct {
	CurrentRound  int    `json:"current_round"`
	ActiveEvent   Event  `json:"active_event"`
	SystemMessage string `json:"system_message"`
}

// Outcome is what one settlement contributes to a team. It is never stored
// as-is; Apply folds it into TeamState.
type Outcome struct {
	NetProfit  int    `json:"net_profit"`
	DebtDelta  int    `json:"debt_delta"`
	LogMessage string `json:"log_message"`
}

// Apply returns s with the outcome's deltas folded in.
func (o Outcome) Apply(s TeamState) TeamState {
	s.Cash = SaturatingAdd(s.Cash, o.NetProfit)
	s.CarbonDebt = SaturatingAdd(s.CarbonDebt, o.DebtDelta)
	return s
}

// Phase is a team's position in the per-round state machine.
type Phase int

const (
	PhaseAwaitingChoice Phase = iota
	PhaseChoiceSubmitted
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseChoiceSubmitted:
		return "choice_submitted"
	case PhaseSettled:
		return "settled"
	default:
		return "awaiting_choice"
	}
}

// PhaseOf reports where s stands in the given round.
func PhaseOf(s TeamState, round int) Phase {
	if round > 0 && s.SettledRound >= round {
		return PhaseSettled
	}
	if s.PendingChoice != TierNone {
		return PhaseChoiceSubmitted
	}
	return PhaseAwaitingChoice
}
