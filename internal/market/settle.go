package market

import (
	"fmt"
	"strings"
)

const (
	// InvalidChoiceLog tags the zero-effect outcome of an unknown tier.
	InvalidChoiceLog = "Invalid Choice"

	logSeparator = " | "

	finePerDebt       = 100
	taxRebate         = 200
	techCostReduction = 300
	techDebtReduction = 1
)

// Settle computes one team's round outcome for the chosen tier under the
// active event. It never fails: a tier outside the catalog yields a
// zero-effect outcome tagged InvalidChoiceLog.
//
// The carbon tax fine uses s.CarbonDebt as it stood when the round opened,
// before this round's debt delta.
func Settle(s TeamState, tier Tier, event Event) Outcome {
	sup, ok := Lookup(tier)
	if !ok {
		return Outcome{LogMessage: InvalidChoiceLog}
	}

	cost := sup.UnitCost
	revenue := sup.BaseRevenue
	debtDelta := sup.DebtDelta
	var logs []string

	switch event {
	case EventCarbonTax:
		fine := scale(s.CarbonDebt, finePerDebt)
		cost = SaturatingAdd(cost, fine)
		switch {
		case fine > 0:
			logs = append(logs, fmt.Sprintf("TAX: Paid $%d fine.", fine))
		case fine < 0:
			logs = append(logs, fmt.Sprintf("TAX: Earned $%d carbon credit.", -fine))
		default:
			revenue += taxRebate
			logs = append(logs, fmt.Sprintf("TAX: No debt? You get a $%d Rebate!", taxRebate))
		}

	case EventViralExpose:
		switch tier {
		case TierDirty:
			revenue = half(revenue)
			logs = append(logs, "SCANDAL: Tier C boycotted. Revenue halved.")
		case TierEthical:
			revenue *= 2
			logs = append(logs, "VIRAL FAME: Tier A demand skyrocketed!")
		}

	case EventRecession:
		switch tier {
		case TierEthical, TierStandard:
			revenue = half(revenue)
			logs = append(logs, "RECESSION: Luxury goods aren't selling.")
		case TierDirty:
			logs = append(logs, "RECESSION: Cheap goods (Tier C) selling normally.")
		}

	case EventTechBreakthrough:
		if tier == TierEthical {
			cost -= techCostReduction
			debtDelta -= techDebtReduction
			logs = append(logs, "TECH: Tier A is cheaper and cleaner.")
		}

	case EventGreenwashingCrackdown:
		// reserved: no numeric effect yet
	}

	if len(logs) == 0 {
		logs = append(logs, fmt.Sprintf("Market Stable. %s.", sup.ID))
	}

	return Outcome{
		NetProfit:  SaturatingSub(revenue, cost),
		DebtDelta:  debtDelta,
		LogMessage: strings.Join(logs, logSeparator),
	}
}

// SettleChoice is Settle over raw ids as they arrive from callers or storage.
// Unknown tier ids fail closed; unknown event ids settle as no event.
func SettleChoice(s TeamState, tierID, eventID string) Outcome {
	tier, err := ParseTier(tierID)
	if err != nil {
		return Outcome{LogMessage: InvalidChoiceLog}
	}
	event, _ := ParseEvent(eventID)
	return Settle(s, tier, event)
}

// half truncates toward zero, the one rounding rule the engine uses.
func half(v int) int { return v / 2 }
