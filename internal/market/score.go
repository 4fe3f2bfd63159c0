package market

// DebtCap is the most carbon debt that can count against a score.
const DebtCap = 100

// Score is the eco-score: cash*0.6 + (100 - min(debt, 100))*10.
// Debt is not floored, so negative debt earns extra sustainability points.
// The result is not rounded; truncate for display only.
func Score(cash, debt int) float64 {
	effective := min(debt, DebtCap)
	sustainability := (float64(DebtCap) - float64(effective)) * 10
	financial := float64(cash) * 0.6
	return financial + sustainability
}

// ScoreOf is Score over loosely typed inputs; see Int for the coercion rules.
func ScoreOf(cash, debt any) float64 {
	return Score(Int(cash), Int(debt))
}

// ScoreTeam scores a team's current state.
func ScoreTeam(s TeamState) float64 {
	return Score(s.Cash, s.CarbonDebt)
}
