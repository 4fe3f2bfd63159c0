package market

import "errors"

// MaxPlanRounds bounds BestPlan's search depth.
const MaxPlanRounds = 12

var ErrPlanParams = errors.New("invalid plan params")

// Plan is the best sequence of choices for a known event schedule.
type Plan struct {
	Choices []Tier  `json:"choices"` // TierNone means sit the round out
	Cash    int     `json:"cash"`
	Debt    int     `json:"debt"`
	Score   float64 `json:"score"`
}

type planKey struct {
	round, cash, debt int
}

type planStep struct {
	score  float64
	choice Tier
	next   TeamState
}

// BestPlan finds the choices that maximize the final score when the event of
// every round is known in advance. It walks rounds depth-first and memoizes
// on (round, cash, debt), since nothing else in a team's state affects what
// follows. Ties go to the cleaner tier, with sitting out last.
func BestPlan(start TeamState, schedule []Event) (Plan, error) {
	if len(schedule) == 0 || len(schedule) > MaxPlanRounds {
		return Plan{}, ErrPlanParams
	}

	options := make([]Tier, 0, len(catalog)+1)
	for _, s := range catalog {
		options = append(options, s.Tier)
	}
	options = append(options, TierNone)

	memo := map[planKey]planStep{}
	var best func(r int, s TeamState) float64
	best = func(r int, s TeamState) float64 {
		if r == len(schedule) {
			return ScoreTeam(s)
		}
		k := planKey{r, s.Cash, s.CarbonDebt}
		if st, ok := memo[k]; ok {
			return st.score
		}
		var step planStep
		first := true
		for _, t := range options {
			next := s
			if sup, ok := Lookup(t); ok {
				if s.Cash < sup.UnitCost {
					continue
				}
				next = Settle(s, t, schedule[r]).Apply(s)
			}
			if v := best(r+1, next); first || v > step.score {
				step = planStep{score: v, choice: t, next: next}
				first = false
			}
		}
		memo[k] = step
		return step.score
	}

	score := best(0, start)

	plan := Plan{Choices: make([]Tier, 0, len(schedule)), Score: score}
	s := start
	for r := range schedule {
		step := memo[planKey{r, s.Cash, s.CarbonDebt}]
		plan.Choices = append(plan.Choices, step.choice)
		s = step.next
	}
	plan.Cash, plan.Debt = s.Cash, s.CarbonDebt
	return plan, nil
}
