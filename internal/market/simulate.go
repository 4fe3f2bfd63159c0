package market

import (
	"errors"
	"math"
	"sort"
)

var ErrSimParams = errors.New("invalid simulation params")

// SimParams describes one strategy played for a whole game.
type SimParams struct {
	StartCash int
	StartDebt int
	Rounds    int

	// Strategy is cycled: round r buys Strategy[(r-1) % len(Strategy)].
	Strategy []Tier

	// EventChance is the probability that a round has an event at all;
	// when it does, one is drawn uniformly from EventPool.
	EventChance float64
	EventPool   []Event
}

// Stats summarizes final scores across trials.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	Min    float64
	Max    float64
	P50    float64
	P90    float64
	P10    float64
	// raw samples if caller needs histograms/exports
	Samples []float64 `json:"-"`
}

func (p SimParams) validate() error {
	if p.Rounds <= 0 || len(p.Strategy) == 0 {
		return ErrSimParams
	}
	for _, t := range p.Strategy {
		if !t.Valid() {
			return ErrSimParams
		}
	}
	if math.IsNaN(p.EventChance) || p.EventChance < 0 || p.EventChance > 1 {
		return ErrSimParams
	}
	if p.EventChance > 0 && len(p.EventPool) == 0 {
		return ErrSimParams
	}
	return nil
}

// simulateOne plays one game and returns the final score. A round whose tier
// the team cannot afford is sat out, the same rule live choices follow.
func simulateOne(p SimParams, rng RandomSource) (float64, error) {
	s := TeamState{ID: "sim", Cash: p.StartCash, CarbonDebt: p.StartDebt}
	for r := 1; r <= p.Rounds; r++ {
		event := EventNone
		if p.EventChance > 0 && rng.Float64() < p.EventChance {
			e, err := DrawEvent(p.EventPool, rng)
			if err != nil {
				return 0, err
			}
			event = e
		}
		tier := p.Strategy[(r-1)%len(p.Strategy)]
		sup, _ := Lookup(tier)
		if s.Cash < sup.UnitCost {
			continue
		}
		s = Settle(s, tier, event).Apply(s)
	}
	return ScoreTeam(s), nil
}

// RunMonteCarlo repeats trials and returns summary stats of the final score.
// A nil rng uses DefaultRNG; pass NewSeededRNG for reproducible runs.
func RunMonteCarlo(p SimParams, trials int, rng RandomSource) (Stats, error) {
	if err := p.validate(); err != nil {
		return Stats{}, err
	}
	if trials <= 0 {
		return Stats{}, nil
	}
	if rng == nil {
		rng = DefaultRNG()
	}
	samples := make([]float64, trials)
	for i := 0; i < trials; i++ {
		v, err := simulateOne(p, rng)
		if err != nil {
			return Stats{}, err
		}
		samples[i] = v
	}
	return calcStats(samples), nil
}

// calcStats computes mean/variance/percentiles for samples.
func calcStats(xs []float64) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += v
	}
	mean := sum / float64(n)

	// population variance
	var acc float64
	for _, v := range xs {
		d := v - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	percentile := func(p float64) float64 {
		if n == 1 || p <= 0 {
			return cp[0]
		}
		if p >= 1 {
			return cp[n-1]
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return cp[i]
		}
		return cp[i]*(1-f) + cp[i+1]*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		Min:     cp[0],
		Max:     cp[n-1],
		P10:     percentile(0.10),
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		Samples: xs,
	}
}
