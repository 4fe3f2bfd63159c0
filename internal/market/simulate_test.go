package market

import (
	"math"
	"testing"
)

func TestDrawEventBounds(t *testing.T) {
	if _, err := DrawEvent(nil, NewSeededRNG(1)); err != ErrEmptyPool {
		t.Fatalf("empty pool err = %v", err)
	}
	got, err := DrawEvent([]Event{EventRecession}, nil)
	if err != nil || got != EventRecession {
		t.Fatalf("single pool got=%v err=%v", got, err)
	}
}

func TestRandomSourcesStayInRange(t *testing.T) {
	for name, rng := range map[string]RandomSource{"default": DefaultRNG(), "seeded": NewSeededRNG(5)} {
		for i := 0; i < 1000; i++ {
			if f := rng.Float64(); f < 0 || f >= 1 {
				t.Fatalf("%s: Float64() = %v", name, f)
			}
			if n := rng.IntN(3); n < 0 || n >= 3 {
				t.Fatalf("%s: IntN(3) = %d", name, n)
			}
		}
	}
	a, b := NewSeededRNG(8), NewSeededRNG(8)
	for i := 0; i < 10; i++ {
		if x, y := a.IntN(1000), b.IntN(1000); x != y {
			t.Fatalf("same seed diverged at draw %d: %d vs %d", i, x, y)
		}
	}
}

func TestDrawEventStatApprox(t *testing.T) {
	const n = 50000
	pool := Events()
	rng := NewSeededRNG(42)
	counts := map[Event]int{}
	for i := 0; i < n; i++ {
		e, err := DrawEvent(pool, rng)
		if err != nil {
			t.Fatal(err)
		}
		counts[e]++
	}
	want := 1 / float64(len(pool))
	for _, e := range pool {
		// should be around 0.2 each
		if diff := float64(counts[e])/n - want; diff > 0.01 || diff < -0.01 {
			t.Fatalf("%v freq=%f not close to %f", e, float64(counts[e])/n, want)
		}
	}
}

func TestRunMonteCarloDeterministicWithoutEvents(t *testing.T) {
	p := SimParams{
		StartCash: 1500,
		Rounds:    3,
		Strategy:  []Tier{TierStandard},
	}
	stats, err := RunMonteCarlo(p, 50, NewSeededRNG(7))
	if err != nil {
		t.Fatal(err)
	}
	// 1500 + 3*200 = 2100 cash, debt 3 → 1260 + 970
	want := Score(2100, 3)
	if math.Abs(stats.Mean-want) > 1e-9 || stats.StdDev > 1e-9 {
		t.Fatalf("stats = %+v, want constant %v", stats, want)
	}
	if math.Abs(stats.P50-stats.Min) > 1e-9 || math.Abs(stats.P90-stats.Max) > 1e-9 {
		t.Fatalf("percentiles of a constant sample should agree: %+v", stats)
	}
}

func TestRunMonteCarloSkipsUnaffordableRounds(t *testing.T) {
	p := SimParams{StartCash: 1000, Rounds: 4, Strategy: []Tier{TierEthical}}
	stats, err := RunMonteCarlo(p, 1, NewSeededRNG(1))
	if err != nil {
		t.Fatal(err)
	}
	if want := Score(1000, 0); stats.Mean != want {
		t.Fatalf("mean = %v, want %v (no affordable round)", stats.Mean, want)
	}
}

func TestRunMonteCarloReproducible(t *testing.T) {
	p := SimParams{
		StartCash:   1500,
		Rounds:      8,
		Strategy:    []Tier{TierDirty, TierEthical},
		EventChance: 0.7,
		EventPool:   Events(),
	}
	a, err := RunMonteCarlo(p, 200, NewSeededRNG(99))
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunMonteCarlo(p, 200, NewSeededRNG(99))
	if err != nil {
		t.Fatal(err)
	}
	if a.Mean != b.Mean || a.P90 != b.P90 {
		t.Fatalf("same seed should reproduce: %+v vs %+v", a, b)
	}
	if !(a.Min <= a.P10 && a.P10 <= a.P50 && a.P50 <= a.P90 && a.P90 <= a.Max) {
		t.Fatalf("percentiles out of order: %+v", a)
	}
}

func TestRunMonteCarloRejectsBadParams(t *testing.T) {
	bad := []SimParams{
		{Rounds: 0, Strategy: []Tier{TierDirty}},
		{Rounds: 3},
		{Rounds: 3, Strategy: []Tier{TierNone}},
		{Rounds: 3, Strategy: []Tier{TierDirty}, EventChance: 1.5, EventPool: Events()},
		{Rounds: 3, Strategy: []Tier{TierDirty}, EventChance: 0.5},
	}
	for i, p := range bad {
		if _, err := RunMonteCarlo(p, 10, NewSeededRNG(1)); err != ErrSimParams {
			t.Fatalf("case %d: err = %v, want ErrSimParams", i, err)
		}
	}
}
