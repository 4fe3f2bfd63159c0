// Package ops implements the carbon-ops command: offline balancing and
// inspection tools for game designers and instructors.
package ops

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xtding233/carbon-crafts/internal/api/grpcapi"
	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/round"
	"github.com/xtding233/carbon-crafts/internal/scenario"
	"github.com/xtding233/carbon-crafts/internal/storage/sqlite"
)

var ErrUsage = errors.New("usage: carbon-ops <simulate|plan|score|settle|leaderboard> [flags]")

// Run dispatches one subcommand and writes its report to out.
func Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return ErrUsage
	}
	p := message.NewPrinter(language.English)
	switch args[0] {
	case "simulate":
		return runSimulate(args[1:], p, out)
	case "score":
		return runScore(args[1:], p, out)
	case "settle":
		return runSettle(args[1:], p, out)
	case "plan":
		return runPlan(args[1:], p, out)
	case "leaderboard":
		return runLeaderboard(ctx, args[1:], p, out)
	}
	return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parseTierArg accepts a catalog id or its letter ("A", "B", "C").
func parseTierArg(s string) (market.Tier, error) {
	s = strings.TrimSpace(s)
	for _, sup := range market.Catalog() {
		if strings.EqualFold(s, sup.ID[len("Tier "):len("Tier ")+1]) {
			return sup.Tier, nil
		}
	}
	t, err := market.ParseTier(s)
	if err != nil {
		return market.TierInvalid, fmt.Errorf("%w: %q", err, s)
	}
	return t, nil
}

func parseStrategy(s string) ([]market.Tier, error) {
	var out []market.Tier
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := parseTierArg(part)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func runSimulate(args []string, p *message.Printer, out io.Writer) error {
	fs := newFlagSet("simulate", out)
	cash := fs.Int("cash", scenario.DefaultStartingCash, "starting cash")
	debt := fs.Int("debt", scenario.DefaultStartingDebt, "starting carbon debt")
	rounds := fs.Int("rounds", 6, "rounds per game")
	strategy := fs.String("strategy", "B", "comma separated tiers played in rotation, e.g. A,C")
	chance := fs.Float64("event-chance", 0.5, "probability an event fires in a round")
	trials := fs.Int("trials", 10000, "number of simulated games")
	seed := fs.Uint64("seed", 0, "RNG seed, 0 uses crypto randomness")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tiers, err := parseStrategy(*strategy)
	if err != nil {
		return err
	}

	var rng market.RandomSource = market.DefaultRNG()
	if *seed != 0 {
		rng = market.NewSeededRNG(*seed)
	}
	params := market.SimParams{
		StartCash:   *cash,
		StartDebt:   *debt,
		Rounds:      *rounds,
		Strategy:    tiers,
		EventChance: *chance,
		EventPool:   market.Events(),
	}
	if *chance == 0 {
		params.EventPool = nil
	}
	stats, err := market.RunMonteCarlo(params, *trials, rng)
	if err != nil {
		return err
	}

	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = t.String()
	}
	p.Fprintf(out, "strategy: %s over %d rounds, %d trials\n", strings.Join(names, " -> "), *rounds, *trials)
	p.Fprintf(out, "mean   %.1f (sd %.1f)\n", stats.Mean, stats.StdDev)
	p.Fprintf(out, "p10    %.1f\n", stats.P10)
	p.Fprintf(out, "p50    %.1f\n", stats.P50)
	p.Fprintf(out, "p90    %.1f\n", stats.P90)
	p.Fprintf(out, "range  %.1f .. %.1f\n", stats.Min, stats.Max)
	return nil
}

func runPlan(args []string, p *message.Printer, out io.Writer) error {
	fs := newFlagSet("plan", out)
	cash := fs.Int("cash", scenario.DefaultStartingCash, "starting cash")
	debt := fs.Int("debt", scenario.DefaultStartingDebt, "starting carbon debt")
	schedule := fs.String("events", "None,None,None", "comma separated event per round")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var events []market.Event
	for _, id := range strings.Split(*schedule, ",") {
		ev, ok := market.ParseEvent(id)
		if !ok {
			return fmt.Errorf("unknown event %q", strings.TrimSpace(id))
		}
		events = append(events, ev)
	}
	plan, err := market.BestPlan(market.TeamState{Cash: *cash, CarbonDebt: *debt}, events)
	if err != nil {
		return err
	}
	for i, t := range plan.Choices {
		p.Fprintf(out, "round %d  %-28s %s\n", i+1, events[i].String(), t.String())
	}
	p.Fprintf(out, "final cash %d, debt %d, score %.1f\n", plan.Cash, plan.Debt, plan.Score)
	return nil
}

func runScore(args []string, p *message.Printer, out io.Writer) error {
	fs := newFlagSet("score", out)
	cash := fs.String("cash", "0", "cash")
	debt := fs.String("debt", "0", "carbon debt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p.Fprintf(out, "%.1f\n", market.ScoreOf(*cash, *debt))
	return nil
}

func runSettle(args []string, p *message.Printer, out io.Writer) error {
	fs := newFlagSet("settle", out)
	cash := fs.Int("cash", scenario.DefaultStartingCash, "cash entering the round")
	debt := fs.Int("debt", 0, "carbon debt entering the round")
	tierArg := fs.String("tier", "B", "tier id or letter")
	event := fs.String("event", market.EventNoneID, "active event id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	state := market.TeamState{Cash: *cash, CarbonDebt: *debt}
	tier, err := parseTierArg(*tierArg)
	if err != nil {
		tier = market.TierInvalid
	}
	ev, ok := market.ParseEvent(*event)
	if !ok {
		return fmt.Errorf("unknown event %q", *event)
	}
	o := market.Settle(state, tier, ev)
	after := o.Apply(state)
	p.Fprintf(out, "%s\n", o.LogMessage)
	p.Fprintf(out, "net profit %d, debt %+d\n", o.NetProfit, o.DebtDelta)
	p.Fprintf(out, "cash %d -> %d, debt %d -> %d, score %.1f -> %.1f\n",
		state.Cash, after.Cash, state.CarbonDebt, after.CarbonDebt,
		market.ScoreTeam(state), market.ScoreTeam(after))
	return nil
}

func runLeaderboard(ctx context.Context, args []string, p *message.Printer, out io.Writer) error {
	fs := newFlagSet("leaderboard", out)
	dbPath := fs.String("db", "", "read a SQLite database directly")
	addr := fs.String("grpc", "", "query a running server over gRPC")
	timeout := fs.Duration("timeout", 5*time.Second, "gRPC call timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var rows []row
	switch {
	case *dbPath != "":
		store, err := sqlite.Open(*dbPath, scenario.DefaultWelcomeMessage)
		if err != nil {
			return err
		}
		defer store.Close()
		teams, err := store.ListTeams(ctx)
		if err != nil {
			return err
		}
		cfg, err := store.GetConfig(ctx)
		if err != nil {
			return err
		}
		for _, st := range round.Rank(teams, cfg.CurrentRound) {
			rows = append(rows, row{st.Rank, st.Team.ID, st.Team.Cash, st.Team.CarbonDebt, st.Score, st.Phase})
		}
	case *addr != "":
		conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return err
		}
		defer conn.Close()
		cctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()
		resp, err := grpcapi.NewClient(conn).Leaderboard(cctx)
		if err != nil {
			return err
		}
		for _, v := range resp.GetFields()["standings"].GetListValue().GetValues() {
			f := v.GetStructValue().AsMap()
			rows = append(rows, row{
				market.Int(f["rank"]), fmt.Sprint(f["team_id"]), market.Int(f["cash"]),
				market.Int(f["carbon_debt"]), toFloat(f["score"]), fmt.Sprint(f["phase"]),
			})
		}
	default:
		return errors.New("leaderboard needs -db or -grpc")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	p.Fprintf(tw, "RANK\tTEAM\tCASH\tDEBT\tSCORE\tPHASE\n")
	for _, r := range rows {
		p.Fprintf(tw, "%d\t%s\t%d\t%d\t%.1f\t%s\n", r.rank, r.team, r.cash, r.debt, r.score, r.phase)
	}
	return tw.Flush()
}

type row struct {
	rank  int
	team  string
	cash  int
	debt  int
	score float64
	phase string
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}
