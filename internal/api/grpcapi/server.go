package grpcapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/carbon-crafts/internal/market"
	"github.com/xtding233/carbon-crafts/internal/round"
	"github.com/xtding233/carbon-crafts/internal/storage"
)

// Market implements MarketServer over a round service.
type Market struct {
	svc *round.Service
}

func NewMarket(svc *round.Service) *Market {
	return &Market{svc: svc}
}

func (m *Market) Catalog(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	var tiers []any
	for _, sup := range market.Catalog() {
		tiers = append(tiers, map[string]any{
			"id":           sup.ID,
			"unit_cost":    sup.UnitCost,
			"debt_delta":   sup.DebtDelta,
			"base_revenue": sup.BaseRevenue,
		})
	}
	var events []any
	for _, e := range market.Events() {
		events = append(events, e.String())
	}
	return toStruct(map[string]any{"tiers": tiers, "events": events})
}

// Score scores loosely typed inputs; missing or non-numeric fields count as 0.
func (m *Market) Score(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.AsMap()
	return toStruct(map[string]any{"score": market.ScoreOf(fields["cash"], fields["debt"])})
}

func (m *Market) Leaderboard(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	board, err := m.svc.Leaderboard(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	rows := make([]any, len(board))
	for i, st := range board {
		rows[i] = standingFields(st)
	}
	return toStruct(map[string]any{"standings": rows})
}

func (m *Market) Standing(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := strings.TrimSpace(in.GetFields()["team_id"].GetStringValue())
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "team_id is required")
	}
	st, err := m.svc.Standing(ctx, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(standingFields(st))
}

func standingFields(st round.Standing) map[string]any {
	return map[string]any{
		"rank":             st.Rank,
		"team_id":          st.Team.ID,
		"cash":             st.Team.Cash,
		"carbon_debt":      st.Team.CarbonDebt,
		"inventory_choice": st.Team.PendingChoice.String(),
		"locked":           st.Team.Locked,
		"score":            st.Score,
		"phase":            st.Phase,
	}
}

func toStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// Server bundles the gRPC server and its health service.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
}

// NewServer builds an instrumented gRPC server serving svc.
func NewServer(svc *round.Service) *Server {
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	RegisterMarketServer(grpcServer, NewMarket(svc))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return &Server{grpcServer: grpcServer, health: healthServer}
}

// Serve runs until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	log.Printf("grpc listening at %v", lis.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}
