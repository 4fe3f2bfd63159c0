// Package grpcapi exposes read-only market queries over gRPC. Messages are
// google.protobuf.Struct so the service needs no generated code.
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "carbon.v1.MarketService"

const (
	methodCatalog     = "/" + ServiceName + "/Catalog"
	methodScore       = "/" + ServiceName + "/Score"
	methodLeaderboard = "/" + ServiceName + "/Leaderboard"
	methodStanding    = "/" + ServiceName + "/Standing"
)

// MarketServer is the server API for carbon.v1.MarketService.
type MarketServer interface {
	Catalog(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Score(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Leaderboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Standing(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterMarketServer(s grpc.ServiceRegistrar, srv MarketServer) {
	s.RegisterService(&serviceDesc, srv)
}

type unaryMethod func(MarketServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func handler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(MarketServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(MarketServer), ctx, req.(*structpb.Struct))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MarketServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Catalog", Handler: handler(methodCatalog, MarketServer.Catalog)},
		{MethodName: "Score", Handler: handler(methodScore, MarketServer.Score)},
		{MethodName: "Leaderboard", Handler: handler(methodLeaderboard, MarketServer.Leaderboard)},
		{MethodName: "Standing", Handler: handler(methodStanding, MarketServer.Standing)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "carbon/v1/market.proto",
}

// Client calls carbon.v1.MarketService.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Catalog(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCatalog, nil, opts...)
}

func (c *Client) Score(ctx context.Context, cash, debt any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"cash": cash, "debt": debt})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, methodScore, in, opts...)
}

func (c *Client) Leaderboard(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodLeaderboard, nil, opts...)
}

func (c *Client) Standing(ctx context.Context, teamID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"team_id": teamID})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, methodStanding, in, opts...)
}
