package grpc

import (
	"context"

	"edgeguard/guard"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "edgeguard.Gatekeeper"

// GatekeeperServer is the server side of the gatekeeper service.
type GatekeeperServer interface {
	Evaluate(ctx context.Context, req *HTTPRequest) (*guard.Decision, error)
	Protect(ctx context.Context, req *HTTPRequest) (*guard.Decision, error)
	Whitelist(ctx context.Context, req *SourceRequest) (*SourceRequest, error)
	Blacklist(ctx context.Context, req *SourceRequest) (*SourceRequest, error)
	Reputation(ctx context.Context, req *SourceRequest) (*guard.ReputationRecord, error)
	ClearCache(ctx context.Context, req *Empty) (*Empty, error)
	Metrics(ctx context.Context, req *Empty) (*guard.LiveMetrics, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GatekeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Evaluate", GatekeeperServer.Evaluate),
		unary("Protect", GatekeeperServer.Protect),
		unary("Whitelist", GatekeeperServer.Whitelist),
		unary("Blacklist", GatekeeperServer.Blacklist),
		unary("Reputation", GatekeeperServer.Reputation),
		unary("ClearCache", GatekeeperServer.ClearCache),
		unary("Metrics", GatekeeperServer.Metrics),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "edgeguard.json",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor for a GatekeeperServer method, decoding into a fresh Req.
func unary[Req any, Resp any](name string, call func(GatekeeperServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GatekeeperServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(GatekeeperServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
