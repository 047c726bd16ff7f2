// Package grpc exposes the gatekeeper to proxies and admin tooling over gRPC, with JSON encoded messages.
package grpc

import (
	"context"
	"errors"
	"net"

	"edgeguard/guard"
	"edgeguard/protection"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server serves the gatekeeper service.
type Server struct {
	logger         zerolog.Logger
	grpcServer     *grpc.Server
	maxConnections int
}

type serverImpl struct {
	logger     zerolog.Logger
	gatekeeper guard.Gatekeeper
	admin      guard.Administrator
	analytics  guard.Analytics
}

// NewServer creates a gRPC server backed by the given engine components.
// maxConnections caps concurrently accepted connections; zero means unlimited.
func NewServer(logger zerolog.Logger, gk guard.Gatekeeper, admin guard.Administrator, analytics guard.Analytics, maxConnections int) *Server {
	s := grpc.NewServer(
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(errorInterceptor(logger)),
	)
	s.RegisterService(&serviceDesc, &serverImpl{
		logger:     logger,
		gatekeeper: gk,
		admin:      admin,
		analytics:  analytics,
	})

	return &Server{
		logger:         logger,
		grpcServer:     s,
		maxConnections: maxConnections,
	}
}

// Serve listens on the given network and address and blocks until the server stops.
func (s *Server) Serve(network string, address string) error {
	lis, err := net.Listen(network, address)
	if err != nil {
		return err
	}

	s.logger.Info().Str("network", network).Str("address", address).Msg("Starting gRPC server")
	return s.ServeListener(lis)
}

// ServeListener serves on an existing listener.
func (s *Server) ServeListener(lis net.Listener) error {
	if s.maxConnections > 0 {
		lis = netutil.LimitListener(lis, s.maxConnections)
	}
	return s.grpcServer.Serve(lis)
}

// GracefulStop stops accepting new calls and waits for pending ones to finish.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
}

func (s *serverImpl) Evaluate(ctx context.Context, req *HTTPRequest) (*guard.Decision, error) {
	d := s.gatekeeper.Evaluate(ctx, wrapRequest(req))
	return &d, nil
}

func (s *serverImpl) Protect(ctx context.Context, req *HTTPRequest) (*guard.Decision, error) {
	d := s.gatekeeper.Protect(ctx, wrapRequest(req))
	return &d, nil
}

func (s *serverImpl) Whitelist(ctx context.Context, req *SourceRequest) (*SourceRequest, error) {
	source, err := s.admin.Whitelist(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	return &SourceRequest{SourceID: source}, nil
}

func (s *serverImpl) Blacklist(ctx context.Context, req *SourceRequest) (*SourceRequest, error) {
	source, err := s.admin.Blacklist(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	return &SourceRequest{SourceID: source}, nil
}

func (s *serverImpl) Reputation(ctx context.Context, req *SourceRequest) (*guard.ReputationRecord, error) {
	rec, err := s.admin.Reputation(ctx, req.SourceID)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *serverImpl) ClearCache(ctx context.Context, req *Empty) (*Empty, error) {
	s.admin.ClearCache()
	return &Empty{}, nil
}

func (s *serverImpl) Metrics(ctx context.Context, req *Empty) (*guard.LiveMetrics, error) {
	m := s.analytics.Metrics(ctx)
	return &m, nil
}

func wrapRequest(req *HTTPRequest) guard.HTTPRequest {
	if req.TransactionID == "" {
		req.TransactionID = uuid.NewString()
	}
	return &httpRequestWrapper{msg: req}
}

// errorInterceptor turns engine errors into gRPC status errors.
func errorInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}

		var inputErr *protection.InputError
		switch {
		case errors.As(err, &inputErr):
			return nil, status.Error(codes.InvalidArgument, inputErr.Error())
		case errors.Is(err, context.Canceled):
			return nil, status.Error(codes.Canceled, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			return nil, status.Error(codes.DeadlineExceeded, err.Error())
		}

		logger.Error().Err(err).Str("method", info.FullMethod).Msg("gRPC call failed")
		return nil, status.Error(codes.Internal, "internal error")
	}
}
