// Package controller serves the Router gRPC service on top of the routing
// service and the assignment dispatcher.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"

	"github.com/VerteraIO/agentrouter/internal/grpc/routerpb"
	"github.com/VerteraIO/agentrouter/internal/logging"
	"github.com/VerteraIO/agentrouter/internal/routing"
)

type RouterServer struct {
	svc    *routing.Service
	logger *slog.Logger
}

func NewRouterServer(svc *routing.Service, logger *slog.Logger) *RouterServer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RouterServer{svc: svc, logger: logger}
}

func (s *RouterServer) Route(ctx context.Context, req *routerpb.RouteRequest) (*routerpb.RouteResponse, error) {
	resp, err := s.svc.Route(ctx, *req)
	if err != nil {
		return nil, toStatus(err)
	}
	return &resp, nil
}

// WatchAssignments streams the agent's pending assignments, then live ones
// until the client goes away.
func (s *RouterServer) WatchAssignments(req *routerpb.WatchRequest, stream routerpb.Router_WatchAssignmentsServer) error {
	mgr := s.svc.Dispatch()
	if mgr == nil {
		return status.Error(codes.FailedPrecondition, "assignment dispatch is disabled")
	}
	if req.AgentID == "" {
		return status.Error(codes.InvalidArgument, "agent_id is required")
	}

	// Subscribe before draining so nothing published in between is missed.
	ch, unsubscribe := mgr.Subscribe(req.AgentID)
	defer unsubscribe()
	s.logger.Info("agent watching assignments", "agent_id", req.AgentID)

	for _, a := range mgr.DrainPending(req.AgentID) {
		if err := stream.Send(a); err != nil {
			return err
		}
	}
	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case a, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(a); err != nil {
				return err
			}
		}
	}
}

// toStatus maps routing error kinds onto gRPC codes.
func toStatus(err error) error {
	var re *routing.Error
	msg := err.Error()
	if errors.As(err, &re) && re.Message != "" {
		msg = re.Message
	}
	switch routing.KindOf(err) {
	case routing.KindInvalidRequest:
		return status.Error(codes.InvalidArgument, msg)
	case routing.KindModelUnavailable:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

// Options configures NewServer. Creds nil means plaintext.
type Options struct {
	Creds      credentials.TransportCredentials
	AuthSecret []byte
	Logger     *slog.Logger
}

// NewServer builds a grpc.Server with the Router service registered.
func NewServer(svc *routing.Service, opts Options) *grpc.Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	unary := []grpc.UnaryServerInterceptor{unaryLogger(logger)}
	streams := []grpc.StreamServerInterceptor{streamLogger(logger)}
	if len(opts.AuthSecret) > 0 {
		unary = append(unary, UnaryAuth(opts.AuthSecret))
		streams = append(streams, StreamAuth(opts.AuthSecret))
	}
	serverOpts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(streams...),
	}
	if opts.Creds != nil {
		serverOpts = append(serverOpts, grpc.Creds(opts.Creds))
	}
	gs := grpc.NewServer(serverOpts...)
	routerpb.RegisterRouterServer(gs, NewRouterServer(svc, logger))
	return gs
}

// Serve runs gs on lis until ctx is cancelled, then stops gracefully.
// Watch streams never finish on their own, so after shutdownTimeout the
// remaining ones are cut off.
func Serve(ctx context.Context, gs *grpc.Server, lis net.Listener, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- gs.Serve(lis)
	}()
	select {
	case <-ctx.Done():
		stopped := make(chan struct{})
		go func() {
			gs.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(shutdownTimeout):
			gs.Stop()
		}
		return nil
	case err := <-errCh:
		return err
	}
}
