// Package agent is the worker-side client of the Router gRPC service.
package agent

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/grpc/routerpb"
	"github.com/VerteraIO/agentrouter/internal/logging"
)

// DialOptions describes how to reach the router. TLS nil means plaintext.
type DialOptions struct {
	TLS   *tls.Config
	Token string
}

// Dial opens a client connection to addr.
func Dial(addr string, opts DialOptions, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if opts.TLS != nil {
		dialOpts = []grpc.DialOption{grpc.WithTransportCredentials(credentials.NewTLS(opts.TLS))}
	}
	if opts.Token != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(bearer{token: opts.Token, secure: opts.TLS != nil}))
	}
	return grpc.NewClient(addr, append(dialOpts, extra...)...)
}

// bearer attaches a JWT to every call.
type bearer struct {
	token  string
	secure bool
}

func (b bearer) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + b.token}, nil
}

func (b bearer) RequireTransportSecurity() bool { return b.secure }

// Handler receives each assignment. Returning an error stops Watch.
type Handler func(*dispatch.Assignment) error

// Watch streams assignments for agentID to handle until ctx is cancelled,
// the server ends the stream, or handle fails.
func Watch(ctx context.Context, conn grpc.ClientConnInterface, agentID string, handle Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	cli := routerpb.NewRouterClient(conn)
	stream, err := cli.WatchAssignments(ctx, &routerpb.WatchRequest{AgentID: agentID})
	if err != nil {
		return err
	}
	logger.Info("watching assignments", "agent_id", agentID)
	for {
		a, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		logger.Info("assignment received", "decision_id", a.DecisionID, "task_id", a.TaskID, "task_type", a.TaskType)
		if err := handle(a); err != nil {
			return err
		}
	}
}
