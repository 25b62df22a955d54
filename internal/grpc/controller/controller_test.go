package controller_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/grpc/agent"
	"github.com/VerteraIO/agentrouter/internal/grpc/controller"
	"github.com/VerteraIO/agentrouter/internal/grpc/routerpb"
	"github.com/VerteraIO/agentrouter/internal/routing"
	"github.com/VerteraIO/agentrouter/internal/security/auth"
)

type harness struct {
	svc  *routing.Service
	mgr  *dispatch.Manager
	conn *grpc.ClientConn
	lis  *bufconn.Listener
}

func start(t *testing.T, secret []byte, token string) *harness {
	t.Helper()
	mgr := dispatch.NewManager(8)
	svc, err := routing.NewService(routing.Options{Dispatch: mgr})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	gs := controller.NewServer(svc, controller.Options{AuthSecret: secret})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = controller.Serve(ctx, gs, lis, time.Second)
		close(done)
	}()

	conn, err := agent.Dial("passthrough:///bufnet", agent.DialOptions{Token: token},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		<-done
	})
	return &harness{svc: svc, mgr: mgr, conn: conn, lis: lis}
}

func request(agentIDs ...string) *routerpb.RouteRequest {
	payloads := make([]routing.AgentPayload, 0, len(agentIDs))
	for _, id := range agentIDs {
		payloads = append(payloads, routing.AgentPayload{ID: id, Capabilities: []string{"text_processing"}})
	}
	return &routerpb.RouteRequest{
		Agents: &payloads,
		Task:   &routing.TaskPayload{ID: "t1", Type: "text_processing", RequiredCapabilities: []string{"text_processing"}},
	}
}

func TestRouteOverGRPC(t *testing.T) {
	h := start(t, nil, "")
	cli := routerpb.NewRouterClient(h.conn)

	resp, err := cli.Route(context.Background(), request("A", "B"))
	require.NoError(t, err)
	require.NotNil(t, resp.BestAgentID)
	assert.Equal(t, "A", *resp.BestAgentID)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 120.0, *resp.Score)
	assert.NotEmpty(t, resp.DecisionID)
}

func TestRouteErrorCodes(t *testing.T) {
	h := start(t, nil, "")
	cli := routerpb.NewRouterClient(h.conn)

	_, err := cli.Route(context.Background(), &routerpb.RouteRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req := request("A")
	req.Strategy = "predictive"
	_, err = cli.Route(context.Background(), req)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestWatchAssignmentsPendingThenLive(t *testing.T) {
	h := start(t, nil, "")
	h.mgr.Publish(&dispatch.Assignment{DecisionID: "earlier", AgentID: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *dispatch.Assignment, 4)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- agent.Watch(ctx, h.conn, "A", func(a *dispatch.Assignment) error {
			got <- a
			return nil
		}, nil)
	}()

	first := receive(t, got)
	assert.Equal(t, "earlier", first.DecisionID)

	resp, err := routerpb.NewRouterClient(h.conn).Route(context.Background(), request("A"))
	require.NoError(t, err)
	live := receive(t, got)
	assert.Equal(t, resp.DecisionID, live.DecisionID)
	assert.Equal(t, "t1", live.TaskID)

	cancel()
	select {
	case err := <-watchErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatchRequiresAgentID(t *testing.T) {
	h := start(t, nil, "")
	err := agent.Watch(context.Background(), h.conn, "", func(*dispatch.Assignment) error { return nil }, nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAuthInterceptors(t *testing.T) {
	secret := []byte("grpc-secret")

	anon := start(t, secret, "")
	_, err := routerpb.NewRouterClient(anon.conn).Route(context.Background(), request("A"))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = agent.Watch(context.Background(), anon.conn, "A", func(*dispatch.Assignment) error { return nil }, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	tok, err := auth.IssueToken(secret, "agent_1", time.Minute)
	require.NoError(t, err)
	authed := start(t, secret, tok)
	resp, err := routerpb.NewRouterClient(authed.conn).Route(context.Background(), request("A"))
	require.NoError(t, err)
	assert.Equal(t, "A", *resp.BestAgentID)
}

func receive(t *testing.T, ch <-chan *dispatch.Assignment) *dispatch.Assignment {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("no assignment received")
		return nil
	}
}
