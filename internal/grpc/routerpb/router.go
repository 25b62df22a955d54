package routerpb

import (
	"context"

	"google.golang.org/grpc"

	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	"github.com/VerteraIO/agentrouter/internal/routing"
)

const (
	ServiceName            = "agentrouter.v1.Router"
	RouteMethod            = "/" + ServiceName + "/Route"
	WatchAssignmentsMethod = "/" + ServiceName + "/WatchAssignments"
)

type (
	RouteRequest  = routing.Request
	RouteResponse = routing.Response
	Assignment    = dispatch.Assignment
)

type WatchRequest struct {
	AgentID string `json:"agent_id"`
}

// RouterServer is the server API for the Router service.
type RouterServer interface {
	Route(context.Context, *RouteRequest) (*RouteResponse, error)
	WatchAssignments(*WatchRequest, Router_WatchAssignmentsServer) error
}

type Router_WatchAssignmentsServer interface {
	Send(*Assignment) error
	grpc.ServerStream
}

type routerWatchAssignmentsServer struct {
	grpc.ServerStream
}

func (x *routerWatchAssignmentsServer) Send(m *Assignment) error {
	return x.ServerStream.SendMsg(m)
}

func RegisterRouterServer(s grpc.ServiceRegistrar, srv RouterServer) {
	s.RegisterService(&Router_ServiceDesc, srv)
}

func _Router_Route_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RouteRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RouterServer).Route(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RouteMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RouterServer).Route(ctx, req.(*RouteRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Router_WatchAssignments_Handler(srv any, stream grpc.ServerStream) error {
	m := new(WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RouterServer).WatchAssignments(m, &routerWatchAssignmentsServer{stream})
}

// Router_ServiceDesc is the grpc.ServiceDesc for the Router service.
var Router_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RouterServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Route",
			Handler:    _Router_Route_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchAssignments",
			Handler:       _Router_WatchAssignments_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "agentrouter/v1/router",
}

// RouterClient is the client API for the Router service.
type RouterClient interface {
	Route(ctx context.Context, in *RouteRequest, opts ...grpc.CallOption) (*RouteResponse, error)
	WatchAssignments(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (Router_WatchAssignmentsClient, error)
}

type Router_WatchAssignmentsClient interface {
	Recv() (*Assignment, error)
	grpc.ClientStream
}

type routerClient struct {
	cc grpc.ClientConnInterface
}

// NewRouterClient returns a client that always speaks the JSON codec.
func NewRouterClient(cc grpc.ClientConnInterface) RouterClient {
	return &routerClient{cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *routerClient) Route(ctx context.Context, in *RouteRequest, opts ...grpc.CallOption) (*RouteResponse, error) {
	out := new(RouteResponse)
	if err := c.cc.Invoke(ctx, RouteMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *routerClient) WatchAssignments(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (Router_WatchAssignmentsClient, error) {
	stream, err := c.cc.NewStream(ctx, &Router_ServiceDesc.Streams[0], WatchAssignmentsMethod, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &routerWatchAssignmentsClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type routerWatchAssignmentsClient struct {
	grpc.ClientStream
}

func (x *routerWatchAssignmentsClient) Recv() (*Assignment, error) {
	m := new(Assignment)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
