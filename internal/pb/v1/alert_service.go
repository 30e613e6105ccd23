package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fully qualified names of the AlertService RPCs.
const (
	AlertServiceName         = "sos.v1.AlertService"
	SendAlertFullMethodName  = "/sos.v1.AlertService/SendAlert"
	ListAlertsFullMethodName = "/sos.v1.AlertService/ListAlerts"
)

// AlertServiceClient is the client API for AlertService.
type AlertServiceClient interface {
	// SendAlert delivers one alert and returns its receipt.
	SendAlert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	// ListAlerts returns the most recent alerts, newest first.
	ListAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type alertServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAlertServiceClient returns a client bound to cc.
func NewAlertServiceClient(cc grpc.ClientConnInterface) AlertServiceClient {
	return &alertServiceClient{cc: cc}
}

func (c *alertServiceClient) SendAlert(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SendAlertFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *alertServiceClient) ListAlerts(
	ctx context.Context,
	in *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ListAlertsFullMethodName, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

// AlertServiceServer is the server API for AlertService.
type AlertServiceServer interface {
	SendAlert(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListAlerts(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAlertServiceServer can be embedded to have forward compatible implementations.
type UnimplementedAlertServiceServer struct{}

// SendAlert returns Unimplemented.
func (UnimplementedAlertServiceServer) SendAlert(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SendAlert not implemented")
}

// ListAlerts returns Unimplemented.
func (UnimplementedAlertServiceServer) ListAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ListAlerts not implemented")
}

// RegisterAlertServiceServer registers srv on s.
func RegisterAlertServiceServer(s grpc.ServiceRegistrar, srv AlertServiceServer) {
	s.RegisterService(&AlertServiceDesc, srv)
}

// AlertServiceDesc is the grpc.ServiceDesc for AlertService.
var AlertServiceDesc = grpc.ServiceDesc{
	ServiceName: AlertServiceName,
	HandlerType: (*AlertServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SendAlert",
			Handler:    sendAlertHandler,
		},
		{
			MethodName: "ListAlerts",
			Handler:    listAlertsHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sos/v1/alert_service.proto",
}

func sendAlertHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlertServiceServer).SendAlert(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: SendAlertFullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlertServiceServer).SendAlert(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}

func listAlertsHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(AlertServiceServer).ListAlerts(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ListAlertsFullMethodName,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AlertServiceServer).ListAlerts(ctx, req.(*structpb.Struct))
	}

	return interceptor(ctx, in, info, handler)
}
