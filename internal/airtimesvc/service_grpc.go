package airtimesvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "lora.airtime.v1.AirtimeService"

const (
	ComputeAirtimeFullMethodName          = "/" + ServiceName + "/ComputeAirtime"
	FragmentCountFullMethodName           = "/" + ServiceName + "/FragmentCount"
	EnumerateConfigurationsFullMethodName = "/" + ServiceName + "/EnumerateConfigurations"
)

// AirtimeServiceServer is the server API for the airtime service. Requests
// and responses are google.protobuf.Struct values; see the report package
// for their layout.
type AirtimeServiceServer interface {
	ComputeAirtime(context.Context, *structpb.Struct) (*structpb.Struct, error)
	FragmentCount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EnumerateConfigurations(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedAirtimeServiceServer can be embedded to satisfy
// AirtimeServiceServer with Unimplemented errors.
type UnimplementedAirtimeServiceServer struct{}

func (UnimplementedAirtimeServiceServer) ComputeAirtime(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ComputeAirtime not implemented")
}

func (UnimplementedAirtimeServiceServer) FragmentCount(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method FragmentCount not implemented")
}

func (UnimplementedAirtimeServiceServer) EnumerateConfigurations(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method EnumerateConfigurations not implemented")
}

// RegisterAirtimeServiceServer registers srv on s.
func RegisterAirtimeServiceServer(s grpc.ServiceRegistrar, srv AirtimeServiceServer) {
	s.RegisterService(&AirtimeService_ServiceDesc, srv)
}

func unaryHandler(
	fullMethod string,
	call func(AirtimeServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error),
) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AirtimeServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(AirtimeServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AirtimeService_ServiceDesc describes the service for grpc.Server.
var AirtimeService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AirtimeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ComputeAirtime",
			Handler:    unaryHandler(ComputeAirtimeFullMethodName, AirtimeServiceServer.ComputeAirtime),
		},
		{
			MethodName: "FragmentCount",
			Handler:    unaryHandler(FragmentCountFullMethodName, AirtimeServiceServer.FragmentCount),
		},
		{
			MethodName: "EnumerateConfigurations",
			Handler:    unaryHandler(EnumerateConfigurationsFullMethodName, AirtimeServiceServer.EnumerateConfigurations),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lora/airtime/v1/airtime.proto",
}

// AirtimeServiceClient is the client API for the airtime service.
type AirtimeServiceClient interface {
	ComputeAirtime(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	FragmentCount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	EnumerateConfigurations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type airtimeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAirtimeServiceClient returns a client bound to cc.
func NewAirtimeServiceClient(cc grpc.ClientConnInterface) AirtimeServiceClient {
	return &airtimeServiceClient{cc: cc}
}

func (c *airtimeServiceClient) ComputeAirtime(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ComputeAirtimeFullMethodName, in, opts...)
}

func (c *airtimeServiceClient) FragmentCount(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, FragmentCountFullMethodName, in, opts...)
}

func (c *airtimeServiceClient) EnumerateConfigurations(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, EnumerateConfigurationsFullMethodName, in, opts...)
}

func (c *airtimeServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
