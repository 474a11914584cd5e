package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// InvoiceServiceName is the fully qualified gRPC service name.
const InvoiceServiceName = "construpro.v1.InvoiceService"

const (
	extractMethod   = "/" + InvoiceServiceName + "/Extract"
	exportBoQMethod = "/" + InvoiceServiceName + "/ExportBoQ"
)

// InvoiceServiceServer is the server API for construpro.v1.InvoiceService.
// Requests and responses are well-known protobuf types.
type InvoiceServiceServer interface {
	// Extract takes PDF bytes and returns the extracted record.
	Extract(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
	// ExportBoQ takes PDF bytes and returns the BoQ workbook.
	ExportBoQ(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// InvoiceServiceDesc is the grpc.ServiceDesc for construpro.v1.InvoiceService.
var InvoiceServiceDesc = grpc.ServiceDesc{
	ServiceName: InvoiceServiceName,
	HandlerType: (*InvoiceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
		{MethodName: "ExportBoQ", Handler: exportBoQHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "construpro/v1/invoice.proto",
}

// RegisterInvoiceServiceServer registers srv on s.
func RegisterInvoiceServiceServer(s grpc.ServiceRegistrar, srv InvoiceServiceServer) {
	s.RegisterService(&InvoiceServiceDesc, srv)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: extractMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func exportBoQHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvoiceServiceServer).ExportBoQ(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: exportBoQMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InvoiceServiceServer).ExportBoQ(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// InvoiceServiceClient is the client API for construpro.v1.InvoiceService.
type InvoiceServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewInvoiceServiceClient(cc grpc.ClientConnInterface) *InvoiceServiceClient {
	return &InvoiceServiceClient{cc: cc}
}

func (c *InvoiceServiceClient) Extract(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, extractMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InvoiceServiceClient) ExportBoQ(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, exportBoQMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
