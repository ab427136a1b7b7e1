package grpcsvc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName — полное имя админского сервиса.
const ServiceName = "storefront.admin.v1.FulfillmentService"

const (
	methodTransitionOrder = "TransitionOrder"
	methodCancelOrder     = "CancelOrder"
	methodSoftDeleteOrder = "SoftDeleteOrder"
	methodHardDeleteOrder = "HardDeleteOrder"
	methodGetOrder        = "GetOrder"
)

// FulfillmentServiceServer — серверная сторона. Запросы и ответы передаются
// как google.protobuf.Struct, поэтому сервису не нужен сгенерированный код.
type FulfillmentServiceServer interface {
	TransitionOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SoftDeleteOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HardDeleteOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterFulfillmentServiceServer регистрирует реализацию на сервере.
func RegisterFulfillmentServiceServer(s grpc.ServiceRegistrar, srv FulfillmentServiceServer) {
	s.RegisterService(&fulfillmentServiceDesc, srv)
}

type unaryMethod func(FulfillmentServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(FulfillmentServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(FulfillmentServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var fulfillmentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FulfillmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(methodTransitionOrder, FulfillmentServiceServer.TransitionOrder),
		unaryHandler(methodCancelOrder, FulfillmentServiceServer.CancelOrder),
		unaryHandler(methodSoftDeleteOrder, FulfillmentServiceServer.SoftDeleteOrder),
		unaryHandler(methodHardDeleteOrder, FulfillmentServiceServer.HardDeleteOrder),
		unaryHandler(methodGetOrder, FulfillmentServiceServer.GetOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/admin/v1/fulfillment.proto",
}

// FulfillmentServiceClient — клиент для админских утилит и тестов.
type FulfillmentServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewFulfillmentServiceClient оборачивает соединение.
func NewFulfillmentServiceClient(cc grpc.ClientConnInterface) *FulfillmentServiceClient {
	return &FulfillmentServiceClient{cc: cc}
}

func (c *FulfillmentServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FulfillmentServiceClient) TransitionOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodTransitionOrder, in, opts...)
}

func (c *FulfillmentServiceClient) CancelOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodCancelOrder, in, opts...)
}

func (c *FulfillmentServiceClient) SoftDeleteOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodSoftDeleteOrder, in, opts...)
}

func (c *FulfillmentServiceClient) HardDeleteOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodHardDeleteOrder, in, opts...)
}

func (c *FulfillmentServiceClient) GetOrder(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, methodGetOrder, in, opts...)
}
