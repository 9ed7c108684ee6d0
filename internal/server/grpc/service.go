package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gophident.v1.IdentityService"

const (
	MethodPing       = "Ping"
	MethodCreateUser = "CreateUser"
	MethodGetUser    = "GetUser"
	MethodLogin      = "Login"
	MethodGetMe      = "GetMe"
	MethodUpdateUser = "UpdateUser"
	MethodDeleteUser = "DeleteUser"
	MethodListUsers  = "ListUsers"
)

// FullMethod returns the "/service/method" path of a method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// IdentityServer is the server API. Requests and responses are
// google.protobuf.Struct documents.
type IdentityServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMe(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUsers(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(IdentityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IdentityServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IdentityServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes IdentityService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodPing, IdentityServer.Ping),
		methodDesc(MethodCreateUser, IdentityServer.CreateUser),
		methodDesc(MethodGetUser, IdentityServer.GetUser),
		methodDesc(MethodLogin, IdentityServer.Login),
		methodDesc(MethodGetMe, IdentityServer.GetMe),
		methodDesc(MethodUpdateUser, IdentityServer.UpdateUser),
		methodDesc(MethodDeleteUser, IdentityServer.DeleteUser),
		methodDesc(MethodListUsers, IdentityServer.ListUsers),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterIdentityServer registers srv on s.
func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// IdentityClient calls IdentityService methods over a client connection.
type IdentityClient struct {
	cc grpc.ClientConnInterface
}

func NewIdentityClient(cc grpc.ClientConnInterface) *IdentityClient {
	return &IdentityClient{cc: cc}
}

// Call invokes method with in and returns the response document. A nil in
// is sent as an empty document.
func (c *IdentityClient) Call(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if in == nil {
		in = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
