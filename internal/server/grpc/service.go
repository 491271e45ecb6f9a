package grpc

import (
	"context"

	"github.com/dmitrijs2005/shieldauth/internal/shared"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// bearerMethods need a valid session; the rest are public or carry their
// own proof (the enrollment ticket).
var bearerMethods = map[string]struct{}{
	shared.FullMethod(shared.MethodSession):     {},
	shared.FullMethod(shared.MethodLogout):      {},
	shared.FullMethod(shared.MethodExtractText): {},
	shared.FullMethod(shared.MethodAnalyzeText): {},
}

// optionalSessionMethods run with or without a session. A bearer token, when
// sent, must still be valid.
var optionalSessionMethods = map[string]struct{}{
	shared.FullMethod(shared.MethodSetupTotp): {},
}

func requiresSession(fullMethod string) bool {
	_, ok := bearerMethods[fullMethod]
	return ok
}

func acceptsSession(fullMethod string) bool {
	_, ok := optionalSessionMethods[fullMethod]
	return ok
}

// AuthServiceServer is the server API. Messages are google.protobuf.Struct
// so the service runs on the standard proto codec without generated code.
type AuthServiceServer interface {
	RegisterPasskey(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RenewEnrollmentTicket(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetupTotp(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Session(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Logout(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ExtractText(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnalyzeText(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AuthServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AuthServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: shared.FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AuthServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes AuthService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: shared.ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(shared.MethodRegisterPasskey, AuthServiceServer.RegisterPasskey),
		unaryMethod(shared.MethodRenewEnrollmentTicket, AuthServiceServer.RenewEnrollmentTicket),
		unaryMethod(shared.MethodSetupTotp, AuthServiceServer.SetupTotp),
		unaryMethod(shared.MethodLogin, AuthServiceServer.Login),
		unaryMethod(shared.MethodSession, AuthServiceServer.Session),
		unaryMethod(shared.MethodLogout, AuthServiceServer.Logout),
		unaryMethod(shared.MethodExtractText, AuthServiceServer.ExtractText),
		unaryMethod(shared.MethodAnalyzeText, AuthServiceServer.AnalyzeText),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shieldui/v1/auth.proto",
}
