package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// sessionInterceptor guards bearer methods and checks the optional bearer
// token of SetupTotp. The authenticated user and token are handed to the
// handler through the context.
func (s *GRPCServer) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	required := requiresSession(info.FullMethod)
	if !required && !acceptsSession(info.FullMethod) {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
			header = values[0]
		}
	}
	if header == "" && !required {
		return handler(ctx, req)
	}

	res := s.guard.Check(ctx, header)
	if !res.OK() {
		return nil, toStatus(res.Reason())
	}

	return handler(auth.WithUser(ctx, res.User(), res.Token()), req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	reqID, err := common.MakeRandHexString(8)
	if err == nil {
		_ = grpc.SetHeader(ctx, metadata.Pairs(common.RequestIDHeaderName, reqID))
	}

	resp, err := handler(ctx, req)
	s.logger.Info(ctx, "request",
		"request_id", reqID,
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}
