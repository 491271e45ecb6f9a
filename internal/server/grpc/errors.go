package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/server/gemini"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC status codes. Authentication
// failures get fixed messages so callers cannot tell the causes apart.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrAuthenticationFailed):
		return status.Error(codes.Unauthenticated, "authentication failed")
	case errors.Is(err, common.ErrNotAuthenticated):
		return status.Error(codes.Unauthenticated, "not authenticated")
	case errors.Is(err, common.ErrInvalidTicket), errors.Is(err, common.ErrTicketExpired):
		return status.Error(codes.Unauthenticated, "invalid enrollment ticket")
	case errors.Is(err, common.ErrUsernameTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrInvalidUsername),
		errors.Is(err, common.ErrEmptyCredential),
		errors.Is(err, gemini.ErrEmptyImage),
		errors.Is(err, errBadRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrRetryExhausted):
		return status.Error(codes.Unavailable, "upstream service unavailable")
	case errors.Is(err, common.ErrTOTPAlreadyConfigured):
		return status.Error(codes.FailedPrecondition, "totp already configured; sign in to re-enroll")
	case errors.Is(err, common.ErrUpstreamRejected), errors.Is(err, gemini.ErrNotConfigured):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
