package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/netx"
	"github.com/dmitrijs2005/shieldauth/internal/server/gemini"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"user not found", common.ErrUserNotFound, codes.Unauthenticated},
		{"bad passkey", common.ErrInvalidCredential, codes.Unauthenticated},
		{"bad totp", common.ErrInvalidTOTP, codes.Unauthenticated},
		{"enrollment changed", common.ErrEnrollmentChanged, codes.Unauthenticated},
		{"expired session", common.ErrSessionExpired, codes.Unauthenticated},
		{"bad ticket", fmt.Errorf("%w: signature", common.ErrInvalidTicket), codes.Unauthenticated},
		{"expired ticket", common.ErrTicketExpired, codes.Unauthenticated},
		{"username taken", common.ErrUsernameTaken, codes.AlreadyExists},
		{"totp already set", common.ErrTOTPAlreadyConfigured, codes.FailedPrecondition},
		{"invalid username", common.ErrInvalidUsername, codes.InvalidArgument},
		{"empty credential", common.ErrEmptyCredential, codes.InvalidArgument},
		{"empty image", gemini.ErrEmptyImage, codes.InvalidArgument},
		{"bad request", errBadRequest, codes.InvalidArgument},
		{"exhausted", &netx.RetryExhaustedError{Attempts: 5, Cause: errors.New("503")}, codes.Unavailable},
		{"rejected", &netx.UpstreamRejectedError{Status: 400}, codes.FailedPrecondition},
		{"not configured", gemini.ErrNotConfigured, codes.FailedPrecondition},
		{"canceled", context.Canceled, codes.Canceled},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"other", errors.New("boom"), codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(toStatus(tt.err)))
		})
	}

	assert.NoError(t, toStatus(nil))
}

func TestToStatus_LoginCausesLookAlike(t *testing.T) {
	a := status.Convert(toStatus(common.ErrUserNotFound))
	b := status.Convert(toStatus(common.ErrInvalidCredential))
	c := status.Convert(toStatus(common.ErrInvalidTOTP))

	assert.Equal(t, a.Message(), b.Message())
	assert.Equal(t, b.Message(), c.Message())
}
