package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/server/auth"
	"github.com/dmitrijs2005/shieldauth/internal/server/models"
	"github.com/dmitrijs2005/shieldauth/internal/server/services"
	"github.com/dmitrijs2005/shieldauth/internal/shared"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) respond(ctx context.Context, fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		s.logger.Error(ctx, "response encoding failed", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) fail(ctx context.Context, op string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error(ctx, op+" failed", "error", err)
	}
	return st
}

func (s *GRPCServer) RegisterPasskey(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(in, shared.FieldUsername)
	if err != nil {
		return nil, toStatus(err)
	}
	credential, err := bytesField(in, shared.FieldPasskeyCredential)
	if err != nil {
		return nil, toStatus(err)
	}

	user, err := s.auth.RegisterPasskey(ctx, username, credential)
	if err != nil {
		return nil, s.fail(ctx, "registration", err)
	}

	return s.enrollmentResponse(ctx, user)
}

// RenewEnrollmentTicket re-issues a ticket to a user who proves the passkey
// but never finished TOTP enrollment.
func (s *GRPCServer) RenewEnrollmentTicket(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(in, shared.FieldUsername)
	if err != nil {
		return nil, toStatus(err)
	}
	credential, err := bytesField(in, shared.FieldPasskeyCredential)
	if err != nil {
		return nil, toStatus(err)
	}

	user, err := s.auth.VerifyPasskey(ctx, username, credential)
	if err != nil {
		return nil, s.fail(ctx, "ticket renewal", err)
	}
	if user.HasTOTP() {
		return nil, toStatus(common.ErrTOTPAlreadyConfigured)
	}

	return s.enrollmentResponse(ctx, user)
}

func (s *GRPCServer) enrollmentResponse(ctx context.Context, user *models.User) (*structpb.Struct, error) {
	ticket, err := auth.GenerateEnrollmentTicket(user.ID, s.ticketSecret, s.ticketValidity)
	if err != nil {
		return nil, s.fail(ctx, "ticket issue", err)
	}

	return s.respond(ctx, map[string]any{
		shared.FieldUserID:           user.ID,
		shared.FieldUsername:         user.UserName,
		shared.FieldEnrollmentTicket: ticket,
	})
}

// SetupTotp enrolls the caller. With a session it replaces the current
// seed; otherwise an enrollment ticket is required and only first-time
// enrollment is allowed.
func (s *GRPCServer) SetupTotp(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	setup, err := s.setupTotp(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "totp setup", err)
	}

	return s.respond(ctx, map[string]any{
		shared.FieldTOTPSecret:      setup.Secret,
		shared.FieldProvisioningURI: setup.URI,
		shared.FieldQRCode:          setup.QRCodePNG,
	})
}

func (s *GRPCServer) setupTotp(ctx context.Context, in *structpb.Struct) (*services.TOTPSetup, error) {
	if user, ok := auth.UserFrom(ctx); ok {
		return s.auth.SetupTOTP(ctx, user)
	}

	ticket, err := stringField(in, shared.FieldEnrollmentTicket)
	if err != nil {
		return nil, err
	}
	userID, err := auth.GetUserIDFromTicket(ticket, s.ticketSecret)
	if err != nil {
		return nil, err
	}
	return s.auth.EnrollTOTP(ctx, userID)
}

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	username, err := stringField(in, shared.FieldUsername)
	if err != nil {
		return nil, toStatus(err)
	}
	credential, err := bytesField(in, shared.FieldPasskeyCredential)
	if err != nil {
		return nil, toStatus(err)
	}
	code, err := stringField(in, shared.FieldTOTPCode)
	if err != nil {
		return nil, toStatus(err)
	}

	res, err := s.auth.Login(ctx, username, credential, code)
	if err != nil {
		return nil, s.fail(ctx, "login", err)
	}

	return s.respond(ctx, map[string]any{
		shared.FieldToken:     res.Token,
		shared.FieldExpiresAt: res.ExpiresAt.UTC().Format(time.RFC3339),
		shared.FieldUserID:    res.User.ID,
		shared.FieldUsername:  res.User.UserName,
	})
}

func (s *GRPCServer) Session(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	user, ok := auth.UserFrom(ctx)
	if !ok {
		return nil, toStatus(common.ErrNotAuthenticated)
	}
	return s.respond(ctx, map[string]any{
		shared.FieldValid:           true,
		shared.FieldUserID:          user.ID,
		shared.FieldUsername:        user.UserName,
		shared.FieldSettingsVersion: user.SettingsVersion,
	})
}

func (s *GRPCServer) Logout(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	token, ok := auth.TokenFrom(ctx)
	if !ok {
		return nil, toStatus(common.ErrNotAuthenticated)
	}

	deleted, err := s.auth.InvalidateSession(ctx, token)
	if err != nil {
		return nil, s.fail(ctx, "logout", err)
	}
	return s.respond(ctx, map[string]any{shared.FieldLoggedOut: deleted})
}

func (s *GRPCServer) ExtractText(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	image, err := bytesField(in, shared.FieldImage)
	if err != nil {
		return nil, toStatus(err)
	}

	text, err := s.analyzer.ExtractText(ctx, image)
	if err != nil {
		return nil, s.fail(ctx, "ocr", err)
	}
	return s.respond(ctx, map[string]any{shared.FieldText: text})
}

func (s *GRPCServer) AnalyzeText(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	text, err := stringField(in, shared.FieldText)
	if err != nil {
		return nil, toStatus(err)
	}

	a, err := s.analyzer.AnalyzeText(ctx, text)
	if err != nil {
		return nil, s.fail(ctx, "analysis", err)
	}
	return s.respond(ctx, map[string]any{
		shared.FieldDetected:         a.Detected,
		shared.FieldPatternType:      a.PatternType,
		shared.FieldConfidenceScore:  a.ConfidenceScore,
		shared.FieldDescription:      a.Description,
		shared.FieldAffectedElements: stringsToValues(a.AffectedElements),
	})
}
