package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/client/models"
	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/shared"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
}

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	return metadata.NewOutgoingContext(ctx, md)
}

// NewGRPCClient connects lazily to endpointURL. Extra dial options are
// appended after the default insecure transport credentials.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)

	conn, err := grpc.NewClient(endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &GRPCClient{endpointURL: endpointURL, conn: conn}, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	out := new(structpb.Struct)
	if err := s.conn.Invoke(ctx, shared.FullMethod(method), in, out); err != nil {
		return nil, s.mapError(method, err)
	}
	return out, nil
}

func (s *GRPCClient) RegisterPasskey(ctx context.Context, username string, credential []byte) (*models.Registration, error) {
	resp, err := s.invoke(ctx, shared.MethodRegisterPasskey, map[string]any{
		shared.FieldUsername:          username,
		shared.FieldPasskeyCredential: base64.StdEncoding.EncodeToString(credential),
	})
	if err != nil {
		return nil, err
	}

	return &models.Registration{
		UserID:           stringOf(resp, shared.FieldUserID),
		Username:         stringOf(resp, shared.FieldUsername),
		EnrollmentTicket: stringOf(resp, shared.FieldEnrollmentTicket),
	}, nil
}

// RenewEnrollmentTicket asks for a fresh enrollment ticket, proving the
// passkey of a user who has not finished TOTP setup.
func (s *GRPCClient) RenewEnrollmentTicket(ctx context.Context, username string, credential []byte) (*models.Registration, error) {
	resp, err := s.invoke(ctx, shared.MethodRenewEnrollmentTicket, map[string]any{
		shared.FieldUsername:          username,
		shared.FieldPasskeyCredential: base64.StdEncoding.EncodeToString(credential),
	})
	if err != nil {
		return nil, err
	}

	return &models.Registration{
		UserID:           stringOf(resp, shared.FieldUserID),
		Username:         stringOf(resp, shared.FieldUsername),
		EnrollmentTicket: stringOf(resp, shared.FieldEnrollmentTicket),
	}, nil
}

func (s *GRPCClient) SetupTOTP(ctx context.Context, ticket string) (*models.TOTPSetup, error) {
	resp, err := s.invoke(ctx, shared.MethodSetupTotp, map[string]any{
		shared.FieldEnrollmentTicket: ticket,
	})
	if err != nil {
		return nil, err
	}
	return totpSetupFrom(resp)
}

// ReenrollTOTP replaces the seed of the session's owner. The server revokes
// every session of that user, token included.
func (s *GRPCClient) ReenrollTOTP(ctx context.Context, token string) (*models.TOTPSetup, error) {
	resp, err := s.invoke(withBearer(ctx, token), shared.MethodSetupTotp, nil)
	if err != nil {
		return nil, err
	}
	return totpSetupFrom(resp)
}

func totpSetupFrom(resp *structpb.Struct) (*models.TOTPSetup, error) {
	setup := &models.TOTPSetup{
		Secret: stringOf(resp, shared.FieldTOTPSecret),
		URI:    stringOf(resp, shared.FieldProvisioningURI),
	}
	if qr := stringOf(resp, shared.FieldQRCode); qr != "" {
		png, err := base64.StdEncoding.DecodeString(qr)
		if err != nil {
			return nil, fmt.Errorf("%w: qr code: %v", ErrBadResponse, err)
		}
		setup.QRCodePNG = png
	}
	return setup, nil
}

func (s *GRPCClient) Login(ctx context.Context, username string, credential []byte, code string) (*models.Login, error) {
	resp, err := s.invoke(ctx, shared.MethodLogin, map[string]any{
		shared.FieldUsername:          username,
		shared.FieldPasskeyCredential: base64.StdEncoding.EncodeToString(credential),
		shared.FieldTOTPCode:          code,
	})
	if err != nil {
		return nil, err
	}

	expires, err := time.Parse(time.RFC3339, stringOf(resp, shared.FieldExpiresAt))
	if err != nil {
		return nil, fmt.Errorf("%w: expires_at: %v", ErrBadResponse, err)
	}

	return &models.Login{
		UserID:    stringOf(resp, shared.FieldUserID),
		Username:  stringOf(resp, shared.FieldUsername),
		Token:     stringOf(resp, shared.FieldToken),
		ExpiresAt: expires,
	}, nil
}

func (s *GRPCClient) Session(ctx context.Context, token string) (*models.SessionInfo, error) {
	resp, err := s.invoke(withBearer(ctx, token), shared.MethodSession, nil)
	if err != nil {
		return nil, err
	}

	f := resp.GetFields()
	return &models.SessionInfo{
		Valid:           f[shared.FieldValid].GetBoolValue(),
		UserID:          stringOf(resp, shared.FieldUserID),
		Username:        stringOf(resp, shared.FieldUsername),
		SettingsVersion: int64(f[shared.FieldSettingsVersion].GetNumberValue()),
	}, nil
}

func (s *GRPCClient) Logout(ctx context.Context, token string) (bool, error) {
	resp, err := s.invoke(withBearer(ctx, token), shared.MethodLogout, nil)
	if err != nil {
		return false, err
	}
	return resp.GetFields()[shared.FieldLoggedOut].GetBoolValue(), nil
}

func (s *GRPCClient) ExtractText(ctx context.Context, token string, image []byte) (string, error) {
	resp, err := s.invoke(withBearer(ctx, token), shared.MethodExtractText, map[string]any{
		shared.FieldImage: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", err
	}
	return stringOf(resp, shared.FieldText), nil
}

func (s *GRPCClient) AnalyzeText(ctx context.Context, token, text string) (*models.Analysis, error) {
	resp, err := s.invoke(withBearer(ctx, token), shared.MethodAnalyzeText, map[string]any{
		shared.FieldText: text,
	})
	if err != nil {
		return nil, err
	}

	f := resp.GetFields()
	a := &models.Analysis{
		Detected:         f[shared.FieldDetected].GetBoolValue(),
		PatternType:      stringOf(resp, shared.FieldPatternType),
		ConfidenceScore:  f[shared.FieldConfidenceScore].GetNumberValue(),
		Description:      stringOf(resp, shared.FieldDescription),
		AffectedElements: []string{},
	}
	for _, v := range f[shared.FieldAffectedElements].GetListValue().GetValues() {
		a.AffectedElements = append(a.AffectedElements, v.GetStringValue())
	}
	return a, nil
}

func stringOf(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// mapError turns a status into a client sentinel. FailedPrecondition means
// "already enrolled" for the enrollment methods and an analysis upstream
// problem everywhere else.
func (s *GRPCClient) mapError(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.FailedPrecondition:
		if method == shared.MethodSetupTotp || method == shared.MethodRenewEnrollmentTicket {
			return fmt.Errorf("%w: %s", ErrAlreadyEnrolled, st.Message())
		}
		return fmt.Errorf("%w: %s", ErrUpstream, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
