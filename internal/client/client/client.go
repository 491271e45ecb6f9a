package client

import (
	"context"

	"github.com/dmitrijs2005/shieldauth/internal/client/models"
)

// Client is the remote AuthService as seen by the CLI. Methods taking a
// token send it as "authorization: Bearer <token>".
type Client interface {
	Close() error
	RegisterPasskey(ctx context.Context, username string, credential []byte) (*models.Registration, error)
	RenewEnrollmentTicket(ctx context.Context, username string, credential []byte) (*models.Registration, error)
	SetupTOTP(ctx context.Context, ticket string) (*models.TOTPSetup, error)
	ReenrollTOTP(ctx context.Context, token string) (*models.TOTPSetup, error)
	Login(ctx context.Context, username string, credential []byte, code string) (*models.Login, error)
	Session(ctx context.Context, token string) (*models.SessionInfo, error)
	Logout(ctx context.Context, token string) (bool, error)
	ExtractText(ctx context.Context, token string, image []byte) (string, error)
	AnalyzeText(ctx context.Context, token, text string) (*models.Analysis, error)
}
