// Package services contains application services for the shieldauth CLI.
// SessionService drives the server's two-factor flow and keeps the
// resulting bearer session in the local state store between commands.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/client/client"
	"github.com/dmitrijs2005/shieldauth/internal/client/models"
	"github.com/dmitrijs2005/shieldauth/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/shieldauth/internal/dbx"
)

var (
	ErrNotLoggedIn          = errors.New("not logged in")
	ErrNoEnrollmentTicket   = errors.New("no pending enrollment ticket; run renew-ticket or pass --ticket")
	ErrEmptyAnalysisRequest = errors.New("nothing to analyze")
)

// SessionService is the CLI's view of authentication.
type SessionService interface {
	Register(ctx context.Context, username string, credential []byte) (*models.Registration, error)
	// RenewTicket fetches and saves a new enrollment ticket for an account
	// whose TOTP setup was never finished.
	RenewTicket(ctx context.Context, username string, credential []byte) (*models.Registration, error)
	// SetupTOTP enrolls TOTP using ticket, or the saved ticket when empty.
	SetupTOTP(ctx context.Context, ticket string) (*models.TOTPSetup, error)
	// Reenroll replaces the TOTP seed using the stored session. The server
	// revokes the session, so it is dropped locally as well.
	Reenroll(ctx context.Context) (*models.TOTPSetup, error)
	Login(ctx context.Context, username string, credential []byte, code string) (*models.Login, error)
	WhoAmI(ctx context.Context) (*models.SessionInfo, error)
	Logout(ctx context.Context) error
	// Analyze runs OCR when image is non-empty, then dark-pattern analysis on
	// the extracted text (or on text when no image is given).
	Analyze(ctx context.Context, image []byte, text string) (string, *models.Analysis, error)
	Close() error
}

type sessionService struct {
	client client.Client
	db     *sql.DB
	now    func() time.Time
}

func NewSessionService(c client.Client, db *sql.DB) SessionService {
	return &sessionService{client: c, db: db, now: time.Now}
}

func (s *sessionService) repo() metadata.Repository {
	return metadata.NewSQLiteRepository(s.db)
}

func (s *sessionService) Register(ctx context.Context, username string, credential []byte) (*models.Registration, error) {
	reg, err := s.client.RegisterPasskey(ctx, username, credential)
	if err != nil {
		return nil, err
	}
	return s.saveTicket(ctx, reg)
}

func (s *sessionService) RenewTicket(ctx context.Context, username string, credential []byte) (*models.Registration, error) {
	reg, err := s.client.RenewEnrollmentTicket(ctx, username, credential)
	if err != nil {
		return nil, err
	}
	return s.saveTicket(ctx, reg)
}

func (s *sessionService) saveTicket(ctx context.Context, reg *models.Registration) (*models.Registration, error) {
	if reg.EnrollmentTicket != "" {
		if err := s.repo().Set(ctx, metadata.KeyEnrollmentTicket, []byte(reg.EnrollmentTicket)); err != nil {
			return nil, fmt.Errorf("saving enrollment ticket: %w", err)
		}
	}
	return reg, nil
}

func (s *sessionService) SetupTOTP(ctx context.Context, ticket string) (*models.TOTPSetup, error) {
	repo := s.repo()

	if ticket == "" {
		saved, err := repo.Get(ctx, metadata.KeyEnrollmentTicket)
		if err != nil {
			return nil, err
		}
		if saved == nil {
			return nil, ErrNoEnrollmentTicket
		}
		ticket = string(saved)
	}

	setup, err := s.client.SetupTOTP(ctx, ticket)
	if err != nil {
		if errors.Is(err, client.ErrAlreadyEnrolled) {
			if derr := repo.Delete(ctx, metadata.KeyEnrollmentTicket); derr != nil {
				return nil, errors.Join(err, derr)
			}
		}
		return nil, err
	}

	if err := repo.Delete(ctx, metadata.KeyEnrollmentTicket); err != nil {
		return nil, err
	}
	return setup, nil
}

func (s *sessionService) Reenroll(ctx context.Context) (*models.TOTPSetup, error) {
	sess, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}

	setup, err := s.client.ReenrollTOTP(ctx, sess.Token)
	if err != nil {
		return nil, s.forgetOnUnauthorized(ctx, err)
	}

	if err := s.repo().DeleteSession(ctx); err != nil {
		return nil, err
	}
	return setup, nil
}

func (s *sessionService) Login(ctx context.Context, username string, credential []byte, code string) (*models.Login, error) {
	res, err := s.client.Login(ctx, username, credential, code)
	if err != nil {
		return nil, err
	}

	stored := &models.StoredSession{
		UserID:    res.UserID,
		Username:  res.Username,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return metadata.NewSQLiteRepository(tx).SaveSession(ctx, stored)
	})
	if err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return res, nil
}

// activeSession returns the stored session, dropping it when it has
// already expired locally.
func (s *sessionService) activeSession(ctx context.Context) (*models.StoredSession, error) {
	repo := s.repo()

	sess, err := repo.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNotLoggedIn
	}
	if sess.Expired(s.now()) {
		if err := repo.DeleteSession(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNotLoggedIn
	}
	return sess, nil
}

// forgetOnUnauthorized drops the local session once the server has refused it.
func (s *sessionService) forgetOnUnauthorized(ctx context.Context, err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		if derr := s.repo().DeleteSession(ctx); derr != nil {
			return errors.Join(err, derr)
		}
		return fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
	}
	return err
}

func (s *sessionService) WhoAmI(ctx context.Context) (*models.SessionInfo, error) {
	sess, err := s.activeSession(ctx)
	if err != nil {
		return nil, err
	}

	info, err := s.client.Session(ctx, sess.Token)
	if err != nil {
		return nil, s.forgetOnUnauthorized(ctx, err)
	}
	return info, nil
}

func (s *sessionService) Logout(ctx context.Context) error {
	sess, err := s.activeSession(ctx)
	if err != nil {
		return err
	}

	if _, err := s.client.Logout(ctx, sess.Token); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	return s.repo().DeleteSession(ctx)
}

func (s *sessionService) Analyze(ctx context.Context, image []byte, text string) (string, *models.Analysis, error) {
	if len(image) == 0 && text == "" {
		return "", nil, ErrEmptyAnalysisRequest
	}

	sess, err := s.activeSession(ctx)
	if err != nil {
		return "", nil, err
	}

	if len(image) > 0 {
		text, err = s.client.ExtractText(ctx, sess.Token, image)
		if err != nil {
			return "", nil, s.forgetOnUnauthorized(ctx, err)
		}
	}

	a, err := s.client.AnalyzeText(ctx, sess.Token, text)
	if err != nil {
		return text, nil, s.forgetOnUnauthorized(ctx, err)
	}
	return text, a, nil
}

func (s *sessionService) Close() error {
	return s.client.Close()
}
