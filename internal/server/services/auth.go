// Package services contains server-side business logic. This file implements
// AuthService: passkey registration, TOTP enrollment and verification, and
// the opaque bearer sessions issued after a successful two-factor login.
package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/cryptox"
	"github.com/dmitrijs2005/shieldauth/internal/dbx"
	"github.com/dmitrijs2005/shieldauth/internal/logging"
	"github.com/dmitrijs2005/shieldauth/internal/server/models"
	"github.com/dmitrijs2005/shieldauth/internal/server/repositories/repomanager"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// SessionLifetime is fixed at mint time; sessions do not slide.
	SessionLifetime = 24 * time.Hour

	// TOTPSkew accepts codes from one step before and after the current one.
	TOTPSkew = 1

	TOTPPeriod    = 30
	TOTPDigits    = 6
	QRCodeSize    = 200
	DefaultIssuer = "ShieldUI"
)

// TOTPSetup is returned once, at enrollment. Secret is shown to the user in
// plaintext; only its ciphertext is stored.
type TOTPSetup struct {
	Secret    string
	URI       string
	QRCodePNG string // base64-encoded PNG
}

// LoginResult is the outcome of a full two-factor login.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// AuthService is safe for concurrent use; races between requests are
// resolved by the store's unique indexes and transactions.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      *cryptox.SecretCipher
	issuer      string
	logger      logging.Logger
	now         func() time.Time

	// dummyCredential is decrypted on unknown usernames so both failure
	// paths cost the same.
	dummyCredential []byte
}

// Option customises an AuthService.
type Option func(*AuthService)

// WithClock replaces the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// WithIssuer sets the TOTP issuer shown by authenticator apps.
func WithIssuer(issuer string) Option {
	return func(s *AuthService) {
		if issuer != "" {
			s.issuer = issuer
		}
	}
}

// NewAuthService wires the service to its store and the process-wide cipher.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cipher *cryptox.SecretCipher, logger logging.Logger, opts ...Option) *AuthService {
	s := &AuthService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		issuer:      DefaultIssuer,
		logger:      logger.With("module", "auth"),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if dummy, err := cipher.Encrypt(common.GenerateRandByteArray(32)); err == nil {
		s.dummyCredential = dummy
	}
	return s
}

// RegisterPasskey creates a new identity holding the encrypted credential.
// The TOTP secret stays empty until SetupTOTP.
func (s *AuthService) RegisterPasskey(ctx context.Context, username string, credential []byte) (*models.User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(credential) == 0 {
		return nil, common.ErrEmptyCredential
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByLogin(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrUsernameTaken
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(credential)
	if err != nil {
		return nil, fmt.Errorf("error encrypting credential: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		UserName:          username,
		PasskeyCredential: encrypted,
		CreatedAt:         s.now(),
	})
	if err != nil {
		if errors.Is(err, common.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "passkey registered", "user_id", user.ID)
	return user, nil
}

// GetUser loads a user by ID; a missing user yields common.ErrUserNotFound.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// SetupTOTP generates a fresh seed for user, stores it encrypted (replacing
// any previous one) and returns the enrollment material. The user's settings
// version is bumped and every session issued under the old seed is revoked.
func (s *AuthService) SetupTOTP(ctx context.Context, user *models.User) (*TOTPSetup, error) {
	return s.setupTOTP(ctx, user, false)
}

// EnrollTOTP is the first-time variant of SetupTOTP. Once the user has a
// secret it fails with common.ErrTOTPAlreadyConfigured.
func (s *AuthService) EnrollTOTP(ctx context.Context, userID string) (*TOTPSetup, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasTOTP() {
		return nil, common.ErrTOTPAlreadyConfigured
	}
	return s.setupTOTP(ctx, user, true)
}

func (s *AuthService) setupTOTP(ctx context.Context, user *models.User, first bool) (*TOTPSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.UserName,
		Period:      TOTPPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("error generating totp key: %w", err)
	}

	encrypted, err := s.cipher.Encrypt([]byte(key.Secret()))
	if err != nil {
		return nil, fmt.Errorf("error encrypting totp secret: %w", err)
	}

	qr, err := qrCodePNG(key)
	if err != nil {
		return nil, fmt.Errorf("error rendering qr code: %w", err)
	}

	var version, revoked int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		store := users.UpdateTOTPSecret
		if first {
			store = users.InitTOTPSecret
		}
		err := store(ctx, user.ID, encrypted)
		if err != nil {
			if first && errors.Is(err, common.ErrorNotFound) {
				return common.ErrTOTPAlreadyConfigured
			}
			return err
		}
		if version, err = users.IncrementSettingsVersion(ctx, user.ID); err != nil {
			return err
		}
		revoked, err = s.repomanager.Sessions(tx).DeleteByUser(ctx, user.ID)
		return err
	})
	switch {
	case errors.Is(err, common.ErrTOTPAlreadyConfigured):
		return nil, err
	case errors.Is(err, common.ErrorNotFound):
		return nil, common.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("error storing totp secret: %w", err)
	}
	user.TOTPSecret = encrypted
	user.SettingsVersion = version

	s.logger.Info(ctx, "totp configured", "user_id", user.ID, "settings_version", version, "revoked_sessions", revoked)
	return &TOTPSetup{Secret: key.Secret(), URI: key.URL(), QRCodePNG: qr}, nil
}

func qrCodePNG(key *otp.Key) (string, error) {
	img, err := key.Image(QRCodeSize, QRCodeSize)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// VerifyPasskey checks credential against the stored ciphertext. Unknown
// users and wrong credentials are distinct errors that both wrap
// common.ErrAuthenticationFailed.
func (s *AuthService) VerifyPasskey(ctx context.Context, username string, credential []byte) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.cipher.Decrypt(s.dummyCredential)
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	stored, err := s.cipher.Decrypt(user.PasskeyCredential)
	if err != nil {
		s.logger.Warn(ctx, "stored credential could not be decrypted", "user_id", user.ID)
		return nil, common.ErrInvalidCredential
	}
	defer common.WipeByteArray(stored)

	if subtle.ConstantTimeCompare(stored, credential) != 1 {
		return nil, common.ErrInvalidCredential
	}
	return user, nil
}

// VerifyTOTP reports whether code is valid for user's secret in the current
// 30 s step or one step either side. It never returns an error: a missing or
// undecryptable secret and a malformed code are all just "false".
func (s *AuthService) VerifyTOTP(ctx context.Context, user *models.User, code string) bool {
	if user == nil || !user.HasTOTP() || !isTOTPCode(code) {
		return false
	}

	secret, err := s.cipher.Decrypt(user.TOTPSecret)
	if err != nil {
		s.logger.Warn(ctx, "stored totp secret could not be decrypted", "user_id", user.ID)
		return false
	}
	defer common.WipeByteArray(secret)

	ok, err := totp.ValidateCustom(code, string(secret), s.now(), totp.ValidateOpts{
		Period:    TOTPPeriod,
		Skew:      TOTPSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// CreateSession mints an opaque token valid for SessionLifetime and records
// the login time in the same transaction. Callers must have verified both
// factors first; Login does this. If the user's TOTP enrollment changed
// since user was loaded, no session is stored and
// common.ErrEnrollmentChanged is returned.
func (s *AuthService) CreateSession(ctx context.Context, user *models.User) (string, time.Time, error) {
	token, err := common.MakeRandURLToken(common.SessionTokenBytes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error generating token: %w", err)
	}

	now := s.now()
	session := &models.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(SessionLifetime),
		CreatedAt: now,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// User row first: it serialises with a concurrent re-enrollment.
		err := s.repomanager.Users(tx).TouchLastLogin(ctx, user.ID, user.SettingsVersion, now)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrEnrollmentChanged
			}
			return fmt.Errorf("error updating last login: %w", err)
		}
		if err := s.repomanager.Sessions(tx).Create(ctx, session); err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrEnrollmentChanged) {
			s.logger.Info(ctx, "login rejected", "user_id", user.ID, "reason", err.Error())
		}
		return "", time.Time{}, err
	}

	user.LastLoginAt = &now
	s.logger.Info(ctx, "session created", "user_id", user.ID, "token", fingerprint(token))
	return token, session.ExpiresAt, nil
}

// ValidateSession resolves token to its owner. Unknown tokens yield
// common.ErrInvalidSession; expired ones are deleted and yield
// common.ErrSessionExpired. Both wrap common.ErrNotAuthenticated.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrInvalidSession
	}

	sessions := s.repomanager.Sessions(s.db)
	session, err := sessions.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidSession
		}
		return nil, fmt.Errorf("error searching session: %w", err)
	}

	if session.Expired(s.now()) {
		if _, err := sessions.Delete(ctx, token); err != nil {
			s.logger.Warn(ctx, "expired session cleanup failed", "token", fingerprint(token), "error", err)
		}
		return nil, common.ErrSessionExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidSession
		}
		return nil, fmt.Errorf("error loading session owner: %w", err)
	}
	return user, nil
}

// InvalidateSession deletes token and reports whether it existed.
// Repeating the call is harmless.
func (s *AuthService) InvalidateSession(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	deleted, err := s.repomanager.Sessions(s.db).Delete(ctx, token)
	if err != nil {
		return false, fmt.Errorf("error deleting session: %w", err)
	}
	if deleted {
		s.logger.Info(ctx, "session invalidated", "token", fingerprint(token))
	}
	return deleted, nil
}

// Login runs both factors in order and issues a session only when both pass.
func (s *AuthService) Login(ctx context.Context, username string, credential []byte, code string) (*LoginResult, error) {
	user, err := s.VerifyPasskey(ctx, username, credential)
	if err != nil {
		if errors.Is(err, common.ErrAuthenticationFailed) {
			s.logger.Info(ctx, "login rejected", "username", username, "reason", err.Error())
		}
		return nil, err
	}

	if !s.VerifyTOTP(ctx, user, code) {
		s.logger.Info(ctx, "login rejected", "user_id", user.ID, "reason", common.ErrInvalidTOTP.Error())
		return nil, common.ErrInvalidTOTP
	}

	token, expiresAt, err := s.CreateSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// fingerprint identifies a token in logs without revealing it.
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:4])
}
