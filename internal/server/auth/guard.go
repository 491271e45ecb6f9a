package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/shieldauth/internal/common"
	"github.com/dmitrijs2005/shieldauth/internal/logging"
	"github.com/dmitrijs2005/shieldauth/internal/server/models"
)

// ErrMissingBearer is returned when no usable bearer token was presented.
var ErrMissingBearer = fmt.Errorf("%w: missing bearer token", common.ErrNotAuthenticated)

// SessionValidator resolves an opaque session token to its owner.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.User, error)
}

// Result is the outcome of a guard check: either an authenticated identity
// or the reason it was refused.
type Result struct {
	user   *models.User
	token  string
	reason error
}

// Authenticated builds a successful Result.
func Authenticated(user *models.User, token string) Result {
	return Result{user: user, token: token}
}

// Rejected builds a failed Result.
func Rejected(reason error) Result {
	return Result{reason: reason}
}

func (r Result) OK() bool           { return r.reason == nil && r.user != nil }
func (r Result) User() *models.User { return r.user }
func (r Result) Token() string      { return r.token }
func (r Result) Reason() error      { return r.reason }

// ExtractBearer returns the token of an "Authorization: Bearer <token>" value.
// The scheme is matched case-insensitively.
func ExtractBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if len(header) < len(common.BearerPrefix) || !strings.EqualFold(header[:len(common.BearerPrefix)], common.BearerPrefix) {
		return "", ErrMissingBearer
	}
	token := strings.TrimSpace(header[len(common.BearerPrefix):])
	if token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}

// Guard checks bearer headers against live sessions.
type Guard struct {
	sessions SessionValidator
	logger   logging.Logger
}

func NewGuard(sessions SessionValidator, logger logging.Logger) *Guard {
	return &Guard{sessions: sessions, logger: logger.With("module", "guard")}
}

// Check validates header and resolves the session it names. Non-auth
// failures (storage errors) are returned as the rejection reason unchanged
// so the caller can tell them apart with errors.Is.
func (g *Guard) Check(ctx context.Context, header string) Result {
	token, err := ExtractBearer(header)
	if err != nil {
		return Rejected(err)
	}

	user, err := g.sessions.ValidateSession(ctx, token)
	if err != nil {
		if !errors.Is(err, common.ErrNotAuthenticated) {
			g.logger.Error(ctx, "session lookup failed", "error", err)
		}
		return Rejected(err)
	}

	return Authenticated(user, token)
}

type ctxKey struct{}

type identity struct {
	user  *models.User
	token string
}

// WithUser stores the authenticated user and the token they presented.
func WithUser(ctx context.Context, user *models.User, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, identity{user: user, token: token})
}

// UserFrom returns the user stored by WithUser.
func UserFrom(ctx context.Context) (*models.User, bool) {
	id, ok := ctx.Value(ctxKey{}).(identity)
	if !ok || id.user == nil {
		return nil, false
	}
	return id.user, true
}

// TokenFrom returns the session token stored by WithUser.
func TokenFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(identity)
	if !ok || id.token == "" {
		return "", false
	}
	return id.token, true
}
