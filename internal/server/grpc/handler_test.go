package grpc

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/dmitrijs2005/shieldauth/internal/netx"
	"github.com/dmitrijs2005/shieldauth/internal/server/auth"
	"github.com/dmitrijs2005/shieldauth/internal/server/gemini"
	"github.com/dmitrijs2005/shieldauth/internal/shared"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var passkey = base64.StdEncoding.EncodeToString([]byte("correct horse battery staple"))

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// enroll registers alice and completes TOTP setup, returning the secret.
func enroll(t *testing.T, ts *testServer) string {
	t.Helper()
	ctx := context.Background()

	reg, err := ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", str(reg, "username"))
	assert.NotEmpty(t, str(reg, "user_id"))

	setup, err := ts.call(ctx, shared.MethodSetupTotp, map[string]any{
		"enrollment_ticket": str(reg, "enrollment_ticket"),
	})
	require.NoError(t, err)
	assert.Contains(t, str(setup, "provisioning_uri"), "otpauth://totp/")
	assert.NotEmpty(t, str(setup, "qr_code"))

	return str(setup, "totp_secret")
}

func TestAuthFlow_EndToEnd(t *testing.T) {
	ts := newTestServer(t, nil)
	secret := enroll(t, ts)
	ctx := context.Background()

	login, err := ts.call(ctx, shared.MethodLogin, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
		"totp_code":          currentCode(t, secret),
	})
	require.NoError(t, err)
	token := str(login, "token")
	require.Len(t, token, 43)

	expires, err := time.Parse(time.RFC3339, str(login, "expires_at"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)

	sess, err := ts.call(bearer(token), shared.MethodSession, nil)
	require.NoError(t, err)
	assert.True(t, sess.GetFields()["valid"].GetBoolValue())
	assert.Equal(t, "alice", str(sess, "username"))

	out, err := ts.call(bearer(token), shared.MethodLogout, nil)
	require.NoError(t, err)
	assert.True(t, out.GetFields()["logged_out"].GetBoolValue())

	_, err = ts.call(bearer(token), shared.MethodSession, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t, nil)
	secret := enroll(t, ts)
	ctx := context.Background()

	wrongPasskey := base64.StdEncoding.EncodeToString([]byte("wrong"))
	cases := []map[string]any{
		{"username": "nobody", "passkey_credential": passkey, "totp_code": "123456"},
		{"username": "alice", "passkey_credential": wrongPasskey, "totp_code": currentCode(t, secret)},
		{"username": "alice", "passkey_credential": passkey, "totp_code": "abcdef"},
	}

	var messages []string
	for _, c := range cases {
		_, err := ts.call(ctx, shared.MethodLogin, c)
		st := status.Convert(err)
		assert.Equal(t, codes.Unauthenticated, st.Code())
		messages = append(messages, st.Message())
	}
	assert.Equal(t, messages[0], messages[1])
	assert.Equal(t, messages[1], messages[2])
}

func TestRegisterPasskey_Errors(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	_, err := ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{"username": "alice"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{"username": "a", "passkey_credential": passkey})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{"username": "alice", "passkey_credential": "%%%"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{"username": "alice", "passkey_credential": passkey})
	require.NoError(t, err)

	_, err = ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{"username": "alice", "passkey_credential": passkey})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestSetupTotp_RejectsBadTicket(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := ts.call(context.Background(), shared.MethodSetupTotp, map[string]any{"enrollment_ticket": "not-a-jwt"})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestSetupTotp_LapsedTicketCanBeRenewed(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	reg, err := ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
	})
	require.NoError(t, err)

	lapsed, err := auth.GenerateEnrollmentTicket(str(reg, "user_id"), []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	_, err = ts.call(ctx, shared.MethodSetupTotp, map[string]any{"enrollment_ticket": lapsed})
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	wrong := base64.StdEncoding.EncodeToString([]byte("wrong"))
	_, err = ts.call(ctx, shared.MethodRenewEnrollmentTicket, map[string]any{
		"username":           "alice",
		"passkey_credential": wrong,
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	renewed, err := ts.call(ctx, shared.MethodRenewEnrollmentTicket, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
	})
	require.NoError(t, err)
	assert.Equal(t, str(reg, "user_id"), str(renewed, "user_id"))

	setup, err := ts.call(ctx, shared.MethodSetupTotp, map[string]any{
		"enrollment_ticket": str(renewed, "enrollment_ticket"),
	})
	require.NoError(t, err)

	_, err = ts.call(ctx, shared.MethodLogin, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
		"totp_code":          currentCode(t, str(setup, "totp_secret")),
	})
	require.NoError(t, err)
}

func TestSetupTotp_TicketIsFirstTimeOnly(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()

	reg, err := ts.call(ctx, shared.MethodRegisterPasskey, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
	})
	require.NoError(t, err)
	ticket := map[string]any{"enrollment_ticket": str(reg, "enrollment_ticket")}

	setup, err := ts.call(ctx, shared.MethodSetupTotp, ticket)
	require.NoError(t, err)

	_, err = ts.call(ctx, shared.MethodSetupTotp, ticket)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = ts.call(ctx, shared.MethodRenewEnrollmentTicket, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = ts.call(ctx, shared.MethodLogin, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
		"totp_code":          currentCode(t, str(setup, "totp_secret")),
	})
	require.NoError(t, err, "the first seed is still the active one")
}

func TestSetupTotp_SessionReenrolls(t *testing.T) {
	ts := newTestServer(t, nil)
	session := loggedIn(t, ts)

	setup, err := ts.call(session, shared.MethodSetupTotp, nil)
	require.NoError(t, err)
	require.NotEmpty(t, str(setup, "totp_secret"))

	_, err = ts.call(session, shared.MethodSession, nil)
	assert.Equal(t, codes.Unauthenticated, status.Code(err), "re-enrollment revokes existing sessions")

	login, err := ts.call(context.Background(), shared.MethodLogin, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
		"totp_code":          currentCode(t, str(setup, "totp_secret")),
	})
	require.NoError(t, err)

	sess, err := ts.call(bearer(str(login, "token")), shared.MethodSession, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(2), sess.GetFields()["settings_version"].GetNumberValue())
}

func TestSetupTotp_InvalidBearerIsRejected(t *testing.T) {
	ts := newTestServer(t, nil)

	reg, err := ts.call(context.Background(), shared.MethodRegisterPasskey, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
	})
	require.NoError(t, err)

	_, err = ts.call(bearer("stale-token"), shared.MethodSetupTotp, map[string]any{
		"enrollment_ticket": str(reg, "enrollment_ticket"),
	})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func loggedIn(t *testing.T, ts *testServer) context.Context {
	t.Helper()
	secret := enroll(t, ts)
	login, err := ts.call(context.Background(), shared.MethodLogin, map[string]any{
		"username":           "alice",
		"passkey_credential": passkey,
		"totp_code":          currentCode(t, secret),
	})
	require.NoError(t, err)
	return bearer(str(login, "token"))
}

func TestExtractText_RequiresSession(t *testing.T) {
	ts := newTestServer(t, &fakeAnalyzer{text: "Buy now"})

	_, err := ts.call(context.Background(), shared.MethodExtractText, map[string]any{"image": "aGk="})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	out, err := ts.call(loggedIn(t, ts), shared.MethodExtractText, map[string]any{"image": "aGk="})
	require.NoError(t, err)
	assert.Equal(t, "Buy now", str(out, "text"))
}

func TestAnalyzeText_ReturnsVerdict(t *testing.T) {
	an := &fakeAnalyzer{analysis: &gemini.Analysis{
		Detected:         true,
		PatternType:      "urgency",
		ConfidenceScore:  0.9,
		Description:      "countdown timer",
		AffectedElements: []string{"Only 2 left!"},
	}}
	ts := newTestServer(t, an)

	out, err := ts.call(loggedIn(t, ts), shared.MethodAnalyzeText, map[string]any{"text": "Only 2 left!"})
	require.NoError(t, err)

	f := out.GetFields()
	assert.True(t, f["detected"].GetBoolValue())
	assert.Equal(t, "urgency", f["pattern_type"].GetStringValue())
	assert.InDelta(t, 0.9, f["confidence_score"].GetNumberValue(), 1e-9)
	require.Len(t, f["affected_elements"].GetListValue().GetValues(), 1)
}

func TestAnalyzeText_UpstreamErrors(t *testing.T) {
	an := &fakeAnalyzer{}
	ts := newTestServer(t, an)
	ctx := loggedIn(t, ts)

	an.err = &netx.RetryExhaustedError{Attempts: 5}
	_, err := ts.call(ctx, shared.MethodAnalyzeText, map[string]any{"text": "x"})
	assert.Equal(t, codes.Unavailable, status.Code(err))

	an.err = gemini.ErrNotConfigured
	_, err = ts.call(ctx, shared.MethodAnalyzeText, map[string]any{"text": "x"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}
