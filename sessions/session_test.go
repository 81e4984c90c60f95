package sessions_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-user-auth/sessions"
	"github.com/stretchr/testify/require"
)

const secretStr = "test-session-secret"

func newIssuer(t *testing.T, lifetime time.Duration, options ...sessions.IssuerOption) *sessions.Issuer {
	t.Helper()
	issuer, err := sessions.NewIssuer(sessions.NewHMACSigner(secretStr), lifetime, options...)
	require.NoError(t, err)
	return issuer
}

func TestNewIssuerValidation(t *testing.T) {
	_, err := sessions.NewIssuer(nil, time.Hour)
	require.Error(t, err)

	_, err = sessions.NewIssuer(sessions.NewHMACSigner(secretStr), 0)
	require.Error(t, err)

	_, err = sessions.NewIssuer(sessions.NewHMACSigner(secretStr), -time.Hour)
	require.Error(t, err)
}

func TestIssueAndValidate(t *testing.T) {
	issuer := newIssuer(t, time.Hour)

	issued, err := issuer.Issue("account-1")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)

	session, err := issuer.Validate(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "account-1", session.Subject)
	require.NotEmpty(t, session.TokenID)
	require.WithinDuration(t, issued.ExpiresAt, session.ExpiresAt, time.Second)
}

func TestValidateExpiredToken(t *testing.T) {
	now := time.Now()
	current := now
	issuer := newIssuer(t, time.Hour, sessions.WithNowFunc(func() time.Time { return current }))

	issued, err := issuer.Issue("account-1")
	require.NoError(t, err)

	// Valid right up to the lifetime boundary
	current = now.Add(time.Hour - time.Second)
	_, err = issuer.Validate(issued.Token)
	require.NoError(t, err)

	// Invalid strictly after expiry
	current = now.Add(time.Hour + time.Second)
	_, err = issuer.Validate(issued.Token)
	require.ErrorIs(t, err, sessions.ErrTokenInvalid)
}

func TestValidateTamperedToken(t *testing.T) {
	issuer := newIssuer(t, time.Hour)

	issued, err := issuer.Issue("account-1")
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	require.Len(t, parts, 3)

	// Flip the payload
	tamperedPayload := parts[0] + ".eyJzdWIiOiJzb21lb25lLWVsc2UifQ." + parts[2]
	_, err = issuer.Validate(tamperedPayload)
	require.ErrorIs(t, err, sessions.ErrTokenInvalid)

	// Flip the signature
	tamperedSig := parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-2] + "xx"
	if tamperedSig == issued.Token {
		tamperedSig = parts[0] + "." + parts[1] + "." + parts[2][:len(parts[2])-2] + "yy"
	}
	_, err = issuer.Validate(tamperedSig)
	require.ErrorIs(t, err, sessions.ErrTokenInvalid)
}

func TestValidateWrongSecret(t *testing.T) {
	issuer := newIssuer(t, time.Hour)
	other, err := sessions.NewIssuer(sessions.NewHMACSigner("another-secret"), time.Hour)
	require.NoError(t, err)

	issued, err := issuer.Issue("account-1")
	require.NoError(t, err)

	_, err = other.Validate(issued.Token)
	require.ErrorIs(t, err, sessions.ErrTokenInvalid)
}

func TestValidateMalformedToken(t *testing.T) {
	issuer := newIssuer(t, time.Hour)

	for _, raw := range []string{"", "garbage", "a.b", "a.b.c", strings.Repeat(".", 10)} {
		_, err := issuer.Validate(raw)
		require.ErrorIs(t, err, sessions.ErrTokenInvalid, "token %q", raw)
	}
}
