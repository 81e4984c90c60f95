// Package sessions issues and validates stateless session tokens. All session
// state lives in the signed token itself; there is no server-side session row
// and no revocation before expiry.
package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrTokenInvalid covers every way a presented token can fail: expired,
// tampered, malformed, or signed with the wrong key. Callers get a verdict,
// never a panic.
var ErrTokenInvalid = errors.New("invalid session token")

// Session is the decoded claim of "this account is currently authenticated".
type Session struct {
	Subject   string // Account ID
	IssuedAt  time.Time
	ExpiresAt time.Time
	TokenID   string
}

// IssuedToken carries a freshly signed token and its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// Issuer turns an authenticated account into a signed, time-bounded session
// token and validates presented tokens.
type Issuer struct {
	signer   Signer
	lifetime time.Duration
	nowFunc  func() time.Time
}

// IssuerOption defines a function type to modify the Issuer instance.
type IssuerOption func(*Issuer)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

// NewIssuer creates an Issuer. The lifetime must be finite and positive.
func NewIssuer(signer Signer, lifetime time.Duration, options ...IssuerOption) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("[NewIssuer] signer is required")
	}
	if lifetime <= 0 {
		return nil, errors.New("[NewIssuer] session lifetime must be positive")
	}

	issuer := &Issuer{
		signer:   signer,
		lifetime: lifetime,
		nowFunc:  time.Now,
	}
	for _, opt := range options {
		opt(issuer)
	}
	return issuer, nil
}

// Issue encodes and signs a session for the given account ID.
func (i *Issuer) Issue(accountID string) (*IssuedToken, error) {
	now := i.nowFunc()
	expiresAt := now.Add(i.lifetime)

	claims := jwt.MapClaims{
		"sub": accountID,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": uuid.New().String(),
	}

	signedToken, err := i.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Issuer.Issue] sign")
	}
	return &IssuedToken{Token: signedToken, ExpiresAt: expiresAt}, nil
}

// Validate verifies the token's signature and expiry and decodes its claims.
// Every failure mode resolves to ErrTokenInvalid.
func (i *Issuer) Validate(rawToken string) (*Session, error) {
	token, err := jwt.Parse(rawToken, i.signer.GetVerificationKey, jwt.WithTimeFunc(i.nowFunc))
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrTokenInvalid
	}
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)
	if exp == 0 || i.nowFunc().Unix() > int64(exp) {
		return nil, ErrTokenInvalid
	}
	jti, _ := claims["jti"].(string)

	return &Session{
		Subject:   sub,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
		TokenID:   jti,
	}, nil
}

// Lifetime returns the configured session lifetime.
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}
