package auth

import "github.com/jrsteele09/go-user-auth/federation"

// Intent is the closed set of authentication requests the service accepts.
// Authorize dispatches over it exhaustively; there is no string-keyed
// provider lookup.
type Intent interface {
	isIntent()
}

// CredentialsIntent asks to sign in with a locally stored email and password.
type CredentialsIntent struct {
	Email    string
	Password string
}

// RegistrationIntent asks to create an account and sign it in.
type RegistrationIntent struct {
	Name     string
	Email    string
	Password string
}

// FederatedIntent asks to sign in with a verified external-provider assertion.
type FederatedIntent struct {
	Assertion federation.Assertion
}

func (CredentialsIntent) isIntent()  {}
func (RegistrationIntent) isIntent() {}
func (FederatedIntent) isIntent()    {}
