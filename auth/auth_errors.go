package auth

import "errors"

var (
	// ErrValidation indicates malformed registration input; the caller can
	// correct the input and retry.
	ErrValidation = errors.New("invalid registration input")

	// ErrDuplicateAccount indicates the email is already registered. The
	// transport layer surfaces it with the same generic body as ErrValidation
	// so registration cannot be used to enumerate accounts.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidCredentials covers every credential sign-in failure: unknown
	// email, federation-only account, or wrong password. Deliberately one
	// error kind so callers cannot tell the sub-causes apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
