package accounts

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound indicates no account matched the lookup.
	ErrNotFound = errors.New("account not found")
	// ErrUniquenessViolation indicates a write would duplicate an email or a
	// (provider, subject) pair. The store must raise it atomically: a
	// concurrent duplicate Create yields exactly one success.
	ErrUniquenessViolation = errors.New("account uniqueness violation")
)

// Repo is the contract the core requires from durable account storage.
type Repo interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByFederatedIdentity(ctx context.Context, provider, subjectID string) (*Account, error)

	// Create persists a new account from the draft, assigning its ID.
	// Returns ErrUniquenessViolation if the email or any federated identity
	// in the draft is already taken.
	Create(ctx context.Context, draft Draft) (*Account, error)

	// LinkFederatedIdentity attaches a federated identity to an existing
	// account. Linking a pair already attached to the same account is a
	// no-op; a pair attached to another account is ErrUniquenessViolation.
	LinkFederatedIdentity(ctx context.Context, accountID, provider, subjectID string) error
}
