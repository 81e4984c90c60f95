package auth

import (
	"context"
	"time"

	"github.com/jrsteele09/go-user-auth/accounts"
	"github.com/jrsteele09/go-user-auth/federation"
	"github.com/jrsteele09/go-user-auth/sessions"
	"github.com/pkg/errors"
)

// Outcome is the uniform result of a successful authentication attempt: the
// account and a freshly issued session token.
type Outcome struct {
	Account   *accounts.Account
	Token     string
	ExpiresAt time.Time
}

// Service is the single entry point for registration, credential sign-in, and
// federated sign-in. Each attempt is request-scoped and safe to run
// concurrently; the only shared state is injected, read-only dependencies.
type Service struct {
	repo              accounts.Repo
	hasher            *accounts.Hasher
	issuer            *sessions.Issuer
	minPasswordLength int
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithMinPasswordLength overrides the registration password minimum.
func WithMinPasswordLength(length int) ServiceOption {
	return func(s *Service) {
		s.minPasswordLength = length
	}
}

// NewService initializes the auth service with its required dependencies.
func NewService(repo accounts.Repo, hasher *accounts.Hasher, issuer *sessions.Issuer, options ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] accounts repo is required")
	}
	if hasher == nil {
		return nil, errors.New("[NewService] hasher is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewService] session issuer is required")
	}

	service := &Service{
		repo:              repo,
		hasher:            hasher,
		issuer:            issuer,
		minPasswordLength: DefaultMinPasswordLength,
	}
	for _, opt := range options {
		opt(service)
	}
	return service, nil
}

// Authorize dispatches an authentication intent and, on success, issues a
// session. Registration chains a sign-in: the caller gets a token, not just
// an account.
func (s *Service) Authorize(ctx context.Context, intent Intent) (*Outcome, error) {
	var account *accounts.Account
	var err error

	switch in := intent.(type) {
	case CredentialsIntent:
		account, err = s.SignIn(ctx, in.Email, in.Password)
	case RegistrationIntent:
		account, err = s.Register(ctx, in.Name, in.Email, in.Password)
	case FederatedIntent:
		account, err = s.FederatedSignIn(ctx, in.Assertion)
	default:
		return nil, errors.Errorf("[Service.Authorize] unsupported intent type %T", intent)
	}
	if err != nil {
		return nil, err
	}

	issued, err := s.issuer.Issue(account.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Authorize] issue session")
	}

	return &Outcome{
		Account:   account,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}, nil
}

// Register validates the input, hashes the password, and creates the account.
// It does not issue a session; Authorize chains that for transport callers.
func (s *Service) Register(ctx context.Context, name, email, password string) (*accounts.Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password, s.minPasswordLength); err != nil {
		return nil, err
	}

	email = accounts.NormalizeEmail(email)

	// Cheap pre-check; the repository's uniqueness constraint is what
	// actually closes the race with a concurrent registration.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, accounts.ErrNotFound) {
		return nil, errors.Wrap(err, "[Service.Register] FindByEmail")
	}

	credentialHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register] hash password")
	}

	account, err := s.repo.Create(ctx, accounts.Draft{
		Name:           name,
		Email:          email,
		CredentialHash: credentialHash,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrUniquenessViolation) {
			return nil, ErrDuplicateAccount
		}
		return nil, errors.Wrap(err, "[Service.Register] Create")
	}
	return account, nil
}

// SignIn verifies an email/password pair. Unknown email, a federation-only
// account, and a wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*accounts.Account, error) {
	account, err := s.repo.FindByEmail(ctx, accounts.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[Service.SignIn] FindByEmail")
	}

	if !account.HasCredentials() {
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, account.CredentialHash) {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// FederatedSignIn exchanges a verified assertion for a local account,
// provisioning or linking on first sight:
//
//  1. An account already linked to (provider, subject) is returned as-is.
//  2. Otherwise an account with the assertion's email gains the link, so a
//     user who registered with a password becomes reachable by both paths.
//  3. Otherwise a new passwordless account is created with the link.
//
// The repository's atomic uniqueness guarantee is the backstop for races
// between concurrent first sign-ins; a lost race falls back to the fast path.
func (s *Service) FederatedSignIn(ctx context.Context, assertion federation.Assertion) (*accounts.Account, error) {
	if assertion.Provider == "" || assertion.SubjectID == "" {
		return nil, errors.Wrap(ErrValidation, "assertion missing provider or subject")
	}

	account, err := s.repo.FindByFederatedIdentity(ctx, assertion.Provider, assertion.SubjectID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, accounts.ErrNotFound) {
		return nil, errors.Wrap(err, "[Service.FederatedSignIn] FindByFederatedIdentity")
	}

	if assertion.Email != "" {
		existing, err := s.repo.FindByEmail(ctx, accounts.NormalizeEmail(assertion.Email))
		if err == nil {
			if err := s.repo.LinkFederatedIdentity(ctx, existing.ID, assertion.Provider, assertion.SubjectID); err != nil {
				if errors.Is(err, accounts.ErrUniquenessViolation) {
					return s.retryFastPath(ctx, assertion)
				}
				return nil, errors.Wrap(err, "[Service.FederatedSignIn] LinkFederatedIdentity")
			}
			return s.repo.FindByFederatedIdentity(ctx, assertion.Provider, assertion.SubjectID)
		}
		if !errors.Is(err, accounts.ErrNotFound) {
			return nil, errors.Wrap(err, "[Service.FederatedSignIn] FindByEmail")
		}
	}

	// Provisioning needs an email: every account carries a unique one.
	if err := ValidateEmail(assertion.Email); err != nil {
		return nil, err
	}

	account, err = s.repo.Create(ctx, accounts.Draft{
		Name:  assertion.Name,
		Email: accounts.NormalizeEmail(assertion.Email),
		FederatedIdentities: []accounts.FederatedIdentity{
			{Provider: assertion.Provider, SubjectID: assertion.SubjectID},
		},
	})
	if err != nil {
		if errors.Is(err, accounts.ErrUniquenessViolation) {
			return s.retryFastPath(ctx, assertion)
		}
		return nil, errors.Wrap(err, "[Service.FederatedSignIn] Create")
	}
	return account, nil
}

// retryFastPath resolves a lost provisioning race: some concurrent attempt
// created or linked the identity first, so it must be findable now.
func (s *Service) retryFastPath(ctx context.Context, assertion federation.Assertion) (*accounts.Account, error) {
	account, err := s.repo.FindByFederatedIdentity(ctx, assertion.Provider, assertion.SubjectID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.retryFastPath] FindByFederatedIdentity")
	}
	return account, nil
}

// ValidateSession decodes a presented session token into its subject. Invalid
// tokens resolve to sessions.ErrTokenInvalid, never a panic.
func (s *Service) ValidateSession(token string) (*sessions.Session, error) {
	return s.issuer.Validate(token)
}
