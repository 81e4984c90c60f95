package accounts

import (
	"strings"
	"time"
)

// FederatedIdentity links an account to an identity held by an external
// provider. Each (Provider, SubjectID) pair maps to at most one account.
type FederatedIdentity struct {
	Provider  string `json:"provider"`
	SubjectID string `json:"subject_id"`
}

// Account is the durable identity record a user authenticates as.
type Account struct {
	ID                  string              `json:"id,omitempty"`    // Unique identifier, assigned at creation
	Email               string              `json:"email,omitempty"` // Case-normalized, unique across all accounts
	Name                string              `json:"name,omitempty"`  // Optional display name
	CredentialHash      string              `json:"-"`               // Hashed password - never serialize. Empty for federation-only accounts
	FederatedIdentities []FederatedIdentity `json:"federated_identities,omitempty"`
	CreatedAt           time.Time           `json:"created_at,omitempty"`
}

// Draft is the input to Repo.Create. Creation must establish at least one
// sign-in path: a credential hash, a federated identity, or both.
type Draft struct {
	Name                string
	Email               string
	CredentialHash      string
	FederatedIdentities []FederatedIdentity
}

// NormalizeEmail canonicalizes an email address for storage and lookup.
// Uniqueness is enforced on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasCredentials reports whether the account supports local password sign-in.
func (a *Account) HasCredentials() bool {
	return a.CredentialHash != ""
}

// HasFederatedIdentity reports whether the account is linked to the given
// provider identity.
func (a *Account) HasFederatedIdentity(provider, subjectID string) bool {
	for _, fi := range a.FederatedIdentities {
		if fi.Provider == provider && fi.SubjectID == subjectID {
			return true
		}
	}
	return false
}
