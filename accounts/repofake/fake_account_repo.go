package fakeaccountrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-user-auth/accounts"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

// FakeAccountRepo is an in-memory account store. All uniqueness checks and
// writes happen under one lock, giving the atomicity the Repo contract
// requires.
type FakeAccountRepo struct {
	accounts map[string]*accounts.Account
	emailIds map[string]string // normalized email to account id
	fedIds   map[string]string // provider/subject key to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*accounts.Account),
		emailIds: make(map[string]string),
		fedIds:   make(map[string]string),
	}
}

func fedKey(provider, subjectID string) string {
	return provider + "\x00" + subjectID
}

func (ar *FakeAccountRepo) FindByEmail(_ context.Context, email string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.emailIds[accounts.NormalizeEmail(email)]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return copyAccount(ar.accounts[id]), nil
}

func (ar *FakeAccountRepo) FindByFederatedIdentity(_ context.Context, provider, subjectID string) (*accounts.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.fedIds[fedKey(provider, subjectID)]
	if !ok {
		return nil, accounts.ErrNotFound
	}
	return copyAccount(ar.accounts[id]), nil
}

func (ar *FakeAccountRepo) Create(_ context.Context, draft accounts.Draft) (*accounts.Account, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	email := accounts.NormalizeEmail(draft.Email)
	if _, exists := ar.emailIds[email]; exists {
		return nil, accounts.ErrUniquenessViolation
	}
	for _, fi := range draft.FederatedIdentities {
		if _, exists := ar.fedIds[fedKey(fi.Provider, fi.SubjectID)]; exists {
			return nil, accounts.ErrUniquenessViolation
		}
	}

	account := &accounts.Account{
		ID:                  uuid.New().String(),
		Email:               email,
		Name:                draft.Name,
		CredentialHash:      draft.CredentialHash,
		FederatedIdentities: append([]accounts.FederatedIdentity(nil), draft.FederatedIdentities...),
		CreatedAt:           time.Now().UTC(),
	}

	ar.accounts[account.ID] = account
	ar.emailIds[email] = account.ID
	for _, fi := range account.FederatedIdentities {
		ar.fedIds[fedKey(fi.Provider, fi.SubjectID)] = account.ID
	}
	return copyAccount(account), nil
}

func (ar *FakeAccountRepo) LinkFederatedIdentity(_ context.Context, accountID, provider, subjectID string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account, ok := ar.accounts[accountID]
	if !ok {
		return accounts.ErrNotFound
	}

	if ownerID, exists := ar.fedIds[fedKey(provider, subjectID)]; exists {
		if ownerID == accountID {
			return nil
		}
		return accounts.ErrUniquenessViolation
	}

	account.FederatedIdentities = append(account.FederatedIdentities, accounts.FederatedIdentity{
		Provider:  provider,
		SubjectID: subjectID,
	})
	ar.fedIds[fedKey(provider, subjectID)] = accountID
	return nil
}

// copyAccount shields the store's records from caller mutation.
func copyAccount(a *accounts.Account) *accounts.Account {
	if a == nil {
		return nil
	}
	cp := *a
	cp.FederatedIdentities = append([]accounts.FederatedIdentity(nil), a.FederatedIdentities...)
	return &cp
}
