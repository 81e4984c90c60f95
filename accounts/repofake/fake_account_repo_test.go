package fakeaccountrepo_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jrsteele09/go-user-auth/accounts"
	fakeaccountrepo "github.com/jrsteele09/go-user-auth/accounts/repofake"
	"github.com/stretchr/testify/require"
)

func TestCreateAndFindByEmail(t *testing.T) {
	repo := fakeaccountrepo.NewFakeAccountRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, accounts.Draft{
		Name:           "John Doe",
		Email:          "John.Doe@Example.com",
		CredentialHash: "hash",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "john.doe@example.com", created.Email)

	found, err := repo.FindByEmail(ctx, "JOHN.DOE@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo := fakeaccountrepo.NewFakeAccountRepo()
	ctx := context.Background()

	_, err := repo.Create(ctx, accounts.Draft{Email: "a@x.com", CredentialHash: "hash"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, accounts.Draft{Email: "A@X.COM", CredentialHash: "hash"})
	require.ErrorIs(t, err, accounts.ErrUniquenessViolation)
}

func TestConcurrentDuplicateCreate(t *testing.T) {
	repo := fakeaccountrepo.NewFakeAccountRepo()
	ctx := context.Background()

	const attempts = 16
	results := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, accounts.Draft{Email: "race@x.com", CredentialHash: "hash"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, violations int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, accounts.ErrUniquenessViolation)
			violations++
		}
	}
	// Exactly one create wins, regardless of interleaving
	require.Equal(t, 1, successes)
	require.Equal(t, attempts-1, violations)
}

func TestFindByFederatedIdentity(t *testing.T) {
	repo := fakeaccountrepo.NewFakeAccountRepo()
	ctx := context.Background()

	created, err := repo.Create(ctx, accounts.Draft{
		Email: "fed@x.com",
		FederatedIdentities: []accounts.FederatedIdentity{
			{Provider: "github", SubjectID: "42"},
		},
	})
	require.NoError(t, err)

	found, err := repo.FindByFederatedIdentity(ctx, "github", "42")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = repo.FindByFederatedIdentity(ctx, "github", "43")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestLinkFederatedIdentity(t *testing.T) {
	repo := fakeaccountrepo.NewFakeAccountRepo()
	ctx := context.Background()

	first, err := repo.Create(ctx, accounts.Draft{Email: "a@x.com", CredentialHash: "hash"})
	require.NoError(t, err)
	second, err := repo.Create(ctx, accounts.Draft{Email: "b@x.com", CredentialHash: "hash"})
	require.NoError(t, err)

	require.NoError(t, repo.LinkFederatedIdentity(ctx, first.ID, "github", "42"))

	// Idempotent for the owning account
	require.NoError(t, repo.LinkFederatedIdentity(ctx, first.ID, "github", "42"))

	// Conflicting link for another account is a violation
	err = repo.LinkFederatedIdentity(ctx, second.ID, "github", "42")
	require.ErrorIs(t, err, accounts.ErrUniquenessViolation)

	found, err := repo.FindByFederatedIdentity(ctx, "github", "42")
	require.NoError(t, err)
	require.Equal(t, first.ID, found.ID)

	err = repo.LinkFederatedIdentity(ctx, "no-such-account", "github", "43")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}
