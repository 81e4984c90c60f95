package sqliterepo_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-user-auth/accounts"
	"github.com/jrsteele09/go-user-auth/accounts/sqliterepo"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T) *sqliterepo.Repo {
	t.Helper()
	repo, err := sqliterepo.Open(filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqliterepo.Open("  ")
	require.Error(t, err)
}

func TestCreateAndFind(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, accounts.Draft{
		Name:           "John Doe",
		Email:          "John.Doe@Example.com",
		CredentialHash: "hash",
		FederatedIdentities: []accounts.FederatedIdentity{
			{Provider: "github", SubjectID: "42"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "john.doe@example.com", created.Email)

	byEmail, err := repo.FindByEmail(ctx, "JOHN.DOE@EXAMPLE.COM")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)
	require.Equal(t, "hash", byEmail.CredentialHash)
	require.Len(t, byEmail.FederatedIdentities, 1)

	byFed, err := repo.FindByFederatedIdentity(ctx, "github", "42")
	require.NoError(t, err)
	require.Equal(t, created.ID, byFed.ID)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, accounts.ErrNotFound)
	_, err = repo.FindByFederatedIdentity(ctx, "github", "43")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, accounts.Draft{Email: "a@x.com", CredentialHash: "hash"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, accounts.Draft{Email: "A@X.com", CredentialHash: "other"})
	require.ErrorIs(t, err, accounts.ErrUniquenessViolation)
}

func TestCreateDuplicateFederatedIdentityRollsBack(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, accounts.Draft{
		Email: "a@x.com",
		FederatedIdentities: []accounts.FederatedIdentity{
			{Provider: "github", SubjectID: "42"},
		},
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, accounts.Draft{
		Email: "b@x.com",
		FederatedIdentities: []accounts.FederatedIdentity{
			{Provider: "github", SubjectID: "42"},
		},
	})
	require.ErrorIs(t, err, accounts.ErrUniquenessViolation)

	// The losing create must not leave a partial account behind
	_, err = repo.FindByEmail(ctx, "b@x.com")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestLinkFederatedIdentity(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, accounts.Draft{Email: "a@x.com", CredentialHash: "hash"})
	require.NoError(t, err)
	second, err := repo.Create(ctx, accounts.Draft{Email: "b@x.com", CredentialHash: "hash"})
	require.NoError(t, err)

	require.NoError(t, repo.LinkFederatedIdentity(ctx, first.ID, "github", "42"))
	require.NoError(t, repo.LinkFederatedIdentity(ctx, first.ID, "github", "42")) // idempotent

	err = repo.LinkFederatedIdentity(ctx, second.ID, "github", "42")
	require.ErrorIs(t, err, accounts.ErrUniquenessViolation)

	linked, err := repo.FindByFederatedIdentity(ctx, "github", "42")
	require.NoError(t, err)
	require.Equal(t, first.ID, linked.ID)
}
