package accounts_test

import (
	"testing"

	"github.com/jrsteele09/go-user-auth/accounts"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherHashAndVerify(t *testing.T) {
	hasher := accounts.NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("password1")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEqual(t, "password1", hash)

	require.True(t, hasher.Verify("password1", hash))
	require.False(t, hasher.Verify("password2", hash))
}

func TestHasherSaltedOutput(t *testing.T) {
	hasher := accounts.NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash("password1")
	require.NoError(t, err)
	second, err := hasher.Hash("password1")
	require.NoError(t, err)

	// Same input, different hashes - the salt is embedded in the output
	require.NotEqual(t, first, second)
	require.True(t, hasher.Verify("password1", first))
	require.True(t, hasher.Verify("password1", second))
}

func TestHasherVerifyMalformedHash(t *testing.T) {
	hasher := accounts.NewHasher(bcrypt.MinCost)

	require.False(t, hasher.Verify("password1", ""))
	require.False(t, hasher.Verify("password1", "not-a-bcrypt-hash"))
	require.False(t, hasher.Verify("password1", "$2a$garbage"))
}

func TestNewHasherClampsCost(t *testing.T) {
	// Out-of-range costs fall back to the default rather than failing later
	hasher := accounts.NewHasher(-1)
	hash, err := hasher.Hash("password1")
	require.NoError(t, err)
	require.True(t, hasher.Verify("password1", hash))
}
