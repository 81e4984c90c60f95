package accounts

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the registration endpoint has always
// used; raise it via configuration as hardware catches up.
const DefaultBcryptCost = 12

// Hasher performs one-way hashing and verification of passwords. The salt is
// generated internally and embedded in the output, so hashing the same
// password twice yields different hashes.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. Costs outside
// bcrypt's supported range fall back to DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt hash of the password. It fails only on internal
// error, never on password content.
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "[Hasher.Hash] bcrypt.GenerateFromPassword")
	}
	return string(bytes), nil
}

// Verify reports whether the password matches the stored hash. A malformed
// stored hash verifies as false rather than raising.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
