package federation

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const stateTTL = 10 * time.Minute

// flowState tracks one in-flight federated sign-in between the redirect to
// the provider and its callback.
type flowState struct {
	Provider  string
	Nonce     string
	CreatedAt time.Time
}

// StateStore is a thread-safe in-memory store of in-flight sign-in attempts,
// keyed by the opaque state parameter. Entries are single-use and expire.
type StateStore struct {
	mu      sync.Mutex
	states  map[string]flowState
	nowFunc func() time.Time
}

// NewStateStore creates an empty state store.
func NewStateStore() *StateStore {
	return &StateStore{
		states:  make(map[string]flowState),
		nowFunc: time.Now,
	}
}

// Begin records a new sign-in attempt and returns its state and nonce values.
func (s *StateStore) Begin(provider string) (state, nonce string) {
	state = generateRandomString(32)
	nonce = generateRandomString(32)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.states[state] = flowState{
		Provider:  provider,
		Nonce:     nonce,
		CreatedAt: s.nowFunc(),
	}
	return state, nonce
}

// Consume removes and returns the attempt bound to state. Unknown, reused,
// or expired states fail.
func (s *StateStore) Consume(state string) (provider, nonce string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.states[state]
	if !exists {
		return "", "", errors.New("[StateStore.Consume] unknown state")
	}
	delete(s.states, state)

	if s.nowFunc().Sub(entry.CreatedAt) > stateTTL {
		return "", "", errors.New("[StateStore.Consume] state expired")
	}
	return entry.Provider, entry.Nonce, nil
}

// prune drops expired entries. Caller holds the lock.
func (s *StateStore) prune() {
	cutoff := s.nowFunc().Add(-stateTTL)
	for state, entry := range s.states {
		if entry.CreatedAt.Before(cutoff) {
			delete(s.states, state)
		}
	}
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
