package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store holds the credential used for REST polling, backed by a
// TokenRepository. All read-modify-write sequences are serialized
// under a single mutex so that a save racing a read can never
// interleave a stale credential back into the database.
type Store struct {
	mu    sync.Mutex
	repo  TokenRepository
	name  string
	token Token
	held  bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewStore creates a Store persisting under the given token name.
// An empty name falls back to DefaultTokenName.
func NewStore(repo TokenRepository, name string) *Store {
	if name == "" {
		name = DefaultTokenName
	}
	return &Store{
		repo: repo,
		name: name,
		now:  time.Now,
	}
}

// Initialize loads any persisted token into the in-memory cache.
// A missing record is not an error; the store simply starts empty.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.repo.Get(ctx, s.name)
	if err != nil {
		if IsNoToken(err) {
			return nil
		}
		return fmt.Errorf("loading token: %w", err)
	}
	s.token = token
	s.held = true
	return nil
}

// Save persists a new credential and updates the cache. When the
// caller did not supply an expiry, Save derives one from the access
// token's exp claim so staleness checks keep working.
func (s *Store) Save(ctx context.Context, token Token) error {
	if token.AccessToken == "" {
		return fmt.Errorf("%w: empty access token", ErrTokenInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token.Name = s.name
	if token.ExpiresAt.IsZero() {
		if expiry, err := TokenExpiry(token.AccessToken); err == nil {
			token.ExpiresAt = expiry
		}
	}
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = s.now().UTC()
	}

	if err := s.repo.Upsert(ctx, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	s.token = token
	s.held = true
	return nil
}

// AccessToken returns the cached access token.
//
// Returns:
//   - ErrNoToken when no credential has been stored
//   - ErrTokenExpired when the credential is within RefreshOffset of
//     its expiry and should be replaced before use
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held {
		return "", ErrNoToken
	}
	if s.token.ShouldRefresh(s.now()) {
		return "", fmt.Errorf("%w: expires at %s", ErrTokenExpired,
			s.token.ExpiresAt.Format(time.RFC3339))
	}
	return s.token.AccessToken, nil
}

// Token returns a copy of the cached token record, or ErrNoToken when
// nothing is held.
func (s *Store) Token() (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.held {
		return Token{}, ErrNoToken
	}
	return s.token, nil
}

// Clear removes the credential from both the cache and the database.
// Clearing an already empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(ctx, s.name); err != nil && !IsNoToken(err) {
		return fmt.Errorf("clearing token: %w", err)
	}
	s.token = Token{}
	s.held = false
	return nil
}
