package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
)

// tokenStore stubs the refresh-token and account methods Sessions uses.
type tokenStore struct {
	storage.Store
	accounts map[int64]*models.Account
	tokens   map[string]*models.RefreshToken
}

func newTokenStore(accounts ...*models.Account) *tokenStore {
	s := &tokenStore{
		accounts: map[int64]*models.Account{},
		tokens:   map[string]*models.RefreshToken{},
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *tokenStore) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	if a, ok := s.accounts[id]; ok {
		return a, nil
	}
	return nil, storage.ErrNotFound
}

func (s *tokenStore) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	s.tokens[t.TokenHash] = t
	return nil
}

func (s *tokenStore) GetRefreshToken(ctx context.Context, hash string) (*models.RefreshToken, error) {
	if t, ok := s.tokens[hash]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (s *tokenStore) DeleteRefreshToken(ctx context.Context, hash string) error {
	delete(s.tokens, hash)
	return nil
}

func TestSessionsIssueStoresOnlyHash(t *testing.T) {
	account := &models.Account{ID: 1, Email: "alice@example.com", FullName: "Alice"}
	store := newTokenStore(account)
	sessions := NewSessions(store, []byte("secret"), time.Hour, 24*time.Hour)

	pair, err := sessions.Issue(context.Background(), account)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pair.Refresh, "enr_"))

	// The plaintext must never appear as a storage key
	_, plaintextStored := store.tokens[pair.Refresh]
	assert.False(t, plaintextStored)
	_, hashStored := store.tokens[HashRefreshToken(pair.Refresh)]
	assert.True(t, hashStored)
}

func TestSessionsRefreshRotates(t *testing.T) {
	account := &models.Account{ID: 1, Email: "alice@example.com"}
	store := newTokenStore(account)
	sessions := NewSessions(store, []byte("secret"), time.Hour, 24*time.Hour)

	pair, err := sessions.Issue(context.Background(), account)
	require.NoError(t, err)

	next, got, err := sessions.Refresh(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.NotEqual(t, pair.Refresh, next.Refresh)

	// The presented token is consumed
	_, _, err = sessions.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionsRefreshExpiredTokenConsumed(t *testing.T) {
	account := &models.Account{ID: 1, Email: "alice@example.com"}
	store := newTokenStore(account)
	sessions := NewSessions(store, []byte("secret"), time.Hour, -time.Minute)

	pair, err := sessions.Issue(context.Background(), account)
	require.NoError(t, err)

	_, _, err = sessions.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrRefreshExpired)
	// Even an expired token is deleted on presentation
	assert.Empty(t, store.tokens)
}

func TestSessionsAuthenticateResolvesLiveAccount(t *testing.T) {
	account := &models.Account{ID: 1, Email: "alice@example.com", IsAdmin: false}
	store := newTokenStore(account)
	sessions := NewSessions(store, []byte("secret"), time.Hour, 24*time.Hour)

	pair, err := sessions.Issue(context.Background(), account)
	require.NoError(t, err)

	got, err := sessions.Authenticate(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)

	// Flipping the stored row takes effect without reissuing the token
	account.IsAdmin = true
	got, err = sessions.Authenticate(context.Background(), pair.Access)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	// Deleting the account kills the token
	delete(store.accounts, account.ID)
	_, err = sessions.Authenticate(context.Background(), pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
