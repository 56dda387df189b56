package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/org/endura/internal/storage"
	"github.com/org/endura/pkg/models"
)

const refreshPrefix = "enr_"

// ErrRefreshExpired is returned when a refresh token has passed its expiry.
var ErrRefreshExpired = errors.New("refresh token expired")

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	Access  string
	Refresh string
}

// Sessions issues and rotates token pairs. Access tokens are signed JWTs;
// refresh tokens are opaque random strings stored server-side as SHA-256
// hashes, shown once to the caller.
type Sessions struct {
	store      storage.Store
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSessions creates a Sessions service backed by the given store.
func NewSessions(store storage.Store, secret []byte, accessTTL, refreshTTL time.Duration) *Sessions {
	return &Sessions{store: store, secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue mints a new token pair for the account and persists the refresh
// token hash.
func (s *Sessions) Issue(ctx context.Context, a *models.Account) (*TokenPair, error) {
	access, err := GenerateAccessToken(a, s.secret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}
	refresh := refreshPrefix + base64.RawURLEncoding.EncodeToString(raw)

	now := time.Now().UTC()
	if err := s.store.CreateRefreshToken(ctx, &models.RefreshToken{
		TokenHash: HashRefreshToken(refresh),
		AccountID: a.ID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh validates a refresh token, rotates it, and returns a fresh pair.
// The presented token is deleted whether or not it has expired, so a stolen
// expired token cannot be replayed.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string) (*TokenPair, *models.Account, error) {
	hash := HashRefreshToken(refreshToken)
	stored, err := s.store.GetRefreshToken(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, err
	}
	if err := s.store.DeleteRefreshToken(ctx, hash); err != nil {
		return nil, nil, fmt.Errorf("rotating refresh token: %w", err)
	}
	if stored.IsExpired() {
		return nil, nil, ErrRefreshExpired
	}
	account, err := s.store.GetAccountByID(ctx, stored.AccountID)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}
	pair, err := s.Issue(ctx, account)
	if err != nil {
		return nil, nil, err
	}
	return pair, account, nil
}

// Authenticate verifies an access token and resolves it to the live account
// row, so revoked admin bits or deleted accounts take effect immediately.
func (s *Sessions) Authenticate(ctx context.Context, accessToken string) (*models.Account, error) {
	claims, err := ParseAccessToken(accessToken, s.secret)
	if err != nil {
		return nil, err
	}
	account, err := s.store.GetAccountByID(ctx, claims.AccountID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return account, nil
}

// HashRefreshToken returns the SHA-256 hex hash of a plaintext refresh token.
func HashRefreshToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
