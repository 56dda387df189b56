package models

import "time"

// Account is a registered user of the legacy service.
type Account struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// LastSeen returns the most recent sign-in time, falling back to the
// registration time for accounts that have never logged in.
func (a *Account) LastSeen() time.Time {
	if a.LastLoginAt != nil {
		return *a.LastLoginAt
	}
	return a.CreatedAt
}

// RefreshToken is a server-stored long-lived session token. Only the
// SHA-256 hash of the plaintext is ever persisted.
type RefreshToken struct {
	TokenHash string
	AccountID int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired returns true if the refresh token has passed its expiry time.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
