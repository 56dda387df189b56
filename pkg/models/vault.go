package models

import "time"

// Vault is the single encrypted blob an account stores. The server never
// decrypts it — ciphertext, IV and salt are opaque client-side material.
type Vault struct {
	ID         int64
	AccountID  int64
	Ciphertext string
	IV         string
	Salt       string
	ItemCount  int
	UpdatedAt  time.Time
}

// Letter is one of many encrypted messages addressed to a named recipient.
// Letters are append-only: there is no update or delete path.
type Letter struct {
	ID         int64
	AccountID  int64
	Title      string
	Recipient  string
	Ciphertext string
	IV         string
	Salt       string
	CreatedAt  time.Time
}
