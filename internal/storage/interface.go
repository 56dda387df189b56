package storage

import (
	"context"
	"errors"
	"time"

	"github.com/org/endura/pkg/models"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique constraint is violated.
var ErrAlreadyExists = errors.New("already exists")

// NotificationFilter specifies query parameters for notification log retrieval.
type NotificationFilter struct {
	ExecutorID int64
	Kind       models.NotificationKind
	Limit      int
	Offset     int
}

// Store defines the persistence interface for Endura.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error

	// Refresh tokens
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error

	// Vault (one row per account, upsert only)
	GetVault(ctx context.Context, accountID int64) (*models.Vault, error)
	UpsertVault(ctx context.Context, v *models.Vault) error

	// Letters (append-only)
	CreateLetter(ctx context.Context, l *models.Letter) error
	ListLetters(ctx context.Context, accountID int64) ([]*models.Letter, error)
	CountLetters(ctx context.Context, accountID int64) (int64, error)

	// Executors
	UpsertExecutor(ctx context.Context, e *models.Executor) error
	GetExecutorByAccount(ctx context.Context, accountID int64) (*models.Executor, error)
	GetExecutorByID(ctx context.Context, id int64) (*models.Executor, error)
	FindPendingExecutorByEmail(ctx context.Context, email string) (*models.Executor, error)
	SetExecutorDocument(ctx context.Context, id int64, documentRef string) error
	UpdateExecutorStatus(ctx context.Context, id int64, status models.ExecutorStatus, verified bool) error
	ListExecutors(ctx context.Context, status models.ExecutorStatus) ([]*models.Executor, error)

	// Notification log
	AppendNotification(ctx context.Context, n *models.NotificationEntry) error
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]*models.NotificationEntry, error)

	// Metrics helpers
	CountExecutorsByStatus(ctx context.Context) (map[models.ExecutorStatus]int64, error)

	// Lifecycle
	Close()
}
