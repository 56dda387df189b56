package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/org/endura/pkg/models"
)

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a pgxpool connection and returns a ready store.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- Accounts ---

func (p *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO accounts (email, full_name, password_hash, is_admin, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		a.Email, a.FullName, a.PasswordHash, a.IsAdmin, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, is_admin, created_at, last_login_at
		 FROM accounts WHERE email = $1`,
		email,
	)
	return scanAccount(row)
}

func (p *PostgresStore) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, email, full_name, password_hash, is_admin, created_at, last_login_at
		 FROM accounts WHERE id = $1`,
		id,
	)
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Email, &a.FullName, &a.PasswordHash, &a.IsAdmin,
		&a.CreatedAt, &a.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (p *PostgresStore) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE accounts SET last_login_at = $1 WHERE id = $2`,
		at, id,
	)
	return err
}

// --- Refresh tokens ---

func (p *PostgresStore) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (token_hash, account_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4)`,
		t.TokenHash, t.AccountID, t.ExpiresAt, t.CreatedAt,
	)
	return err
}

func (p *PostgresStore) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT token_hash, account_id, expires_at, created_at
		 FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash,
	)
	var t models.RefreshToken
	err := row.Scan(&t.TokenHash, &t.AccountID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (p *PostgresStore) DeleteRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := p.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash,
	)
	return err
}

// --- Vault ---

func (p *PostgresStore) GetVault(ctx context.Context, accountID int64) (*models.Vault, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, account_id, ciphertext, iv, salt, item_count, updated_at
		 FROM vaults WHERE account_id = $1`,
		accountID,
	)
	var v models.Vault
	err := row.Scan(&v.ID, &v.AccountID, &v.Ciphertext, &v.IV, &v.Salt, &v.ItemCount, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// UpsertVault replaces the account's vault in place. The UNIQUE constraint on
// account_id guarantees a second row is never created.
func (p *PostgresStore) UpsertVault(ctx context.Context, v *models.Vault) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO vaults (account_id, ciphertext, iv, salt, item_count, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (account_id) DO UPDATE
		 SET ciphertext = EXCLUDED.ciphertext,
		     iv = EXCLUDED.iv,
		     salt = EXCLUDED.salt,
		     item_count = EXCLUDED.item_count,
		     updated_at = NOW()
		 RETURNING id, updated_at`,
		v.AccountID, v.Ciphertext, v.IV, v.Salt, v.ItemCount,
	).Scan(&v.ID, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting vault: %w", err)
	}
	return nil
}

// --- Letters ---

func (p *PostgresStore) CreateLetter(ctx context.Context, l *models.Letter) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO letters (account_id, title, recipient, ciphertext, iv, salt, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		l.AccountID, l.Title, l.Recipient, l.Ciphertext, l.IV, l.Salt,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting letter: %w", err)
	}
	return nil
}

func (p *PostgresStore) ListLetters(ctx context.Context, accountID int64) ([]*models.Letter, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, account_id, title, recipient, ciphertext, iv, salt, created_at
		 FROM letters WHERE account_id = $1 ORDER BY created_at`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var letters []*models.Letter
	for rows.Next() {
		var l models.Letter
		if err := rows.Scan(&l.ID, &l.AccountID, &l.Title, &l.Recipient,
			&l.Ciphertext, &l.IV, &l.Salt, &l.CreatedAt); err != nil {
			return nil, err
		}
		letters = append(letters, &l)
	}
	return letters, rows.Err()
}

func (p *PostgresStore) CountLetters(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM letters WHERE account_id = $1`,
		accountID,
	).Scan(&count)
	return count, err
}

// --- Executors ---

// UpsertExecutor writes the executor's contact fields. Status, verified flag
// and document reference are never touched here — those belong exclusively
// to the administrative workflow.
func (p *PostgresStore) UpsertExecutor(ctx context.Context, e *models.Executor) error {
	err := p.pool.QueryRow(ctx,
		`INSERT INTO executors (account_id, name, email, phone, relationship, status, verified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
		 ON CONFLICT (account_id) DO UPDATE
		 SET name = EXCLUDED.name,
		     email = EXCLUDED.email,
		     phone = EXCLUDED.phone,
		     relationship = EXCLUDED.relationship,
		     updated_at = NOW()
		 RETURNING id, status, verified, created_at, updated_at`,
		e.AccountID, e.Name, e.Email, e.Phone, e.Relationship, models.StatusActive,
	).Scan(&e.ID, &e.Status, &e.Verified, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting executor: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetExecutorByAccount(ctx context.Context, accountID int64) (*models.Executor, error) {
	row := p.pool.QueryRow(ctx,
		executorSelect+` WHERE account_id = $1`,
		accountID,
	)
	return scanExecutor(row)
}

func (p *PostgresStore) GetExecutorByID(ctx context.Context, id int64) (*models.Executor, error) {
	row := p.pool.QueryRow(ctx,
		executorSelect+` WHERE id = $1`,
		id,
	)
	return scanExecutor(row)
}

// FindPendingExecutorByEmail resolves the verification-upload capability:
// the given email must match a row currently in Verification_Pending. If the
// same address is executor for several accounts, the most recently updated
// pending row wins.
func (p *PostgresStore) FindPendingExecutorByEmail(ctx context.Context, email string) (*models.Executor, error) {
	row := p.pool.QueryRow(ctx,
		executorSelect+` WHERE email = $1 AND status = $2 ORDER BY updated_at DESC LIMIT 1`,
		email, models.StatusPending,
	)
	return scanExecutor(row)
}

const executorSelect = `SELECT id, account_id, name, email, phone, relationship, document_ref, status, verified, created_at, updated_at FROM executors`

func scanExecutor(row pgx.Row) (*models.Executor, error) {
	var e models.Executor
	err := row.Scan(&e.ID, &e.AccountID, &e.Name, &e.Email, &e.Phone, &e.Relationship,
		&e.DocumentRef, &e.Status, &e.Verified, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// SetExecutorDocument stores the uploaded document reference and forces
// verified back to false: an upload alone never grants verification.
func (p *PostgresStore) SetExecutorDocument(ctx context.Context, id int64, documentRef string) error {
	_, err := p.pool.Exec(ctx,
		`UPDATE executors SET document_ref = $1, verified = FALSE, updated_at = NOW() WHERE id = $2`,
		documentRef, id,
	)
	return err
}

func (p *PostgresStore) UpdateExecutorStatus(ctx context.Context, id int64, status models.ExecutorStatus, verified bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE executors SET status = $1, verified = $2, updated_at = NOW() WHERE id = $3`,
		status, verified, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListExecutors(ctx context.Context, status models.ExecutorStatus) ([]*models.Executor, error) {
	query := strings.Builder{}
	query.WriteString(executorSelect)
	args := []any{}
	if status != "" {
		query.WriteString(` WHERE status = $1`)
		args = append(args, status)
	}
	query.WriteString(` ORDER BY updated_at DESC`)

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var execs []*models.Executor
	for rows.Next() {
		var e models.Executor
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Name, &e.Email, &e.Phone, &e.Relationship,
			&e.DocumentRef, &e.Status, &e.Verified, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		execs = append(execs, &e)
	}
	return execs, rows.Err()
}

// --- Notification log ---

func (p *PostgresStore) AppendNotification(ctx context.Context, n *models.NotificationEntry) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO notification_log (executor_id, kind, succeeded, error, sent_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.ExecutorID, n.Kind, n.Succeeded, n.Error, n.SentAt,
	)
	return err
}

func (p *PostgresStore) ListNotifications(ctx context.Context, filter NotificationFilter) ([]*models.NotificationEntry, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, executor_id, kind, succeeded, error, sent_at FROM notification_log WHERE 1=1`)
	args := []any{}
	n := 1
	if filter.ExecutorID != 0 {
		fmt.Fprintf(&query, ` AND executor_id = $%d`, n)
		args = append(args, filter.ExecutorID)
		n++
	}
	if filter.Kind != "" {
		fmt.Fprintf(&query, ` AND kind = $%d`, n)
		args = append(args, filter.Kind)
		n++
	}
	query.WriteString(` ORDER BY sent_at DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&query, ` LIMIT $%d`, n)
		args = append(args, filter.Limit)
		n++
	}
	if filter.Offset > 0 {
		fmt.Fprintf(&query, ` OFFSET $%d`, n)
		args = append(args, filter.Offset)
	}

	rows, err := p.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []*models.NotificationEntry
	for rows.Next() {
		var e models.NotificationEntry
		if err := rows.Scan(&e.ID, &e.ExecutorID, &e.Kind, &e.Succeeded, &e.Error, &e.SentAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// --- Metrics ---

func (p *PostgresStore) CountExecutorsByStatus(ctx context.Context) (map[models.ExecutorStatus]int64, error) {
	rows, err := p.pool.Query(ctx, `SELECT status, COUNT(*) FROM executors GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[models.ExecutorStatus]int64{}
	for rows.Next() {
		var status models.ExecutorStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
