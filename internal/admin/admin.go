package admin

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Account is an administrator login.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// ErrInvalidCredentials covers every login failure. Unknown usernames and
// wrong passwords get the same message so usernames cannot be enumerated.
var ErrInvalidCredentials = errors.New("Invalid credentials")

// Repository persists admin accounts in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByUsername returns the account, or nil when absent.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM admins WHERE username = $1
	`, username)
	var a Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// Count returns the number of admin accounts.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

// Insert writes a new account. Returns false when the username is taken,
// which can only happen when two bootstrap logins race; the loser falls back
// to a normal credential check.
func (r *Repository) Insert(ctx context.Context, username, passwordHash string) (Account, bool, error) {
	a := Account{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`, a.ID, a.Username, a.PasswordHash, a.CreatedAt)
	if err != nil {
		return Account{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Account{}, false, err
	}
	return a, n == 1, nil
}
