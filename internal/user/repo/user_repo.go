package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/database"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrDuplicate       = errors.New("duplicate value")
	ErrLoyaltyAssigned = errors.New("loyalty card already assigned")
)

// dbtx is satisfied by *sqlx.DB, *sqlx.Conn and *sqlx.Tx.
type dbtx interface {
	sqlx.QueryerContext
	sqlx.ExecerContext
}

// Pool hands out per-request repositories bound to a single pooled connection.
type Pool struct {
	db *sqlx.DB
}

func NewPool(db *sqlx.DB) *Pool { return &Pool{db: db} }

// Acquire takes a connection for one request. Close the returned repo on every path.
func (p *Pool) Acquire(ctx context.Context) (*UserRepo, error) {
	conn, err := database.Acquire(ctx, p.db)
	if err != nil {
		return nil, err
	}
	return &UserRepo{db: conn, closer: conn}, nil
}

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (p *Pool) EnsureTable(ctx context.Context) error {
	return NewUserRepo(p.db).EnsureTable(ctx)
}

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db     dbtx
	closer interface{ Close() error }
}

func NewUserRepo(db dbtx) *UserRepo { return &UserRepo{db: db} }

// Close releases the underlying connection when the repo came from a Pool.
func (r *UserRepo) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  email TEXT NOT NULL UNIQUE,
  password TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  loyalty_card_id TEXT UNIQUE
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const selectUser = `SELECT id, first_name, last_name, email, password, created_at, loyalty_card_id FROM users`

// FindByEmail returns the user with the given (already normalized) email or ErrNotFound.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := sqlx.GetContext(ctx, r.db, &u, selectUser+` WHERE email = $1`, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// InsertUser inserts u and sets u.ID. A taken email yields ErrDuplicate.
func (r *UserRepo) InsertUser(ctx context.Context, u *entity.User) (int64, error) {
	const q = `INSERT INTO users (first_name, last_name, password, email, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	row := r.db.QueryRowxContext(ctx, q, u.FirstName, u.LastName, u.PasswordHash, u.Email, u.CreatedAt)
	if err := row.Scan(&u.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return u.ID, nil
}

// UpdateLoyaltyCode stores code only when the user has none yet.
// ErrLoyaltyAssigned means no row was updated; ErrDuplicate means another user holds code.
func (r *UserRepo) UpdateLoyaltyCode(ctx context.Context, email, code string) error {
	const q = `UPDATE users SET loyalty_card_id = $2 WHERE email = $1 AND loyalty_card_id IS NULL`
	res, err := r.db.ExecContext(ctx, q, email, code)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update loyalty code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update loyalty code: %w", err)
	}
	if n == 0 {
		return ErrLoyaltyAssigned
	}
	return nil
}
