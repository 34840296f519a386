package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgInvalidTextRepresent = "22P02"
	userColumns            = `id::text, email, first_name, last_name, password_hash, COALESCE(refresh_token_hash, ''), token_version, is_active, created_at, updated_at`
)

var _ store.Store = (*UserStore)(nil)

type UserStore struct {
	db *DB
}

func NewUserStore(db *DB) *UserStore { return &UserStore{db: db} }

const (
	qUserInsert = `
INSERT INTO users (email, password_hash, first_name, last_name, token_version, is_active)
VALUES ($1, $2, $3, $4, 0, TRUE)
RETURNING ` + userColumns + `;`

	qUserByID = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1;`

	qUserByEmail = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1;`

	qUserSetSession = `
UPDATE users
SET refresh_token_hash = NULLIF($3, ''),
    token_version      = $4,
    updated_at         = NOW()
WHERE id = $1 AND token_version = $2
RETURNING ` + userColumns + `;`

	qUserRevoke = `
UPDATE users
SET refresh_token_hash = NULL,
    token_version      = token_version + 1,
    updated_at         = NOW()
WHERE id = $1
RETURNING ` + userColumns + `;`

	qUserExists = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1);`

	qUserSetActive = `
UPDATE users
SET is_active  = $2,
    updated_at = NOW()
WHERE id = $1;`
)

func (r *UserStore) FindByEmail(ctx context.Context, email string) (*store.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanUser(r.db.Pool.QueryRow(ctx, qUserByEmail, store.NormalizeEmail(email)), "user by email")
}

func (r *UserStore) FindByID(ctx context.Context, id string) (*store.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanUser(r.db.Pool.QueryRow(ctx, qUserByID, id), "user by id")
}

func (r *UserStore) Create(ctx context.Context, in store.NewUser) (*store.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	row := r.db.Pool.QueryRow(ctx, qUserInsert, store.NormalizeEmail(in.Email), in.PasswordHash, in.FirstName, in.LastName)
	u, err := scanUser(row, "user insert")
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, store.ErrEmailTaken
		}
		return nil, err
	}
	return u, nil
}

func (r *UserStore) SetSession(ctx context.Context, id string, expectedVersion int64, next store.Session) (*store.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	u, err := scanUser(
		r.db.Pool.QueryRow(ctx, qUserSetSession, id, expectedVersion, next.RefreshTokenHash, next.TokenVersion),
		"user set session",
	)
	if !errors.Is(err, store.ErrNotFound) {
		return u, err
	}

	// Zero rows: either the user is gone or the version moved.
	var exists bool
	if err := r.db.Pool.QueryRow(ctx, qUserExists, id).Scan(&exists); err != nil {
		if isInvalidID(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("user exists: %w", err)
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrVersionConflict
}

func (r *UserStore) Revoke(ctx context.Context, id string) (*store.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	return scanUser(r.db.Pool.QueryRow(ctx, qUserRevoke, id), "user revoke")
}

// SetActive flips the active flag of an existing user.
func (r *UserStore) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qUserSetActive, id, active)
	if err != nil {
		if isInvalidID(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("user set active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row, op string) (*store.User, error) {
	var u store.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.RefreshTokenHash, &u.TokenVersion, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// isInvalidID reports whether err is Postgres rejecting a malformed uuid.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresent
}
