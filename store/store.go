package store

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrVersionConflict is returned by SetSession when the stored token version
	// no longer equals the expected version.
	ErrVersionConflict = errors.New("token version conflict")
)

// User is the stored user record.
type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	PasswordHash     string    `json:"passwordHash"`
	RefreshTokenHash string    `json:"refreshTokenHash,omitempty"`
	TokenVersion     int64     `json:"tokenVersion"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// HasSession reports whether a refresh-token lineage is active.
func (u *User) HasSession() bool {
	return u != nil && u.RefreshTokenHash != ""
}

// Clone returns a copy that shares no memory with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// NewUser is the input for Store.Create.
type NewUser struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
}

// Session is the pair of per-user session fields written atomically.
type Session struct {
	RefreshTokenHash string `json:"refreshTokenHash"`
	TokenVersion     int64  `json:"tokenVersion"`
}

// Store is the user-record accessor used by the engine.
//
// SetSession must apply next only when the stored token version equals
// expectedVersion, in one atomic step. Revoke must increment the token version
// and clear the refresh-token hash in one atomic step.
type Store interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, in NewUser) (*User, error)
	SetSession(ctx context.Context, id string, expectedVersion int64, next Session) (*User, error)
	Revoke(ctx context.Context, id string) (*User, error)
}

// NormalizeEmail lower-cases and trims an email address so every store indexes
// the same key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
