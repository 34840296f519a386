package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
)

// TokenIssuer mints and reads token pairs. *jwt.Manager satisfies it.
type TokenIssuer interface {
	IssuePair(subject, email string, version int64) (jwt.Pair, error)
	ParseAccess(token string) (*jwt.Claims, error)
	ParseRefresh(token string) (*jwt.Claims, error)
	DecodeUnverified(token string) (*jwt.Claims, error)
}

type LoginLimiter interface {
	CheckLogin(ctx context.Context, email, ip string) error
	IncrementLogin(ctx context.Context, email, ip string) error
	ResetLogin(ctx context.Context, email, ip string) error
}

type RefreshLimiter interface {
	CheckRefresh(ctx context.Context, userID string) error
}

// Metrics carries the host metric IDs the flows increment.
type Metrics struct {
	LoginSuccess           int
	LoginFailure           int
	LoginRateLimited       int
	RegisterSuccess        int
	RegisterDuplicate      int
	RefreshSuccess         int
	RefreshFailure         int
	RefreshVersionMismatch int
	RefreshHashMismatch    int
	RefreshConflict        int
	RefreshRateLimited     int
	SessionRevoked         int
	Logout                 int
	AuthenticateFailure    int
	RefreshLatency         int
	AuthenticateLatency    int
}

// Events carries the audit event names the flows emit.
type Events struct {
	LoginSuccess        string
	LoginFailure        string
	LoginRateLimited    string
	RegisterSuccess     string
	RegisterDuplicate   string
	RefreshSuccess      string
	RefreshRejected     string
	RefreshRateLimited  string
	SessionRevoked      string
	Logout              string
	AuthenticateFailure string
}

// Errors carries the host sentinel errors returned to callers.
type Errors struct {
	EngineNotReady      error
	InvalidCredentials  error
	InvalidProfile      error
	UserAlreadyExists   error
	UserNotFound        error
	Forbidden           error
	RefreshTokenExpired error
	RefreshTokenInvalid error
	SessionConflict     error
	SessionExpired      error
	TokenInvalid        error
	TokenSigning        error
	PasswordPolicy      error
	LoginRateLimited    error
	RefreshRateLimited  error
	LogoutFailed        error
}

// Deps is built once by the Engine and shared by every flow.
//
// Store is expected to be the Engine's bounded gateway: business sentinels from
// package store come back unchanged and every other error is already an
// infrastructure error safe to hand to the caller.
type Deps struct {
	Store          store.Store
	Tokens         TokenIssuer
	Hasher         password.Hasher
	LoginLimiter   LoginLimiter
	RefreshLimiter RefreshLimiter

	MinPasswordLength int

	ClientIP  func(context.Context) string
	Now       func() time.Time
	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, metadata func() map[string]string)
	Log       *zap.Logger

	Metrics Metrics
	Events  Events
	Errors  Errors
}

func (d *Deps) ready() bool {
	return d != nil && d.Store != nil && d.Tokens != nil && d.Hasher != nil
}

// normalize fills optional hooks with no-ops so flows can call them freely.
func (d *Deps) normalize() {
	if d.ClientIP == nil {
		d.ClientIP = func(context.Context) string { return "" }
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.Observe == nil {
		d.Observe = func(int, time.Duration) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
}

// issue mints a pair at version and returns it with the hash to persist.
func (d *Deps) issue(u *store.User, version int64) (jwt.Pair, string, error) {
	pair, err := d.Tokens.IssuePair(u.ID, u.Email, version)
	if err != nil {
		return jwt.Pair{}, "", wrap(d.Errors.TokenSigning, err)
	}
	hash, err := d.Hasher.Hash(password.TokenDigest(pair.RefreshToken))
	if err != nil {
		return jwt.Pair{}, "", fmt.Errorf("hash refresh token: %w", err)
	}
	return pair, hash, nil
}

func wrap(sentinel, cause error) error {
	if sentinel == nil {
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
