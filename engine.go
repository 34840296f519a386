package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"go.uber.org/zap"
)

// Engine is the session facade. It is safe for concurrent use once built by
// [Builder.Build]; per-user consistency comes from the store's atomic writes,
// not from locks in the engine.
type Engine struct {
	config   Config
	store    *boundedStore
	tokens   *jwt.Manager
	hasher   password.Hasher
	limiter  *rate.Limiter
	audit    *audit.Dispatcher
	metrics  *Metrics
	log      *zap.Logger
	now      func() time.Time
	flowDeps flows.Deps
}

// Close flushes pending audit events. The store and Redis client belong to
// the caller and are not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login verifies email and password and starts a new refresh lineage at the
// user's current token version. A wrong password mutates nothing.
func (e *Engine) Login(ctx context.Context, email, password string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	return flows.RunLogin(ctx, email, password, e.flowDeps)
}

// Register creates a user at token version 0 and returns its first token pair.
func (e *Engine) Register(ctx context.Context, p Profile) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	return flows.RunRegister(ctx, flows.Registration{
		Email:     p.Email,
		Password:  p.Password,
		FirstName: p.FirstName,
		LastName:  p.LastName,
	}, e.flowDeps)
}

// Refresh exchanges the user's latest refresh token for a new pair at the next
// token version.
//
// Any rejection other than rate limiting or an absent session revokes the
// user's session before the error is returned, so a replayed, forged or stale
// token ends the lineage for the legitimate holder too.
func (e *Engine) Refresh(ctx context.Context, userID, refreshToken string) (TokenPair, error) {
	if e == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	res := flows.RunRefresh(ctx, userID, refreshToken, e.flowDeps)
	if !res.OK() {
		return TokenPair{}, res.Err
	}
	return res.Pair, nil
}

// Logout ends the user's session by advancing the token version and clearing
// the stored refresh hash. Tokens issued before the call never verify again.
func (e *Engine) Logout(ctx context.Context, userID string) (LogoutResult, error) {
	if e == nil {
		return LogoutResult{}, ErrEngineNotReady
	}
	msg, err := flows.RunLogout(ctx, userID, e.flowDeps)
	if err != nil {
		return LogoutResult{}, err
	}
	return LogoutResult{Message: msg}, nil
}

// RevokeAll invalidates every token issued to the user so far. It is
// idempotent in effect and a no-op for unknown users.
func (e *Engine) RevokeAll(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunRevokeAll(ctx, userID, e.flowDeps)
}

// Authenticate verifies an access token and checks its embedded version
// against the stored one.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return flows.RunAuthenticate(ctx, accessToken, e.flowDeps)
}

func (e *Engine) buildFlowDeps() flows.Deps {
	d := flows.Deps{
		Store:             e.store,
		Tokens:            e.tokens,
		Hasher:            e.hasher,
		MinPasswordLength: e.config.Password.MinLength,
		ClientIP:          ClientIPFromContext,
		Now:               e.now,
		MetricInc:         func(id int) { e.metricInc(MetricID(id)) },
		Observe:           func(id int, d time.Duration) { e.metrics.Observe(MetricID(id), d) },
		EmitAudit:         e.emitAudit,
		Log:               e.log,
		Metrics: flows.Metrics{
			LoginSuccess:           int(MetricLoginSuccess),
			LoginFailure:           int(MetricLoginFailure),
			LoginRateLimited:       int(MetricLoginRateLimited),
			RegisterSuccess:        int(MetricRegisterSuccess),
			RegisterDuplicate:      int(MetricRegisterDuplicate),
			RefreshSuccess:         int(MetricRefreshSuccess),
			RefreshFailure:         int(MetricRefreshFailure),
			RefreshVersionMismatch: int(MetricRefreshVersionMismatch),
			RefreshHashMismatch:    int(MetricRefreshHashMismatch),
			RefreshConflict:        int(MetricRefreshConflict),
			RefreshRateLimited:     int(MetricRefreshRateLimited),
			SessionRevoked:         int(MetricSessionRevoked),
			Logout:                 int(MetricLogout),
			AuthenticateFailure:    int(MetricAuthenticateFailure),
			RefreshLatency:         int(MetricRefreshLatency),
			AuthenticateLatency:    int(MetricAuthenticateLatency),
		},
		Events: flows.Events{
			LoginSuccess:        auditEventLoginSuccess,
			LoginFailure:        auditEventLoginFailure,
			LoginRateLimited:    auditEventLoginRateLimited,
			RegisterSuccess:     auditEventRegisterSuccess,
			RegisterDuplicate:   auditEventRegisterDuplicate,
			RefreshSuccess:      auditEventRefreshSuccess,
			RefreshRejected:     auditEventRefreshRejected,
			RefreshRateLimited:  auditEventRefreshRateLimited,
			SessionRevoked:      auditEventSessionRevoked,
			Logout:              auditEventLogout,
			AuthenticateFailure: auditEventAuthenticateFailure,
		},
		Errors: flows.Errors{
			EngineNotReady:      ErrEngineNotReady,
			InvalidCredentials:  ErrInvalidCredentials,
			InvalidProfile:      ErrInvalidProfile,
			UserAlreadyExists:   ErrUserAlreadyExists,
			UserNotFound:        ErrUserNotFound,
			Forbidden:           ErrForbidden,
			RefreshTokenExpired: ErrRefreshTokenExpired,
			RefreshTokenInvalid: ErrRefreshTokenInvalid,
			SessionConflict:     ErrSessionConflict,
			SessionExpired:      ErrSessionExpired,
			TokenInvalid:        ErrTokenInvalid,
			TokenSigning:        ErrTokenSigning,
			PasswordPolicy:      ErrPasswordPolicy,
			LoginRateLimited:    ErrLoginRateLimited,
			RefreshRateLimited:  ErrRefreshRateLimited,
			LogoutFailed:        ErrLogoutFailed,
		},
	}

	// Assign through typed locals: a nil *throttle stored in the interface
	// field would not compare equal to nil inside the flows.
	if t := e.throttle(); t != nil {
		if e.config.Security.EnableLoginThrottle {
			d.LoginLimiter = t
		}
		if e.config.Security.EnableRefreshThrottle {
			d.RefreshLimiter = t
		}
	}
	return d
}

// throttle adapts the Redis limiter to the flows. Only an exhausted window
// rejects a call; a Redis outage is logged and the call proceeds, since the
// store remains the authority on credentials and sessions.
type throttle struct {
	limiter *rate.Limiter
	log     *zap.Logger
}

func (e *Engine) throttle() *throttle {
	if e.limiter == nil {
		return nil
	}
	return &throttle{limiter: e.limiter, log: e.log}
}

func (t *throttle) CheckLogin(ctx context.Context, email, ip string) error {
	return t.filter("login check", t.limiter.CheckLogin(ctx, email, ip))
}

func (t *throttle) IncrementLogin(ctx context.Context, email, ip string) error {
	err := t.limiter.IncrementLogin(ctx, email, ip)
	if errors.Is(err, rate.ErrRateLimited) {
		// The attempt was counted; the next CheckLogin will reject.
		return nil
	}
	return t.filter("login increment", err)
}

func (t *throttle) ResetLogin(ctx context.Context, email, ip string) error {
	return t.filter("login reset", t.limiter.ResetLogin(ctx, email, ip))
}

func (t *throttle) CheckRefresh(ctx context.Context, userID string) error {
	return t.filter("refresh check", t.limiter.CheckRefresh(ctx, userID))
}

func (t *throttle) filter(op string, err error) error {
	if err == nil || errors.Is(err, rate.ErrRateLimited) {
		return err
	}
	t.log.Warn("throttle unavailable", zap.String("op", op), zap.Error(err))
	return nil
}
