package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
)

// RunLogin verifies credentials and starts a new refresh lineage at the user's
// current token version.
func RunLogin(ctx context.Context, email, plain string, deps Deps) (jwt.Pair, error) {
	if !deps.ready() {
		return jwt.Pair{}, deps.Errors.EngineNotReady
	}
	deps.normalize()

	email = store.NormalizeEmail(email)
	ip := deps.ClientIP(ctx)

	if deps.LoginLimiter != nil {
		if err := deps.LoginLimiter.CheckLogin(ctx, email, ip); err != nil {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", deps.Errors.LoginRateLimited, func() map[string]string {
				return map[string]string{"email": email}
			})
			return jwt.Pair{}, deps.Errors.LoginRateLimited
		}
	}

	fail := func(userID string, err error) (jwt.Pair, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		if deps.LoginLimiter != nil {
			if incErr := deps.LoginLimiter.IncrementLogin(ctx, email, ip); incErr != nil {
				deps.Log.Debug("login attempt not counted", zap.Error(incErr))
			}
		}
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, err, nil)
		return jwt.Pair{}, err
	}

	user, err := deps.Store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail("", deps.Errors.UserNotFound)
		}
		return jwt.Pair{}, err
	}

	ok, err := deps.Hasher.Verify(plain, user.PasswordHash)
	if err != nil {
		deps.Log.Warn("stored password hash unreadable", zap.String("user_id", user.ID), zap.Error(err))
		return fail(user.ID, deps.Errors.InvalidCredentials)
	}
	if !ok || !user.IsActive {
		return fail(user.ID, deps.Errors.InvalidCredentials)
	}

	pair, hash, err := deps.issue(user, user.TokenVersion)
	if err != nil {
		return jwt.Pair{}, err
	}

	_, err = deps.Store.SetSession(ctx, user.ID, user.TokenVersion, store.Session{
		RefreshTokenHash: hash,
		TokenVersion:     user.TokenVersion,
	})
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		return fail(user.ID, deps.Errors.SessionConflict)
	case errors.Is(err, store.ErrNotFound):
		return fail(user.ID, deps.Errors.UserNotFound)
	case err != nil:
		return jwt.Pair{}, err
	}

	if deps.LoginLimiter != nil {
		if err := deps.LoginLimiter.ResetLogin(ctx, email, ip); err != nil {
			deps.Log.Warn("login throttle reset failed", zap.Error(err))
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, nil)
	return pair, nil
}
