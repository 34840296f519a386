package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/goSession/store"
)

// LogoutMessage is returned by RunLogout on success.
const LogoutMessage = "Logout successful"

// RunRevokeAll advances the user's token version and clears the refresh hash,
// invalidating every token issued so far. An unknown user is a no-op.
func RunRevokeAll(ctx context.Context, userID string, deps Deps) error {
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}
	deps.normalize()

	after, err := deps.Store.Revoke(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	deps.MetricInc(deps.Metrics.SessionRevoked)
	deps.EmitAudit(ctx, deps.Events.SessionRevoked, true, userID, nil, func() map[string]string {
		return map[string]string{"reason": "revoke_all", "token_version": itoa(after.TokenVersion)}
	})
	return nil
}

// RunLogout ends the user's session the same way RunRevokeAll does, so tokens
// issued before logout can never verify again even after a later login.
func RunLogout(ctx context.Context, userID string, deps Deps) (string, error) {
	if !deps.ready() {
		return "", deps.Errors.EngineNotReady
	}
	deps.normalize()

	after, err := deps.Store.Revoke(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", deps.Errors.UserNotFound
		}
		return "", err
	}

	// Revoke increments from a non-negative value, so a live result is > 0.
	if after == nil || after.HasSession() || after.TokenVersion <= 0 {
		return "", deps.Errors.LogoutFailed
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, userID, nil, nil)
	return LogoutMessage, nil
}
