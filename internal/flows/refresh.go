package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/store"
	"go.uber.org/zap"
)

// RefreshFailureKind classifies where a refresh attempt stopped.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureRateLimited
	RefreshFailureForbidden
	RefreshFailureLookup
	RefreshFailureDecode
	RefreshFailureVersionMismatch
	RefreshFailureVerify
	RefreshFailureSubjectMismatch
	RefreshFailureHashMismatch
	RefreshFailureHashCompare
	RefreshFailureIssue
	RefreshFailureHashNew
	RefreshFailureConflict
	RefreshFailurePersist
	RefreshFailureInactive
)

var refreshFailureNames = [...]string{
	RefreshFailureNone:            "none",
	RefreshFailureRateLimited:     "rate_limited",
	RefreshFailureForbidden:       "forbidden",
	RefreshFailureLookup:          "lookup",
	RefreshFailureDecode:          "decode",
	RefreshFailureVersionMismatch: "version_mismatch",
	RefreshFailureVerify:          "verify",
	RefreshFailureSubjectMismatch: "subject_mismatch",
	RefreshFailureHashMismatch:    "hash_mismatch",
	RefreshFailureHashCompare:     "hash_compare",
	RefreshFailureIssue:           "issue",
	RefreshFailureHashNew:         "hash_new",
	RefreshFailureConflict:        "conflict",
	RefreshFailurePersist:         "persist",
	RefreshFailureInactive:        "inactive",
}

func (k RefreshFailureKind) String() string {
	if k >= 0 && int(k) < len(refreshFailureNames) {
		return refreshFailureNames[k]
	}
	return fmt.Sprintf("refresh_failure(%d)", int(k))
}

// RequiresRevocation reports whether the session must be revoked before the
// failure is returned. Throttled calls and users without a live session are
// rejected without touching stored state.
func (k RefreshFailureKind) RequiresRevocation() bool {
	switch k {
	case RefreshFailureNone, RefreshFailureRateLimited, RefreshFailureForbidden:
		return false
	default:
		return true
	}
}

// RefreshResult is the outcome of RunRefresh. On success Pair holds the rotated
// tokens and Version the new epoch. On failure Err is the caller-facing error
// and Cause the underlying one.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Cause   error
	UserID  string
	Version int64
	Pair    jwt.Pair

	// Revoked is set when the compensating revocation succeeded. RevokeErr
	// holds its error when it did not.
	Revoked   bool
	RevokeErr error
}

// OK reports whether the refresh succeeded.
func (r RefreshResult) OK() bool { return r.Failure == RefreshFailureNone }

// RunRefresh validates the presented refresh token against the stored session
// and rotates it to the next epoch. Any failure that could indicate a stolen or
// replayed token revokes the user's session before returning.
func RunRefresh(ctx context.Context, userID, refreshToken string, deps Deps) RefreshResult {
	if !deps.ready() {
		return RefreshResult{Failure: RefreshFailureLookup, Err: deps.Errors.EngineNotReady, Cause: deps.Errors.EngineNotReady, UserID: userID}
	}
	deps.normalize()

	start := deps.Now()
	res := evaluateRefresh(ctx, userID, refreshToken, &deps)
	res.UserID = userID

	if res.Failure.RequiresRevocation() {
		compensate(ctx, &res, &deps)
	}
	deps.Observe(deps.Metrics.RefreshLatency, deps.Now().Sub(start))
	recordRefresh(ctx, res, &deps)
	return res
}

func evaluateRefresh(ctx context.Context, userID, token string, deps *Deps) RefreshResult {
	reject := func(kind RefreshFailureKind, public, cause error) RefreshResult {
		if cause == nil {
			cause = public
		}
		return RefreshResult{Failure: kind, Err: public, Cause: cause}
	}

	if deps.RefreshLimiter != nil {
		if err := deps.RefreshLimiter.CheckRefresh(ctx, userID); err != nil {
			return reject(RefreshFailureRateLimited, deps.Errors.RefreshRateLimited, err)
		}
	}

	// 1. A live session must exist.
	user, err := deps.Store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return reject(RefreshFailureForbidden, deps.Errors.Forbidden, err)
		}
		return reject(RefreshFailureLookup, err, err)
	}
	if !user.HasSession() {
		return reject(RefreshFailureForbidden, deps.Errors.Forbidden, nil)
	}
	// A deactivated user keeps no lineage, even one started before deactivation.
	if !user.IsActive {
		return reject(RefreshFailureInactive, deps.Errors.Forbidden, errors.New("user is inactive"))
	}

	// 2. Cheap epoch check before paying for signature verification.
	unverified, err := deps.Tokens.DecodeUnverified(token)
	if err != nil {
		return reject(RefreshFailureDecode, deps.Errors.RefreshTokenInvalid, err)
	}
	if unverified.TokenVersion != user.TokenVersion {
		return reject(RefreshFailureVersionMismatch, deps.Errors.RefreshTokenExpired,
			fmt.Errorf("token version %d, stored %d", unverified.TokenVersion, user.TokenVersion))
	}

	// 3. Signature and expiry.
	claims, err := deps.Tokens.ParseRefresh(token)
	if err != nil {
		return reject(RefreshFailureVerify, deps.Errors.RefreshTokenInvalid, err)
	}
	if claims.Subject != user.ID {
		return reject(RefreshFailureSubjectMismatch, deps.Errors.RefreshTokenInvalid, errors.New("token subject does not match user"))
	}

	// 4. The token must be the one most recently issued.
	ok, err := deps.Hasher.Verify(password.TokenDigest(token), user.RefreshTokenHash)
	if err != nil {
		return reject(RefreshFailureHashCompare, deps.Errors.RefreshTokenInvalid, err)
	}
	if !ok {
		return reject(RefreshFailureHashMismatch, deps.Errors.RefreshTokenInvalid, nil)
	}

	// 5. Rotate to the next epoch, conditional on nobody having moved it.
	next := user.TokenVersion + 1
	pair, err := deps.Tokens.IssuePair(user.ID, user.Email, next)
	if err != nil {
		return reject(RefreshFailureIssue, wrap(deps.Errors.TokenSigning, err), err)
	}
	hash, err := deps.Hasher.Hash(password.TokenDigest(pair.RefreshToken))
	if err != nil {
		return reject(RefreshFailureHashNew, fmt.Errorf("hash refresh token: %w", err), err)
	}

	_, err = deps.Store.SetSession(ctx, user.ID, user.TokenVersion, store.Session{
		RefreshTokenHash: hash,
		TokenVersion:     next,
	})
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		return reject(RefreshFailureConflict, fmt.Errorf("%w: %w", deps.Errors.RefreshTokenExpired, deps.Errors.SessionConflict), err)
	case errors.Is(err, store.ErrNotFound):
		return reject(RefreshFailureForbidden, deps.Errors.Forbidden, err)
	case err != nil:
		return reject(RefreshFailurePersist, err, err)
	}

	return RefreshResult{Failure: RefreshFailureNone, Version: next, Pair: pair}
}

// compensate revokes the session. It runs even if the caller has gone away;
// the store gateway still bounds it by the configured timeout.
func compensate(ctx context.Context, res *RefreshResult, deps *Deps) {
	after, err := deps.Store.Revoke(context.WithoutCancel(ctx), res.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return
		}
		res.RevokeErr = err
		deps.Log.Warn("compensating revocation failed",
			zap.String("user_id", res.UserID),
			zap.Stringer("failure", res.Failure),
			zap.Error(err),
		)
		return
	}

	res.Revoked = true
	res.Version = after.TokenVersion
	deps.MetricInc(deps.Metrics.SessionRevoked)
	deps.EmitAudit(ctx, deps.Events.SessionRevoked, true, res.UserID, nil, func() map[string]string {
		return map[string]string{"reason": "refresh_" + res.Failure.String()}
	})
}

func recordRefresh(ctx context.Context, res RefreshResult, deps *Deps) {
	switch res.Failure {
	case RefreshFailureNone:
		deps.MetricInc(deps.Metrics.RefreshSuccess)
		deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, res.UserID, nil, nil)
		return
	case RefreshFailureRateLimited:
		deps.MetricInc(deps.Metrics.RefreshRateLimited)
		deps.EmitAudit(ctx, deps.Events.RefreshRateLimited, false, res.UserID, res.Err, nil)
		return
	case RefreshFailureVersionMismatch:
		deps.MetricInc(deps.Metrics.RefreshVersionMismatch)
	case RefreshFailureHashMismatch:
		deps.MetricInc(deps.Metrics.RefreshHashMismatch)
	case RefreshFailureConflict:
		deps.MetricInc(deps.Metrics.RefreshConflict)
	}

	deps.MetricInc(deps.Metrics.RefreshFailure)
	fields := []zap.Field{
		zap.String("user_id", res.UserID),
		zap.Stringer("failure", res.Failure),
		zap.Bool("revoked", res.Revoked),
		zap.NamedError("cause", res.Cause),
	}
	if res.RevokeErr != nil {
		fields = append(fields, zap.NamedError("revoke_error", res.RevokeErr))
	}
	deps.Log.Debug("refresh rejected", fields...)
	deps.EmitAudit(ctx, deps.Events.RefreshRejected, false, res.UserID, res.Err, func() map[string]string {
		return map[string]string{
			"failure":       res.Failure.String(),
			"revoked":       fmt.Sprint(res.Revoked),
			"revoke_failed": fmt.Sprint(res.RevokeErr != nil),
		}
	})
}
