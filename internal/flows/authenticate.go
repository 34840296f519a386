package flows

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/goSession/store"
)

// Identity is the verified caller behind an access token.
type Identity struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	TokenVersion int64  `json:"tokenVersion"`
}

// RunAuthenticate verifies an access token and checks that its epoch still
// matches the stored one, so revocation takes effect at the next request.
func RunAuthenticate(ctx context.Context, accessToken string, deps Deps) (*Identity, error) {
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}
	deps.normalize()

	start := deps.Now()
	defer func() { deps.Observe(deps.Metrics.AuthenticateLatency, deps.Now().Sub(start)) }()

	fail := func(userID string, err error) (*Identity, error) {
		deps.MetricInc(deps.Metrics.AuthenticateFailure)
		deps.EmitAudit(ctx, deps.Events.AuthenticateFailure, false, userID, err, nil)
		return nil, err
	}

	claims, err := deps.Tokens.ParseAccess(accessToken)
	if err != nil {
		return fail("", deps.Errors.TokenInvalid)
	}

	user, err := deps.Store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(claims.Subject, deps.Errors.UserNotFound)
		}
		return nil, err
	}
	if !user.IsActive {
		return fail(user.ID, deps.Errors.Forbidden)
	}
	if claims.TokenVersion != user.TokenVersion {
		return fail(user.ID, deps.Errors.SessionExpired)
	}

	return &Identity{UserID: user.ID, Email: user.Email, TokenVersion: user.TokenVersion}, nil
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
