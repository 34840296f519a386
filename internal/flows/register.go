package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/store"
)

// Registration is the profile submitted to RunRegister.
type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RunRegister creates a user at token version 0 and issues its first pair.
func RunRegister(ctx context.Context, in Registration, deps Deps) (jwt.Pair, error) {
	if !deps.ready() {
		return jwt.Pair{}, deps.Errors.EngineNotReady
	}
	deps.normalize()

	email := store.NormalizeEmail(in.Email)
	if !plausibleEmail(email) {
		return jwt.Pair{}, deps.Errors.InvalidProfile
	}
	if len(in.Password) < deps.MinPasswordLength {
		return jwt.Pair{}, deps.Errors.PasswordPolicy
	}

	duplicate := func() (jwt.Pair, error) {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", deps.Errors.UserAlreadyExists, func() map[string]string {
			return map[string]string{"email": email}
		})
		return jwt.Pair{}, deps.Errors.UserAlreadyExists
	}

	if _, err := deps.Store.FindByEmail(ctx, email); err == nil {
		return duplicate()
	} else if !errors.Is(err, store.ErrNotFound) {
		return jwt.Pair{}, err
	}

	pwHash, err := deps.Hasher.Hash(in.Password)
	switch {
	case errors.Is(err, password.ErrPasswordTooLong), errors.Is(err, password.ErrEmptyPassword):
		return jwt.Pair{}, fmt.Errorf("%w: %w", deps.Errors.PasswordPolicy, err)
	case err != nil:
		return jwt.Pair{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := deps.Store.Create(ctx, store.NewUser{
		Email:        email,
		PasswordHash: pwHash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			return duplicate()
		}
		return jwt.Pair{}, err
	}

	pair, hash, err := deps.issue(user, user.TokenVersion)
	if err != nil {
		return jwt.Pair{}, err
	}

	if _, err := deps.Store.SetSession(ctx, user.ID, user.TokenVersion, store.Session{
		RefreshTokenHash: hash,
		TokenVersion:     user.TokenVersion,
	}); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return jwt.Pair{}, deps.Errors.SessionConflict
		}
		return jwt.Pair{}, err
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, user.ID, nil, nil)
	return pair, nil
}

// plausibleEmail rejects inputs that cannot be an address. Deliverability is
// not checked.
func plausibleEmail(email string) bool {
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}
