package goSession

import "errors"

var (
	// ErrInvalidCredentials is returned when the password does not match or the account is inactive.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned by Register when the email is taken.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the email or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden is returned by Refresh when the user has no active session.
	ErrForbidden = errors.New("access denied")
	// ErrRefreshTokenExpired is returned when the refresh token belongs to an older session epoch.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrRefreshTokenInvalid is returned when the refresh token fails signature, expiry or hash checks.
	ErrRefreshTokenInvalid = errors.New("refresh token invalid")
	// ErrStoreUnavailable marks infrastructure failures of the user store. See StoreError.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSessionConflict is returned when a concurrent write moved the session epoch first.
	ErrSessionConflict = errors.New("session changed concurrently")
	// ErrSessionExpired is returned by Authenticate when the access token predates a revocation.
	ErrSessionExpired = errors.New("session expired")
	// ErrTokenInvalid is returned by Authenticate for malformed, expired or forged access tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenSigning wraps signing-primitive failures.
	ErrTokenSigning = errors.New("token signing failed")
	// ErrPasswordPolicy is returned when a password is too short or too long to hash.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrInvalidProfile is returned by Register when the email cannot be an address.
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrLoginRateLimited   = errors.New("login rate limited")
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrLogoutFailed is returned when the session state after logout is not the expected one.
	ErrLogoutFailed = errors.New("unable to logout")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// StoreError is an infrastructure failure of the user store. Its message names
// only the attempted operation; the cause stays reachable through errors.Is and
// errors.As for logging.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "unable to " + e.Op
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}
