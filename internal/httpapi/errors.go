package httpapi

import (
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

// statusFor maps engine errors to HTTP status and a client-safe message.
// Unknown errors become 500 without detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, goSession.ErrLoginRateLimited),
		errors.Is(err, goSession.ErrRefreshRateLimited):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, goSession.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, goSession.ErrUserNotFound):
		return http.StatusNotFound, goSession.ErrUserNotFound.Error()
	case errors.Is(err, goSession.ErrUserAlreadyExists),
		errors.Is(err, goSession.ErrPasswordPolicy),
		errors.Is(err, goSession.ErrInvalidProfile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, goSession.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, goSession.ErrRefreshTokenExpired.Error()
	case errors.Is(err, goSession.ErrInvalidCredentials),
		errors.Is(err, goSession.ErrForbidden),
		errors.Is(err, goSession.ErrRefreshTokenInvalid),
		errors.Is(err, goSession.ErrSessionExpired),
		errors.Is(err, goSession.ErrSessionConflict),
		errors.Is(err, goSession.ErrTokenInvalid):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, goSession.ErrLogoutFailed):
		return http.StatusInternalServerError, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
