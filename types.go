package goSession

import (
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
)

// TokenPair is a freshly minted access and refresh token.
type TokenPair = jwt.Pair

// Identity is the verified caller behind an access token, returned by
// [Engine.Authenticate].
type Identity = flows.Identity

// Profile is the input to [Engine.Register].
type Profile struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LogoutResult is returned by [Engine.Logout] on success.
type LogoutResult struct {
	Message string `json:"message"`
}
