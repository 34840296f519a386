// Package natsstore reaches a store.Store that lives in another process over
// NATS request/reply.
//
// Client implements store.Store by sending JSON requests; Responder serves any
// store.Store on the same subjects. Business outcomes travel as error codes in
// the reply envelope so the client can hand back the store sentinels unchanged.
package natsstore

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/store"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "gosession.users"

const (
	opFindByEmail = "find_by_email"
	opFindByID    = "find_by_id"
	opCreate      = "create"
	opSetSession  = "set_session"
	opRevoke      = "revoke"
)

var allOps = []string{opFindByEmail, opFindByID, opCreate, opSetSession, opRevoke}

const (
	codeNotFound        = "not_found"
	codeEmailTaken      = "email_taken"
	codeVersionConflict = "version_conflict"
	codeBadRequest      = "bad_request"
	codeInternal        = "internal"
)

// ErrRemote is returned when the responder reports an internal failure or the
// reply cannot be understood.
var ErrRemote = errors.New("remote user store failure")

type request struct {
	ID              string         `json:"id,omitempty"`
	Email           string         `json:"email,omitempty"`
	User            *store.NewUser `json:"user,omitempty"`
	ExpectedVersion int64          `json:"expectedVersion,omitempty"`
	Session         *store.Session `json:"session,omitempty"`
}

type replyError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type reply struct {
	User  *store.User `json:"user,omitempty"`
	Error *replyError `json:"error,omitempty"`
}

func subject(prefix, op string) string {
	return prefix + "." + op
}

func encodeError(err error) *replyError {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &replyError{Code: codeNotFound}
	case errors.Is(err, store.ErrEmailTaken):
		return &replyError{Code: codeEmailTaken}
	case errors.Is(err, store.ErrVersionConflict):
		return &replyError{Code: codeVersionConflict}
	default:
		// Internal detail stays on the responder side.
		return &replyError{Code: codeInternal}
	}
}

func decodeError(e *replyError) error {
	switch e.Code {
	case codeNotFound:
		return store.ErrNotFound
	case codeEmailTaken:
		return store.ErrEmailTaken
	case codeVersionConflict:
		return store.ErrVersionConflict
	case codeBadRequest:
		return fmt.Errorf("%w: bad request: %s", ErrRemote, e.Message)
	default:
		return fmt.Errorf("%w: %s", ErrRemote, e.Code)
	}
}
