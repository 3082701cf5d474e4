package service

import (
	"errors"
	"fmt"
)

// Sentinel errors of the session engine. Handlers map these onto the API
// error codes; anything else is an internal error.
var (
	// ErrInsufficientQuestions means the selected source pool holds fewer
	// questions than the config requested.
	ErrInsufficientQuestions = errors.New("source pool has fewer questions than requested")
	// ErrInvalidState means an operation was attempted outside its allowed
	// lifecycle states. Correct client wiring never triggers it, so it is
	// logged loudly when it surfaces.
	ErrInvalidState = errors.New("operation not allowed in current session state")
	// ErrSessionNotFound means no persisted session or snapshot exists for
	// the requested id. The caller should offer a fresh session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionNotScored means review was requested before the async
	// scoring transition completed.
	ErrSessionNotScored = errors.New("session not scored yet")
	// ErrSessionActive means the user already has an open session; users
	// hold at most one open session at a time.
	ErrSessionActive = errors.New("another session is already active")
	// ErrInvalidCredentials is returned on failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError rejects a configuration input field. It is handled at the
// boundary and never reaches the state machine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
