package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrChallengeNotFound covers unknown or expired challenge ids and any classic token that cannot be resolved.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrProfileNotFound is returned when the identity provider has no user for a session handle.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrContentBlocked indicates the question generator refused the topic.
	ErrContentBlocked = errors.New("generated content was blocked, try a different topic")
	// ErrInvalidState is returned when a game action does not apply to the current status.
	ErrInvalidState = errors.New("action not allowed in current game state")
	// ErrAlreadyAnswered indicates the current question already has an answer.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrOptionUnavailable indicates an out-of-range or hidden option was chosen.
	ErrOptionUnavailable = errors.New("option not available")
	// ErrWagerLocked is returned when a wager is accepted without sign-in and a connected wallet.
	ErrWagerLocked = errors.New("sign in and connect a wallet to accept the wager")
	// ErrUnauthenticated is returned when a player token is missing or invalid.
	ErrUnauthenticated = errors.New("invalid or missing player token")
	// ErrChallengeIDTaken is returned by challenge stores when an id is already held by a live entry.
	ErrChallengeIDTaken = errors.New("challenge id already in use")
)

// ValidationError describes malformed input at a boundary (generator output, challenge fields).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
