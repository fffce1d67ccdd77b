// Package errs holds the error taxonomy shared by services and transports.
// Refined reasons wrap one of the base kinds, so callers can match either.
package errs

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrRateLimited = errors.New("rate limited")
	ErrForbidden   = errors.New("forbidden")
	ErrTransient   = errors.New("transient store error")
)

var (
	ErrSelfMatch        = fmt.Errorf("%w: cannot match with yourself", ErrValidation)
	ErrQuizIncomplete   = fmt.Errorf("%w: quiz not completed", ErrValidation)
	ErrEmptyContent     = fmt.Errorf("%w: message content is empty", ErrValidation)
	ErrContentTooLong   = fmt.Errorf("%w: message content is too long", ErrValidation)
	ErrDuplicateMatch   = fmt.Errorf("%w: match already exists", ErrConflict)
	ErrInvalidState     = fmt.Errorf("%w: invalid state", ErrConflict)
	ErrMatchNotAccepted = fmt.Errorf("%w: match not accepted", ErrNotFound)
	ErrOwnRequest       = fmt.Errorf("%w: initiator cannot respond to own request", ErrForbidden)
)

type RateLimitedError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

func (e RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Transient marks an infrastructure failure as safe to retry.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// Code returns a stable machine-readable reason. Refined reasons are checked
// before their base kind so callers can tell denials apart.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrQuizIncomplete):
		return "QUIZ_INCOMPLETE"
	case errors.Is(err, ErrSelfMatch):
		return "SELF_MATCH"
	case errors.Is(err, ErrEmptyContent):
		return "EMPTY_CONTENT"
	case errors.Is(err, ErrContentTooLong):
		return "CONTENT_TOO_LONG"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrMatchNotAccepted):
		return "MATCH_NOT_ACCEPTED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrDuplicateMatch):
		return "DUPLICATE_MATCH"
	case errors.Is(err, ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, ErrOwnRequest):
		return "OWN_REQUEST"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrTransient):
		return "TEMPORARILY_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
