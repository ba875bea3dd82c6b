package auth

import (
	"errors"
	"fmt"
)

type (
	// FailureReason is the only detail of a failed login that leaves
	// this package. Callers must not distinguish further.
	FailureReason byte

	AuthFailure struct {
		Reason FailureReason
		cause  error
	}

	HashingError struct {
		cause error
	}
)

const (
	InvalidCredentials FailureReason = iota + 1
	Unavailable
)

var (
	ErrInvalidCredentials = AuthFailure{Reason: InvalidCredentials}
	ErrStoreUnavailable   = AuthFailure{Reason: Unavailable}

	ErrSessionInvalid = errors.New("auth: session is not valid")
)

func (r FailureReason) String() string {
	switch r {
	case InvalidCredentials:
		return "invalid_credentials"
	case Unavailable:
		return "unavailable"
	}
	return fmt.Sprintf("reason(%d)", byte(r))
}

func (a AuthFailure) Error() string {
	if a.cause == nil {
		return fmt.Sprintf("auth: login failed, reason %v", a.Reason)
	}
	return fmt.Sprintf("auth: login failed, reason %v, cause %v", a.Reason, a.cause)
}

func (a AuthFailure) Unwrap() error { return a.cause }

// Is matches any AuthFailure with the same reason, ignoring the cause.
func (a AuthFailure) Is(target error) bool {
	t, ok := target.(AuthFailure)
	return ok && t.Reason == a.Reason
}

func (h HashingError) Error() string {
	return fmt.Sprintf("auth: hashing failed, cause %v", h.cause)
}

func (h HashingError) Unwrap() error { return h.cause }

func (h HashingError) Is(target error) bool {
	_, ok := target.(HashingError)
	return ok
}

func failure(reason FailureReason, cause error) AuthFailure {
	return AuthFailure{Reason: reason, cause: cause}
}
