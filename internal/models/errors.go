package models

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the service layer matches
// exactly one of them with errors.Is.
var (
	ErrValidation       = errors.New("validation error")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrAlreadyExists    = errors.New("already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrRenderFailure    = errors.New("render failure")
	ErrRateLimited      = errors.New("too many requests")
)

// Authentication failures. All of them are ErrUnauthenticated.
var (
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrUnauthenticated)
	ErrTokenMalformed     = fmt.Errorf("%w: token malformed", ErrUnauthenticated)
	ErrIdentityNotFound   = fmt.Errorf("%w: identity not found", ErrUnauthenticated)
	ErrIdentityInactive   = fmt.Errorf("%w: identity inactive", ErrUnauthenticated)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthenticated)
	ErrMissingBearerToken = fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
)

// Validationf returns an ErrValidation with a formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
