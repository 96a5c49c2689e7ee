// Package common defines sentinel errors and small helpers shared by the
// blogauth server packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors for failures that are not the caller's fault and
	// do not belong to the public error set (e.g. a signing failure).
	ErrorInternal = errors.New("internal error")

	// Public error set returned by the session service. Nothing else leaves
	// the service boundary.
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrStoreUnavailable    = errors.New("store unavailable")
)
