// ABOUTME: Error taxonomy for account and token operations
// ABOUTME: Transport layers map these sentinels to HTTP and gRPC status codes

package accounts

import "errors"

var (
	// ErrInvalidCredentials is returned for every failed login, whatever the cause.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned when an operation requires a principal and none is present.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the principal does not own the target resource.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned when the target resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when storage fails; the operation had no effect.
	ErrUnavailable = errors.New("service unavailable")
)
