package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Session errors
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrSessionExpired     = fmt.Errorf("session expired")
	ErrRefreshFailed      = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken     = fmt.Errorf("no refresh token available")
	ErrStorageUnavailable = fmt.Errorf("token storage unavailable")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// API errors
	ErrNetworkUnavailable = fmt.Errorf("network unavailable")
	ErrAuthRejected       = fmt.Errorf("authentication rejected")
	ErrValidationFailed   = fmt.Errorf("validation failed")
	ErrServerError        = fmt.Errorf("server error")
	ErrNotFound           = fmt.Errorf("%w: not found", ErrValidationFailed)
	ErrDecode             = fmt.Errorf("malformed response")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitUserError    = 1
	ExitAuthError    = 2
	ExitBackendError = 3
)

// ExitCode maps an error returned from a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrNotAuthenticated),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrAuthRejected),
		errors.Is(err, ErrRefreshFailed),
		errors.Is(err, ErrNoRefreshToken):
		return ExitAuthError
	case errors.Is(err, ErrNetworkUnavailable),
		errors.Is(err, ErrServerError),
		errors.Is(err, ErrDecode),
		errors.Is(err, ErrTimeout):
		return ExitBackendError
	default:
		return ExitUserError
	}
}
