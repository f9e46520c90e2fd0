package errors

import (
	"errors"
)

// Rejections and failures shared by the stores, the engine and the adapters.
var (
	ErrInvalidName           = errors.New("invalid player name")
	ErrInvalidProfileID      = errors.New("invalid profile id")
	ErrInvalidCategory       = errors.New("invalid report category")
	ErrTargetAlreadyVerified = errors.New("target already verified")
	ErrStorageUnavailable    = errors.New("storage unavailable")
	ErrNotFound              = errors.New("not found")
	ErrServerNotConfigured   = errors.New("server not configured")
)

// IsRejection reports whether err is a validation or policy rejection, as
// opposed to an infrastructure failure. Rejections never change state.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidProfileID) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrTargetAlreadyVerified)
}
