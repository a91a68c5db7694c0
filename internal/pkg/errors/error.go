package xerrors

import (
	"errors"
	"fmt"
)

// Common reusable application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrUnauthorized   = errors.New("unauthorized access")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidInput   = errors.New("invalid input")
	ErrConflict       = errors.New("conflict: resource already exists")
	ErrInternal       = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrAuthenticity means a webhook payload failed signature verification.
	ErrAuthenticity = errors.New("payload authenticity verification failed")

	// ErrOutsideServiceArea diverts a checkout from an unserved address to
	// the potential-customer capture path.
	ErrOutsideServiceArea = errors.New("address outside service area")

	// ErrConfiguration means reference data (usually holiday timing fields)
	// is incomplete and the affected record must be skipped, never defaulted.
	ErrConfiguration = errors.New("invalid configuration data")
)

// ConfigurationError identifies a holiday whose timing data is unusable.
// The scheduler skips the holiday and reports it instead of guessing offsets.
type ConfigurationError struct {
	HolidayID int64
	Field     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("holiday %d: missing or invalid %s", e.HolidayID, e.Field)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// Unwrap extracts the underlying wrapped error.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}

// IsRetryable reports whether a webhook processing failure should surface as
// a 500 so the billing provider redelivers the event. Not-found and
// configuration problems are terminal; redelivery cannot fix them.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConfiguration)
}
