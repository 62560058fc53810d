package cache

import "errors"

var (
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("cache closed")

	// ErrInvalidURL is returned by [NewRedisCache] for a malformed address.
	ErrInvalidURL = errors.New("invalid cache url")
)

// RetryableError marks a transient failure, one that [RetryWithBackoff]
// tries again.
type RetryableError struct{ Err error }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err or anything it wraps was marked with
// [Retryable].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
