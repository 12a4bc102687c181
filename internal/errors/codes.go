package errors

// ErrorCode represents the type of error
type ErrorCode string

const (
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
	ErrTimeout      ErrorCode = "TIMEOUT"
)

// Retryable reports whether an error with this code describes an environment
// hiccup rather than a caller bug
func (c ErrorCode) Retryable() bool {
	return c == ErrUnavailable || c == ErrTimeout
}
