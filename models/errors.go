package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	// Fetch failures: transport errors, DNS, refused connections and
	// non-success HTTP statuses.
	ErrCodeFetchFailed = "FETCH_FAILED"
	ErrCodeTimeout     = "FETCH_TIMEOUT"

	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeSerialization = "SERIALIZATION_FAILED"
	ErrCodeInvalidState  = "INVALID_STATE"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// Errorf is a helper for building a ScrapeError without a wrapped cause.
func Errorf(code, format string, args ...any) *ScrapeError {
	return &ScrapeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode returns the code of the first ScrapeError in err's chain.
// Errors from outside the application report ErrCodeInternal; nil reports "".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// ErrorMessage returns the human-readable message of err, without the code prefix.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// IsFetchError reports whether err came from fetching the target page.
func IsFetchError(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeFetchFailed, ErrCodeTimeout:
		return true
	}
	return false
}
