package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the kinds of failure the harvester distinguishes
type ErrorType string

const (
	ErrorTypeTransport   ErrorType = "transport"
	ErrorTypeHTTPStatus  ErrorType = "http_status"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeParse       ErrorType = "parse"
	ErrorTypePersistence ErrorType = "persistence"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeUnknown     ErrorType = "unknown"
)

var (
	// ErrNoValidProxies is returned when proxy validation leaves an empty pool
	ErrNoValidProxies = errors.New("no valid proxies")
	// ErrNoMapping is returned when a torrent locator does not match the destination template
	ErrNoMapping = errors.New("no mapping for locator")
	// ErrPermanentlyFailed marks a job that used up its whole attempt budget
	ErrPermanentlyFailed = errors.New("job permanently failed")
)

// Error carries a failure kind along with the underlying cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Code != 0 {
			return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
		}
		return fmt.Sprintf("%s error: %s: %v", e.Type, e.Message, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport wraps a network or proxy failure
func Transport(message string, err error) *Error {
	return &Error{Type: ErrorTypeTransport, Message: message, Err: err}
}

// HTTPStatus reports a non-success response status
func HTTPStatus(url string, code int) *Error {
	return &Error{Type: ErrorTypeHTTPStatus, Message: fmt.Sprintf("unexpected status for %s", url), Code: code}
}

// Validation reports a discarded proxy candidate
func Validation(message string, err error) *Error {
	return &Error{Type: ErrorTypeValidation, Message: message, Err: err}
}

// Parse reports missing or malformed structure in fetched content
func Parse(message string, err error) *Error {
	return &Error{Type: ErrorTypeParse, Message: message, Err: err}
}

// Persistence reports a checkpoint or artifact write failure
func Persistence(message string, err error) *Error {
	return &Error{Type: ErrorTypePersistence, Message: message, Err: err}
}

// Config reports an unreadable or invalid configuration or checkpoint
func Config(message string, err error) *Error {
	return &Error{Type: ErrorTypeConfig, Message: message, Err: err}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeHTTPStatus, ErrorTypeUnknown:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error.
// Every failed attempt is retried by the downloader, so this only feeds logging.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, 408, 425, 429:
		return true
	default:
		return statusCode >= 500
	}
}

// IsFatal reports whether err must abort the whole run
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoValidProxies) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	switch TypeOf(err) {
	case ErrorTypeParse, ErrorTypePersistence:
		return true
	default:
		return false
	}
}
