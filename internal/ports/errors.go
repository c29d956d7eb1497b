package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransport indicates a network or server-side failure reaching the
	// service.
	ErrTransport = errors.New("transport error")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// service failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrBadRequest indicates that the service rejected the request itself.
	ErrBadRequest = errors.New("bad request")

	// ErrNotFound indicates that a looked-up record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// OracleError is the classified failure of a judgment request.
type OracleError struct {
	// Evaluator identifies the oracle, usually provider/model.
	Evaluator string

	// Operation is the judgment that failed.
	Operation string

	// Attempts is the number of calls made before giving up.
	Attempts int

	// Err is the classified cause. It wraps one of the sentinel errors above.
	Err error

	// RetryAfter is the provider's requested backoff, if any.
	RetryAfter *time.Duration
}

// Error implements the error interface for OracleError.
func (e *OracleError) Error() string {
	msg := fmt.Sprintf("oracle error: evaluator=%s, operation=%s, err=%v", e.Evaluator, e.Operation, e.Err)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(", attempts=%d", e.Attempts)
	}
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(", retry_after=%v", *e.RetryAfter)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *OracleError) Unwrap() error { return e.Err }

// IsRetryable returns true if the failure is transient or may resolve on a
// fresh sample.
func (e *OracleError) IsRetryable() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrTransport) ||
		errors.Is(e.Err, ErrTimeout) ||
		errors.Is(e.Err, ErrInvalidResponse)
}

// NewOracleError creates a new OracleError with the given details.
func NewOracleError(evaluator, operation string, err error) *OracleError {
	return &OracleError{
		Evaluator: evaluator,
		Operation: operation,
		Err:       err,
	}
}

// StoreError represents a failure reading one of the file-backed stores.
type StoreError struct {
	// Store names the store, e.g. "nuggets" or "documents".
	Store string

	// Path is the file involved.
	Path string

	// Line is the 1-based line number for record-level failures, or 0.
	Line int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s store error: path=%s, line=%d, err=%v", e.Store, e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s store error: path=%s, err=%v", e.Store, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError creates a new StoreError with the given details.
func NewStoreError(store, path string, line int, err error) *StoreError {
	return &StoreError{Store: store, Path: path, Line: line, Err: err}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
