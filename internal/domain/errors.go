package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors that can occur during report evaluation.
var (
	// ErrUnresolvedCitation indicates that a cited document ID was not found
	// in any of the report's collections.
	ErrUnresolvedCitation = errors.New("unresolved citation")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidVerdict indicates that oracle text was neither YES nor NO.
	ErrInvalidVerdict = errors.New("invalid verdict")

	// ErrMalformedRecord indicates that an input record could not be decoded.
	ErrMalformedRecord = errors.New("malformed record")
)

// CitationError reports a document ID that could not be resolved against
// the collections a report was produced from.
type CitationError struct {
	// DocumentID is the cited ID that failed to resolve.
	DocumentID string

	// Collections are the collection IDs that were searched, in order.
	Collections []string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for CitationError.
func (e *CitationError) Error() string {
	return fmt.Sprintf("citation error: doc_id=%s, collections=[%s], err=%v",
		e.DocumentID, strings.Join(e.Collections, ", "), e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *CitationError) Unwrap() error { return e.Err }

// NewCitationError creates a new CitationError with the given details.
func NewCitationError(docID string, collections []string, err error) *CitationError {
	return &CitationError{
		DocumentID:  docID,
		Collections: collections,
		Err:         err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
