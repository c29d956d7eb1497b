package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCitationError(t *testing.T) {
	tests := []struct {
		name        string
		docID       string
		collections []string
		err         error
		wantMsg     string
	}{
		{
			name:        "single collection",
			docID:       "doc-1",
			collections: []string{"neuclir/1/zh"},
			err:         ErrUnresolvedCitation,
			wantMsg:     "citation error: doc_id=doc-1, collections=[neuclir/1/zh], err=unresolved citation",
		},
		{
			name:        "multiple collections",
			docID:       "doc-2",
			collections: []string{"neuclir/1/fa", "neuclir/1/ru"},
			err:         ErrUnresolvedCitation,
			wantMsg:     "citation error: doc_id=doc-2, collections=[neuclir/1/fa, neuclir/1/ru], err=unresolved citation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCitationError(tt.docID, tt.collections, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Equal(t, tt.docID, err.DocumentID)
			assert.True(t, errors.Is(err, tt.err), "Should unwrap to underlying error")
		})
	}
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("Report")
		err.AddError("missing run_id")

		assert.Equal(t, "validation error for Report: missing run_id", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("Report")
		err.AddError("missing run_id")
		err.AddError("missing sentences")

		assert.Contains(t, err.Error(), "validation errors for Report")
		assert.Len(t, err.Errors, 2, "Should have two errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Config")

		assert.False(t, err.HasErrors(), "Should not have errors")
		assert.Empty(t, err.Errors, "Errors slice should be empty")
	})
}

func TestCommonDomainErrors(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrUnresolvedCitation, "unresolved citation"},
		{ErrEmptyValue, "empty value"},
		{ErrInvalidConfiguration, "invalid configuration"},
		{ErrInvalidVerdict, "invalid verdict"},
		{ErrMalformedRecord, "malformed record"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error(), "Error message mismatch")
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	citationErr := NewCitationError("doc-9", []string{"c1"}, ErrUnresolvedCitation)
	wrapped := fmt.Errorf("resolve sentence 3: %w", citationErr)

	assert.True(t, errors.Is(wrapped, ErrUnresolvedCitation))

	var target *CitationError
	assert.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "doc-9", target.DocumentID)
}
