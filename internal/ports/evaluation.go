package ports

import (
	"context"

	"github.com/ahrav/go-nuggeteval/internal/domain"
)

// Oracle answers binary semantic questions about report sentences.
// Implementations must return exactly YES or NO, or a classified error
// wrapping ErrRateLimited, ErrInvalidResponse, ErrTransport or ErrTimeout.
type Oracle interface {
	// Judge asks one question. Retries, if any, happen inside Judge.
	Judge(ctx context.Context, systemPrompt, userPrompt string) (domain.Verdict, error)

	// Identity names the oracle for judgment audit records.
	Identity() string
}

// NuggetSource provides the gold nugget set of a report request.
type NuggetSource interface {
	// Nuggets returns a private copy of the set whose query_id equals
	// requestID. found is false when no set exists; that is not an error.
	Nuggets(ctx context.Context, requestID string) (set domain.NuggetSet, found bool, err error)

	// Suggest returns the known query_id closest to requestID, or "" when
	// nothing is close enough to be a plausible typo.
	Suggest(ctx context.Context, requestID string) string
}

// Document is a looked-up source document.
type Document struct {
	Title string
	Text  string
}

// DocumentLookup finds a document by ID within one collection.
type DocumentLookup interface {
	// Lookup returns the document and true, or false when the collection
	// does not contain docID. An error means the collection itself could
	// not be read.
	Lookup(ctx context.Context, collectionID, docID string) (Document, bool, error)
}

// CitationResolver turns cited document IDs into citation texts.
type CitationResolver interface {
	// Resolve returns exactly one citation per docID, in order, or an
	// error wrapping domain.ErrUnresolvedCitation.
	Resolve(ctx context.Context, docIDs, collections []string) ([]domain.ResolvedCitation, error)
}
