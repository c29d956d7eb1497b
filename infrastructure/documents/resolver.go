package documents

import (
	"context"
	"errors"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// Resolver implements ports.CitationResolver on top of a DocumentLookup.
type Resolver struct {
	lookup ports.DocumentLookup
	logger *zerolog.Logger
}

var _ ports.CitationResolver = (*Resolver)(nil)

// NewResolver returns a resolver that searches lookup.
func NewResolver(lookup ports.DocumentLookup, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve returns one citation text per docID. Collections are searched in
// order and the first hit wins. A collection without an index file counts
// as a miss.
func (r *Resolver) Resolve(ctx context.Context, docIDs, collections []string) ([]domain.ResolvedCitation, error) {
	out := make([]domain.ResolvedCitation, 0, len(docIDs))
	for _, docID := range docIDs {
		doc, err := r.find(ctx, docID, collections)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.ResolvedCitation{
			DocumentID: docID,
			Text:       domain.FormatDocument(doc.Title, doc.Text),
		})
	}
	return out, nil
}

func (r *Resolver) find(ctx context.Context, docID string, collections []string) (ports.Document, error) {
	for _, c := range collections {
		doc, ok, err := r.lookup.Lookup(ctx, c, docID)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				r.logger.Debug().Str("collection", c).Str("doc_id", docID).Err(err).Msg("collection index missing")
				continue
			}
			return ports.Document{}, err
		}
		if ok {
			return doc, nil
		}
	}
	return ports.Document{}, domain.NewCitationError(docID, collections, domain.ErrUnresolvedCitation)
}
