package testutils

import (
	"context"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// StaticNuggets serves nugget sets from memory.
type StaticNuggets struct {
	Sets map[string]domain.NuggetSet
	// Closest is returned by Suggest for any unknown request.
	Closest string
	// Err, when set, fails every Nuggets call.
	Err error
}

var _ ports.NuggetSource = (*StaticNuggets)(nil)

// NewStaticNuggets indexes sets by query ID.
func NewStaticNuggets(sets ...domain.NuggetSet) *StaticNuggets {
	m := make(map[string]domain.NuggetSet, len(sets))
	for _, s := range sets {
		m[s.QueryID.String()] = s
	}
	return &StaticNuggets{Sets: m}
}

// Nuggets returns a private copy of the set for requestID.
func (s *StaticNuggets) Nuggets(_ context.Context, requestID string) (domain.NuggetSet, bool, error) {
	if s.Err != nil {
		return domain.NuggetSet{}, false, s.Err
	}
	set, ok := s.Sets[requestID]
	if !ok {
		return domain.NuggetSet{}, false, nil
	}
	return set.Clone(), true, nil
}

// Suggest implements ports.NuggetSource.
func (s *StaticNuggets) Suggest(_ context.Context, requestID string) string {
	if _, ok := s.Sets[requestID]; ok {
		return ""
	}
	return s.Closest
}

// StaticResolver resolves citations from a doc ID to text map.
type StaticResolver map[string]string

var _ ports.CitationResolver = StaticResolver(nil)

// Resolve implements ports.CitationResolver.
func (r StaticResolver) Resolve(_ context.Context, docIDs, collections []string) ([]domain.ResolvedCitation, error) {
	out := make([]domain.ResolvedCitation, 0, len(docIDs))
	for _, id := range docIDs {
		text, ok := r[id]
		if !ok {
			return nil, domain.NewCitationError(id, collections, domain.ErrUnresolvedCitation)
		}
		out = append(out, domain.ResolvedCitation{DocumentID: id, Text: text})
	}
	return out, nil
}

// Nugget builds an unscoped nugget with the given answers.
func Nugget(id, question string, answers ...string) domain.Nugget {
	n := domain.Nugget{QuestionID: domain.FlexibleID(id), QuestionText: question}
	for _, a := range answers {
		n.GoldAnswers = append(n.GoldAnswers, domain.NewGoldAnswer(a))
	}
	return n
}

// ScopedNugget builds a nugget with one answer valid only for docs.
func ScopedNugget(id, question, answer string, docs ...string) domain.Nugget {
	return domain.Nugget{
		QuestionID:   domain.FlexibleID(id),
		QuestionText: question,
		GoldAnswers:  []domain.GoldAnswer{domain.NewScopedGoldAnswer(answer, docs...)},
	}
}

// NuggetSet builds a set for queryID.
func NuggetSet(queryID string, items ...domain.Nugget) domain.NuggetSet {
	return domain.NuggetSet{QueryID: domain.FlexibleID(queryID), Items: items}
}
