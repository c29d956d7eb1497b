// Package domain contains pure, dependency-free domain models and types
// for report evaluation.
package domain

// Report is one generated report submitted for evaluation.
// It is immutable input owned by the caller.
type Report struct {
	RequestID     string     `json:"request_id"`
	RunID         string     `json:"run_id"`
	CollectionIDs []string   `json:"collection_ids"`
	Sentences     []Sentence `json:"sentences"`
}

// SentenceTexts returns the text of every sentence in report order.
func (r Report) SentenceTexts() []string {
	texts := make([]string, len(r.Sentences))
	for i, s := range r.Sentences {
		texts[i] = s.Text
	}
	return texts
}

// Sentence is a single report sentence along with the document IDs it cites.
type Sentence struct {
	Text      string   `json:"text"`
	Citations []string `json:"citations,omitempty"`
}

// HasCitations reports whether the sentence takes the cited branch of evaluation.
func (s Sentence) HasCitations() bool { return len(s.Citations) > 0 }

// ResolvedCitation pairs a cited document ID with its display text.
type ResolvedCitation struct {
	DocumentID string `json:"doc_id"`
	Text       string `json:"text"`
}

// FormatDocument renders a document the way citation texts are shown to
// the oracle.
func FormatDocument(title, text string) string {
	return "Title: " + title + "\n\nContent: " + text
}
