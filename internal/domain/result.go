package domain

import "encoding/json"

// Citation relevance markers recorded on cited sentences.
const (
	CitationRelevant    = "RELEVANT"
	CitationNotRelevant = "NOT_RELEVANT"
)

// MatchedNugget records one nugget answer a sentence was judged to convey.
type MatchedNugget struct {
	QuestionText  string          `json:"question_text"`
	MatchedAnswer string          `json:"matched_answer"`
	Importance    json.RawMessage `json:"importance,omitempty"`
}

// Key returns the deduplication key of the match.
func (m MatchedNugget) Key() NuggetKey {
	return NuggetKey{QuestionText: m.QuestionText, Answer: m.MatchedAnswer}
}

// SentenceResult is the outcome of evaluating one sentence.
// A result with a non-empty Error is degraded and excluded from metrics.
type SentenceResult struct {
	Sentence          string           `json:"sentence"`
	SentenceIndex     int              `json:"sentence_index"`
	Citations         []string         `json:"citations"`
	CitationIndices   []string         `json:"citation_indices,omitempty"`
	CitationRelevance string           `json:"citation_relevance,omitempty"`
	Judgments         []JudgmentRecord `json:"judgments"`
	Score             int              `json:"score"`
	MatchedNuggets    []MatchedNugget  `json:"matched_nuggets"`
	Error             string           `json:"error,omitempty"`
}

// Degraded reports whether the sentence failed to evaluate.
func (r SentenceResult) Degraded() bool { return r.Error != "" }

// Metrics are the aggregate scores of one report.
type Metrics struct {
	Precision               float64 `json:"precision"`
	Recall                  float64 `json:"recall"`
	UniqueNuggetsMatched    int     `json:"unique_nuggets_matched"`
	TotalNuggets            int     `json:"total_nuggets"`
	RewardedSentences       int     `json:"rewarded_sentences"`
	PenalizedSentences      int     `json:"penalized_sentences"`
	TotalEvaluatedSentences int     `json:"total_evaluated_sentences"`
}

// ReportResult is the full evaluation record of one report.
type ReportResult struct {
	RequestID         string            `json:"request_id"`
	RunID             string            `json:"run_id"`
	CollectionIDs     []string          `json:"collection_ids"`
	SentenceResults   []SentenceResult  `json:"sentence_results"`
	Metrics           Metrics           `json:"metrics"`
	CitationDocuments map[string]string `json:"citation_documents"`
}

// FailedReport is written for every report that could not be evaluated.
// ReportData holds the original record verbatim when it was valid JSON.
type FailedReport struct {
	ReportID   string          `json:"report_id"`
	Error      string          `json:"error"`
	Traceback  string          `json:"traceback"`
	ReportData json.RawMessage `json:"report_data"`
}

// SummaryMetrics is the subset of Metrics kept in run summaries.
type SummaryMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
}

// SummaryEntry is one topic of a run summary.
type SummaryEntry struct {
	Metrics SummaryMetrics `json:"metrics"`
}

// Summary maps request IDs to their headline metrics for one run.
type Summary map[string]SummaryEntry

// NewSummary builds a run summary from report results. When the same
// request ID appears more than once the last result wins.
func NewSummary(results []ReportResult) Summary {
	s := make(Summary, len(results))
	for _, r := range results {
		s[r.RequestID] = SummaryEntry{Metrics: SummaryMetrics{
			Precision: r.Metrics.Precision,
			Recall:    r.Metrics.Recall,
		}}
	}
	return s
}
