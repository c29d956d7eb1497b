package domain

import (
	"fmt"
	"math"
)

// MetricsAccumulator folds sentence results into report metrics.
// The zero value is not usable; call NewMetricsAccumulator.
type MetricsAccumulator struct {
	matched   map[NuggetKey]struct{}
	rewarded  int
	penalized int
	scored    int
}

// NewMetricsAccumulator returns an empty accumulator.
func NewMetricsAccumulator() *MetricsAccumulator {
	return &MetricsAccumulator{matched: make(map[NuggetKey]struct{})}
}

// Add records one sentence result. Degraded results are ignored.
func (a *MetricsAccumulator) Add(r SentenceResult) {
	if r.Degraded() {
		return
	}
	for _, m := range r.MatchedNuggets {
		a.matched[m.Key()] = struct{}{}
	}
	switch {
	case r.Score > 0:
		a.rewarded++
		a.scored++
	case r.Score < 0:
		a.penalized++
		a.scored++
	}
}

// Finalize computes the report metrics against totalNuggets gold answers.
// Zero denominators yield zero rather than NaN.
func (a *MetricsAccumulator) Finalize(totalNuggets int) Metrics {
	m := Metrics{
		UniqueNuggetsMatched:    len(a.matched),
		TotalNuggets:            totalNuggets,
		RewardedSentences:       a.rewarded,
		PenalizedSentences:      a.penalized,
		TotalEvaluatedSentences: a.scored,
	}
	if totalNuggets > 0 {
		m.Recall = float64(len(a.matched)) / float64(totalNuggets)
	}
	if a.scored > 0 {
		m.Precision = float64(a.rewarded) / float64(a.scored)
	}
	return m
}

// CitationDocuments stores citation texts for one report, deduplicated by
// content. Keys are assigned in first-seen order as citation_0, citation_1, ...
type CitationDocuments struct {
	byText map[string]string
	docs   map[string]string
}

// NewCitationDocuments returns an empty store.
func NewCitationDocuments() *CitationDocuments {
	return &CitationDocuments{
		byText: make(map[string]string),
		docs:   make(map[string]string),
	}
}

// Intern returns the key for text, allocating a new key on first sight.
func (c *CitationDocuments) Intern(text string) string {
	if key, ok := c.byText[text]; ok {
		return key
	}
	key := fmt.Sprintf("citation_%d", len(c.docs))
	c.byText[text] = key
	c.docs[key] = text
	return key
}

// Map returns the key to text mapping.
func (c *CitationDocuments) Map() map[string]string { return c.docs }

// Deviation holds the spread of a topic's metrics across runs.
type Deviation struct {
	PrecisionStd float64 `json:"precision_std"`
	RecallStd    float64 `json:"recall_std"`
}

// TopicMetrics gathers per-topic precision and recall samples across runs.
type TopicMetrics struct {
	order     []string
	precision map[string][]float64
	recall    map[string][]float64
}

// NewTopicMetrics returns an empty collector.
func NewTopicMetrics() *TopicMetrics {
	return &TopicMetrics{
		precision: make(map[string][]float64),
		recall:    make(map[string][]float64),
	}
}

// Add records one run's metrics for a topic. Nil values are skipped.
func (t *TopicMetrics) Add(topic string, precision, recall *float64) {
	if _, ok := t.precision[topic]; !ok {
		t.order = append(t.order, topic)
		t.precision[topic] = nil
		t.recall[topic] = nil
	}
	if precision != nil {
		t.precision[topic] = append(t.precision[topic], *precision)
	}
	if recall != nil {
		t.recall[topic] = append(t.recall[topic], *recall)
	}
}

// Topics returns topics in first-seen order.
func (t *TopicMetrics) Topics() []string { return t.order }

// Deviations returns the population standard deviation per topic.
func (t *TopicMetrics) Deviations() map[string]Deviation {
	out := make(map[string]Deviation, len(t.order))
	for _, topic := range t.order {
		out[topic] = Deviation{
			PrecisionStd: StdDev(t.precision[topic]),
			RecallStd:    StdDev(t.recall[topic]),
		}
	}
	return out
}

// StdDev returns the population standard deviation of values, or 0 when
// fewer than two values are given.
func StdDev(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}
