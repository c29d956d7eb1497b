package application

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// ReportEvaluator scores every sentence of a report in order and folds the
// results into precision and recall.
type ReportEvaluator struct {
	nuggets   ports.NuggetSource
	resolver  ports.CitationResolver
	sentences *SentenceEvaluator
	logger    *zerolog.Logger
	metrics   ports.MetricsCollector
	tracer    trace.Tracer
}

// NewReportEvaluator wires a report evaluator. logger and metrics may be nil.
func NewReportEvaluator(
	nuggets ports.NuggetSource,
	resolver ports.CitationResolver,
	sentences *SentenceEvaluator,
	logger *zerolog.Logger,
	metrics ports.MetricsCollector,
) *ReportEvaluator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &ReportEvaluator{
		nuggets:   nuggets,
		resolver:  resolver,
		sentences: sentences,
		logger:    logger,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
	}
}

// Evaluate scores report. Sentences run strictly in order because the
// first-instance check needs the text of every earlier sentence. A sentence
// that fails becomes a degraded result and the report carries on; only a
// nugget store failure or cancellation fails the whole report.
func (r *ReportEvaluator) Evaluate(ctx context.Context, report domain.Report) (*domain.ReportResult, error) {
	ctx, span := r.tracer.Start(ctx, "report.evaluate", trace.WithAttributes(
		attribute.String("report.request_id", report.RequestID),
		attribute.String("report.run_id", report.RunID),
		attribute.Int("report.sentences", len(report.Sentences)),
	))
	defer span.End()
	start := time.Now()

	logger := r.logger.With().Str("request_id", report.RequestID).Str("run_id", report.RunID).Logger()

	set, err := r.nuggetSet(ctx, report.RequestID, &logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	acc := domain.NewMetricsAccumulator()
	docs := domain.NewCitationDocuments()
	texts := report.SentenceTexts()
	results := make([]domain.SentenceResult, 0, len(report.Sentences))

	for i, s := range report.Sentences {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := r.evaluateSentence(ctx, report, i, texts[:i], set.Items, docs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Int("sentence_index", i).Msg("sentence evaluation failed")
			res = degradedResult(s, i, err)
		}

		for _, m := range res.MatchedNuggets {
			set.MarkUsed(m)
		}
		acc.Add(res)
		r.metrics.RecordCounter("sentences_total", 1, map[string]string{"outcome": sentenceOutcome(res)})
		results = append(results, res)
	}

	metrics := acc.Finalize(set.TotalAnswers())
	span.SetAttributes(
		attribute.Float64("report.precision", metrics.Precision),
		attribute.Float64("report.recall", metrics.Recall),
	)
	r.metrics.RecordLatency("report_evaluate", time.Since(start), nil)
	logger.Info().
		Float64("precision", metrics.Precision).
		Float64("recall", metrics.Recall).
		Int("unique_nuggets_matched", metrics.UniqueNuggetsMatched).
		Int("total_nuggets", metrics.TotalNuggets).
		Int("nuggets_used", set.UsedCount()).
		Int("nuggets", len(set.Items)).
		Dur("elapsed", time.Since(start)).
		Msg("report evaluated")

	return &domain.ReportResult{
		RequestID:         report.RequestID,
		RunID:             report.RunID,
		CollectionIDs:     report.CollectionIDs,
		SentenceResults:   results,
		Metrics:           metrics,
		CitationDocuments: docs.Map(),
	}, nil
}

// nuggetSet returns the report's private nugget set. A missing set is not an
// error: the report is scored against nothing and recall is 0.
func (r *ReportEvaluator) nuggetSet(ctx context.Context, requestID string, logger *zerolog.Logger) (domain.NuggetSet, error) {
	set, found, err := r.nuggets.Nuggets(ctx, requestID)
	if err != nil {
		return domain.NuggetSet{}, fmt.Errorf("load nuggets for %s: %w", requestID, err)
	}
	if found {
		return set, nil
	}

	ev := logger.Warn()
	if closest := r.nuggets.Suggest(ctx, requestID); closest != "" {
		ev = ev.Str("closest_query_id", closest)
	}
	ev.Msg("no nugget set for request; evaluating against an empty set")
	return domain.NuggetSet{QueryID: domain.FlexibleID(requestID)}, nil
}

func (r *ReportEvaluator) evaluateSentence(
	ctx context.Context,
	report domain.Report,
	index int,
	previous []string,
	nuggets []domain.Nugget,
	docs *domain.CitationDocuments,
) (domain.SentenceResult, error) {
	s := report.Sentences[index]

	var citations []domain.ResolvedCitation
	if s.HasCitations() {
		resolved, err := r.resolver.Resolve(ctx, s.Citations, report.CollectionIDs)
		if err != nil {
			return domain.SentenceResult{}, err
		}
		citations = resolved
	}

	res, err := r.sentences.Evaluate(ctx, SentenceInput{
		Text:      s.Text,
		Index:     index,
		Citations: citations,
		Previous:  previous,
		Nuggets:   nuggets,
	})
	if err != nil {
		return domain.SentenceResult{}, err
	}

	if len(citations) > 0 {
		res.CitationIndices = make([]string, len(citations))
		for i, c := range citations {
			res.CitationIndices[i] = docs.Intern(c.Text)
		}
	}
	return res, nil
}

func degradedResult(s domain.Sentence, index int, err error) domain.SentenceResult {
	citations := s.Citations
	if citations == nil {
		citations = []string{}
	}
	return domain.SentenceResult{
		Sentence:       s.Text,
		SentenceIndex:  index,
		Citations:      citations,
		Judgments:      []domain.JudgmentRecord{},
		MatchedNuggets: []domain.MatchedNugget{},
		Error:          err.Error(),
	}
}

func sentenceOutcome(res domain.SentenceResult) string {
	switch {
	case res.Degraded():
		return "degraded"
	case res.Score > 0:
		return "rewarded"
	case res.Score < 0:
		return "penalized"
	default:
		return "ignored"
	}
}
