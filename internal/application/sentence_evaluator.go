package application

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-nuggeteval/infrastructure/oracle"
	"github.com/ahrav/go-nuggeteval/infrastructure/prompts"
	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

const tracerName = "github.com/ahrav/go-nuggeteval/internal/application"

// DefaultOracleConcurrency bounds the oracle calls issued at once for one
// sentence.
const DefaultOracleConcurrency = 10

// SentenceInput is everything needed to score one sentence.
type SentenceInput struct {
	Text  string
	Index int
	// Citations are the resolved cited documents in citation order.
	Citations []domain.ResolvedCitation
	// Previous holds the texts of the earlier sentences of the report.
	Previous []string
	Nuggets  []domain.Nugget
}

// SentenceEvaluator runs the per-sentence decision procedure against an
// oracle. It holds no per-report state and is safe for concurrent use.
type SentenceEvaluator struct {
	oracle      ports.Oracle
	concurrency int
	logger      *zerolog.Logger
	metrics     ports.MetricsCollector
	tracer      trace.Tracer
}

// SentenceEvaluatorConfig configures a SentenceEvaluator.
type SentenceEvaluatorConfig struct {
	// Concurrency caps in-flight oracle calls per sentence. Zero selects
	// DefaultOracleConcurrency.
	Concurrency int
	Logger      *zerolog.Logger
	Metrics     ports.MetricsCollector
}

// NewSentenceEvaluator returns an evaluator that asks o.
func NewSentenceEvaluator(o ports.Oracle, cfg SentenceEvaluatorConfig) *SentenceEvaluator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultOracleConcurrency
	}
	if cfg.Logger == nil {
		nop := zerolog.Nop()
		cfg.Logger = &nop
	}
	if cfg.Metrics == nil {
		cfg.Metrics = ports.NoopMetrics{}
	}
	return &SentenceEvaluator{
		oracle:      o,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		tracer:      otel.Tracer(tracerName),
	}
}

// Evaluate scores one sentence. Sentences with citations are checked for
// citation relevance and then nugget agreement. Sentences without citations
// go through the negative-assertion, citation-requirement and first-instance
// checks. Any oracle failure is returned; no score is assumed.
func (e *SentenceEvaluator) Evaluate(ctx context.Context, in SentenceInput) (domain.SentenceResult, error) {
	ctx, span := e.tracer.Start(ctx, "sentence.evaluate", trace.WithAttributes(
		attribute.Int("sentence.index", in.Index),
		attribute.Int("sentence.citations", len(in.Citations)),
	))
	defer span.End()

	res := domain.SentenceResult{
		Sentence:       in.Text,
		SentenceIndex:  in.Index,
		Citations:      make([]string, len(in.Citations)),
		Judgments:      []domain.JudgmentRecord{},
		MatchedNuggets: []domain.MatchedNugget{},
	}
	for i, c := range in.Citations {
		res.Citations[i] = c.DocumentID
	}

	var err error
	if len(in.Citations) > 0 {
		err = e.evaluateCited(ctx, in, &res)
	} else {
		err = e.evaluateUncited(ctx, in, &res)
	}
	if err != nil {
		span.RecordError(err)
		return res, err
	}

	span.SetAttributes(attribute.Int("sentence.score", res.Score))
	e.logger.Debug().
		Int("sentence_index", in.Index).
		Int("score", res.Score).
		Int("judgments", len(res.Judgments)).
		Msg("sentence evaluated")
	return res, nil
}

func (e *SentenceEvaluator) evaluateCited(ctx context.Context, in SentenceInput, res *domain.SentenceResult) error {
	data := make([]any, len(in.Citations))
	provenance := make([]string, len(in.Citations))
	for i, c := range in.Citations {
		data[i] = prompts.RelevanceData{Sentence: in.Text, Citation: c.Text}
		provenance[i] = c.DocumentID
	}

	verdicts, err := e.judgeAll(ctx, prompts.Relevance, data, provenance, res)
	if err != nil {
		return err
	}
	if slices.Contains(verdicts, domain.VerdictNo) {
		res.CitationRelevance = domain.CitationNotRelevant
		res.Score = -1
		return nil
	}
	res.CitationRelevance = domain.CitationRelevant

	var candidates []candidate
	seen := make(map[domain.NuggetKey]struct{})
	for _, c := range in.Citations {
		candidates = appendCandidates(candidates, seen, domain.FilterNuggets(in.Nuggets, c.DocumentID), c.DocumentID)
	}

	matches, err := e.matchNuggets(ctx, in.Text, candidates, res)
	if err != nil {
		return err
	}
	res.Score = matches
	return nil
}

func (e *SentenceEvaluator) evaluateUncited(ctx context.Context, in SentenceInput, res *domain.SentenceResult) error {
	negative, err := e.judge(ctx, prompts.RequiresNegative, prompts.SentenceData{Sentence: in.Text}, res)
	if err != nil {
		return err
	}
	if negative.Yes() {
		candidates := appendCandidates(nil, make(map[domain.NuggetKey]struct{}), in.Nuggets, "")
		matches, err := e.matchNuggets(ctx, in.Text, candidates, res)
		if err != nil {
			return err
		}
		if matches == 0 {
			res.Score = -1
		} else {
			res.Score = matches
		}
		return nil
	}

	needsCitation, err := e.judge(ctx, prompts.RequiresCitation, prompts.SentenceData{Sentence: in.Text}, res)
	if err != nil {
		return err
	}
	if !needsCitation.Yes() {
		res.Score = 0
		return nil
	}

	// With nothing before it the claim is new by definition.
	if len(in.Previous) == 0 {
		res.Score = -1
		return nil
	}
	first, err := e.judge(ctx, prompts.FirstInstance, prompts.FirstInstanceData{Sentence: in.Text, Previous: in.Previous}, res)
	if err != nil {
		return err
	}
	if first.Yes() {
		res.Score = -1
	} else {
		res.Score = 0
	}
	return nil
}

// candidate is one (question, answer) pair to check for agreement.
type candidate struct {
	nugget     domain.Nugget
	answer     string
	provenance string
}

// appendCandidates adds every gold answer of nuggets not already in seen.
func appendCandidates(dst []candidate, seen map[domain.NuggetKey]struct{}, nuggets []domain.Nugget, provenance string) []candidate {
	for _, n := range nuggets {
		for _, a := range n.GoldAnswers {
			key := domain.NuggetKey{QuestionText: n.QuestionText, Answer: a.Text}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			dst = append(dst, candidate{nugget: n, answer: a.Text, provenance: provenance})
		}
	}
	return dst
}

// matchNuggets asks for agreement on every candidate and records each YES
// as a match. Candidates are distinct, so the count is the number of
// distinct matches.
func (e *SentenceEvaluator) matchNuggets(ctx context.Context, sentence string, candidates []candidate, res *domain.SentenceResult) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	data := make([]any, len(candidates))
	provenance := make([]string, len(candidates))
	for i, c := range candidates {
		data[i] = prompts.AgreementData{Sentence: sentence, Question: c.nugget.QuestionText, Answer: c.answer}
		provenance[i] = c.provenance
	}

	verdicts, err := e.judgeAll(ctx, prompts.NuggetAgreement, data, provenance, res)
	if err != nil {
		return 0, err
	}

	matches := 0
	for i, v := range verdicts {
		if !v.Yes() {
			continue
		}
		c := candidates[i]
		res.MatchedNuggets = append(res.MatchedNuggets, domain.MatchedNugget{
			QuestionText:  c.nugget.QuestionText,
			MatchedAnswer: c.answer,
			Importance:    slices.Clone(c.nugget.Info.Importance),
		})
		matches++
	}
	return matches, nil
}

func (e *SentenceEvaluator) judge(ctx context.Context, p prompts.Prompt, data any, res *domain.SentenceResult) (domain.Verdict, error) {
	verdicts, err := e.judgeAll(ctx, p, []any{data}, []string{""}, res)
	if err != nil {
		return "", err
	}
	return verdicts[0], nil
}

// judgeAll renders one user prompt per data item, asks them concurrently
// and appends the judgments in input order.
func (e *SentenceEvaluator) judgeAll(ctx context.Context, p prompts.Prompt, data []any, provenance []string, res *domain.SentenceResult) ([]domain.Verdict, error) {
	users := make([]string, len(data))
	for i, d := range data {
		u, err := p.Render(d)
		if err != nil {
			return nil, err
		}
		users[i] = u
	}

	verdicts, err := oracle.JudgeAll(ctx, e.oracle, p.System, users, e.concurrency)
	if err != nil {
		return nil, fmt.Errorf("%s judgment: %w", p.Type, err)
	}

	evaluator := e.oracle.Identity()
	for i, v := range verdicts {
		res.Judgments = append(res.Judgments, domain.NewJudgment(p.Type, v, evaluator, provenance[i]))
		e.metrics.RecordCounter("judgments_total", 1, map[string]string{
			"judgment_type": p.Type.String(),
			"verdict":       strings.ToLower(string(v)),
		})
	}
	return verdicts, nil
}
