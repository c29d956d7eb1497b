package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// Evaluator scores one report.
type Evaluator interface {
	Evaluate(ctx context.Context, report domain.Report) (*domain.ReportResult, error)
}

// BatchOptions configures a BatchRunner.
type BatchOptions struct {
	// BatchSize is the number of reports evaluated at once. Values below 1
	// are treated as 1.
	BatchSize int
	// RequestIDs restricts the run to these reports when non-empty.
	RequestIDs []string
	Logger     *zerolog.Logger
	Metrics    ports.MetricsCollector
}

// BatchOutcome holds the results of a run in input order.
type BatchOutcome struct {
	Results []domain.ReportResult
	Failed  []domain.FailedReport
	// Skipped counts reports left out by the request ID filter.
	Skipped int
}

// BatchRunner evaluates independent reports concurrently. A failing or
// panicking report is recorded and never affects the others.
type BatchRunner struct {
	evaluator Evaluator
	decoder   *ReportDecoder
	batchSize int
	include   map[string]struct{}
	logger    *zerolog.Logger
	metrics   ports.MetricsCollector
}

// NewBatchRunner returns a runner around evaluator.
func NewBatchRunner(evaluator Evaluator, opts BatchOptions) *BatchRunner {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Metrics == nil {
		opts.Metrics = ports.NoopMetrics{}
	}
	var include map[string]struct{}
	if len(opts.RequestIDs) > 0 {
		include = make(map[string]struct{}, len(opts.RequestIDs))
		for _, id := range opts.RequestIDs {
			include[id] = struct{}{}
		}
	}
	return &BatchRunner{
		evaluator: evaluator,
		decoder:   NewReportDecoder(),
		batchSize: max(opts.BatchSize, 1),
		include:   include,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
}

type reportOutcome struct {
	result  *domain.ReportResult
	failed  *domain.FailedReport
	skipped bool
}

// Run evaluates raws and returns the successes and failures in input
// order. The error is non-nil only when ctx ends before the run completes.
func (b *BatchRunner) Run(ctx context.Context, raws []RawReport) (BatchOutcome, error) {
	start := time.Now()
	workers := min(b.batchSize, max(len(raws), 1))
	b.logger.Info().Int("reports", len(raws)).Int("workers", workers).Msg("batch started")

	outcomes := make([]reportOutcome, len(raws))
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for i, raw := range raws {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcomes[i] = b.runOne(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()

	var out BatchOutcome
	for _, o := range outcomes {
		switch {
		case o.skipped:
			out.Skipped++
		case o.result != nil:
			out.Results = append(out.Results, *o.result)
		case o.failed != nil:
			out.Failed = append(out.Failed, *o.failed)
		}
	}

	b.metrics.RecordLatency("batch_run", time.Since(start), nil)
	b.logger.Info().
		Int("succeeded", len(out.Results)).
		Int("failed", len(out.Failed)).
		Int("skipped", out.Skipped).
		Dur("elapsed", time.Since(start)).
		Msg("batch finished")

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("batch interrupted: %w", err)
	}
	return out, nil
}

func (b *BatchRunner) runOne(ctx context.Context, raw RawReport) (out reportOutcome) {
	reportID := peekRequestID(raw.Data)

	defer func() {
		if p := recover(); p != nil {
			out = reportOutcome{failed: b.fail(reportID, raw, fmt.Errorf("panic: %v", p), string(debug.Stack()))}
		}
	}()

	if ctx.Err() != nil {
		return reportOutcome{failed: b.fail(reportID, raw, ctx.Err(), "")}
	}

	report, err := b.decoder.Decode(raw.Data)
	if err != nil {
		return reportOutcome{failed: b.fail(reportID, raw, fmt.Errorf("line %d: %w", raw.Line, err), "")}
	}
	if b.include != nil {
		if _, ok := b.include[report.RequestID]; !ok {
			return reportOutcome{skipped: true}
		}
	}

	result, err := b.evaluator.Evaluate(ctx, report)
	if err != nil {
		return reportOutcome{failed: b.fail(report.RequestID, raw, err, "")}
	}
	b.metrics.RecordCounter("reports_total", 1, map[string]string{"status": "success"})
	return reportOutcome{result: result}
}

func (b *BatchRunner) fail(reportID string, raw RawReport, err error, stack string) *domain.FailedReport {
	b.metrics.RecordCounter("reports_total", 1, map[string]string{"status": "failed"})
	b.logger.Error().Err(err).Str("request_id", reportID).Int("line", raw.Line).Msg("report failed")

	traceback := stack
	if traceback == "" {
		traceback = errorChain(err)
	}
	return &domain.FailedReport{
		ReportID:   reportID,
		Error:      err.Error(),
		Traceback:  traceback,
		ReportData: reportData(raw.Data),
	}
}

// errorChain lists an error and each error it wraps, outermost first.
func errorChain(err error) string {
	var sb strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&sb, "%s%T: %s\n", strings.Repeat("  ", depth), err, err.Error())
		err = errors.Unwrap(err)
	}
	return sb.String()
}

// reportData keeps valid JSON verbatim and quotes anything else.
func reportData(data []byte) json.RawMessage {
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	quoted, _ := json.Marshal(string(data))
	return quoted
}
