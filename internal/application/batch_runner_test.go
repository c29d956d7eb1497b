package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-nuggeteval/internal/domain"
)

// evaluatorFunc adapts a function to the Evaluator interface.
type evaluatorFunc func(ctx context.Context, r domain.Report) (*domain.ReportResult, error)

func (f evaluatorFunc) Evaluate(ctx context.Context, r domain.Report) (*domain.ReportResult, error) {
	return f(ctx, r)
}

func reportLine(id string) string {
	return fmt.Sprintf(`{"request_id":%q,"run_id":"r","collection_ids":["zho"],"sentences":[{"text":"s"}]}`, id)
}

func raws(lines ...string) []RawReport {
	out := make([]RawReport, len(lines))
	for i, l := range lines {
		out[i] = RawReport{Line: i + 1, Data: []byte(l)}
	}
	return out
}

func echoEvaluator() evaluatorFunc {
	return func(_ context.Context, r domain.Report) (*domain.ReportResult, error) {
		return &domain.ReportResult{RequestID: r.RequestID, RunID: r.RunID}, nil
	}
}

func TestBatchRunner_IsolatesFailures(t *testing.T) {
	// Given a batch with a malformed line, a failing report and a panicking report
	ev := evaluatorFunc(func(_ context.Context, r domain.Report) (*domain.ReportResult, error) {
		switch r.RequestID {
		case "boom":
			return nil, fmt.Errorf("load nuggets for boom: %w", domain.ErrMalformedRecord)
		case "panic":
			panic("unexpected nil")
		}
		return &domain.ReportResult{RequestID: r.RequestID}, nil
	})
	metrics := newRecordingMetrics()
	runner := NewBatchRunner(ev, BatchOptions{BatchSize: 3, Metrics: metrics})

	// When the batch runs
	out, err := runner.Run(context.Background(), raws(
		reportLine("ok-1"),
		`{"request_id":"bad",`,
		reportLine("boom"),
		reportLine("panic"),
		reportLine("ok-2"),
	))

	// Then the healthy reports succeed in input order and the rest are recorded
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "ok-1", out.Results[0].RequestID)
	assert.Equal(t, "ok-2", out.Results[1].RequestID)

	require.Len(t, out.Failed, 3)
	malformed, failed, panicked := out.Failed[0], out.Failed[1], out.Failed[2]

	assert.Equal(t, "unknown", malformed.ReportID)
	assert.Contains(t, malformed.Error, "line 2")
	assert.Contains(t, malformed.Error, "malformed record")
	assert.JSONEq(t, `"{\"request_id\":\"bad\","`, string(malformed.ReportData))

	assert.Equal(t, "boom", failed.ReportID)
	assert.Contains(t, failed.Traceback, "load nuggets for boom")
	assert.Contains(t, failed.Traceback, "  *errors.errorString: malformed record")
	assert.JSONEq(t, reportLine("boom"), string(failed.ReportData))

	assert.Equal(t, "panic", panicked.ReportID)
	assert.Equal(t, "panic: unexpected nil", panicked.Error)
	assert.Contains(t, panicked.Traceback, "goroutine")

	assert.Equal(t, 2.0, metrics.counter("reports_total/success"))
	assert.Equal(t, 3.0, metrics.counter("reports_total/failed"))
	assert.Equal(t, 1, metrics.latency["batch_run"])
}

func TestBatchRunner_ValidationFailure(t *testing.T) {
	runner := NewBatchRunner(echoEvaluator(), BatchOptions{})

	out, err := runner.Run(context.Background(), raws(`{"request_id":"q1","sentences":[]}`))

	require.NoError(t, err)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, "q1", out.Failed[0].ReportID)
	assert.Contains(t, out.Failed[0].Error, "run_id is required")
	assert.Contains(t, out.Failed[0].Error, "collection_ids is required")
	assert.True(t, json.Valid(out.Failed[0].ReportData))
}

func TestBatchRunner_RequestFilter(t *testing.T) {
	runner := NewBatchRunner(echoEvaluator(), BatchOptions{RequestIDs: []string{"b", "c"}})

	out, err := runner.Run(context.Background(), raws(reportLine("a"), reportLine("b"), reportLine("c")))

	require.NoError(t, err)
	assert.Equal(t, 1, out.Skipped)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "b", out.Results[0].RequestID)
	assert.Equal(t, "c", out.Results[1].RequestID)
	assert.Empty(t, out.Failed)
}

func TestBatchRunner_BoundsConcurrency(t *testing.T) {
	// Given an evaluator that tracks how many reports run at once
	var inFlight, peak atomic.Int32
	ev := evaluatorFunc(func(_ context.Context, r domain.Report) (*domain.ReportResult, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return &domain.ReportResult{RequestID: r.RequestID}, nil
	})
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = reportLine(fmt.Sprintf("r%02d", i))
	}

	// When twenty reports run with a batch size of four
	out, err := NewBatchRunner(ev, BatchOptions{BatchSize: 4}).Run(context.Background(), raws(lines...))

	// Then no more than four ever overlap and order is preserved
	require.NoError(t, err)
	require.Len(t, out.Results, 20)
	assert.LessOrEqual(t, peak.Load(), int32(4))
	for i, r := range out.Results {
		assert.Equal(t, fmt.Sprintf("r%02d", i), r.RequestID)
	}
}

func TestBatchRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := NewBatchRunner(echoEvaluator(), BatchOptions{}).Run(ctx, raws(reportLine("a")))

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, out.Results)
}

func TestErrorChain(t *testing.T) {
	base := errors.New("root cause")
	err := fmt.Errorf("outer: %w", base)

	chain := errorChain(err)

	assert.Equal(t, "*fmt.wrapError: outer: root cause\n  *errors.errorString: root cause\n", chain)
}

func TestReportData(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(reportData([]byte(`{"a":1}`))))
	assert.Equal(t, `"oops{"`, string(reportData([]byte(`oops{`))))
}
