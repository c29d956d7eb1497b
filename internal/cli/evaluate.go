package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-nuggeteval/infrastructure/llm"
	"github.com/ahrav/go-nuggeteval/infrastructure/middleware"
	"github.com/ahrav/go-nuggeteval/internal/application"
	"github.com/ahrav/go-nuggeteval/internal/observability"
)

// ErrReportsFailed is returned when a run finished but some reports did not.
var ErrReportsFailed = errors.New("one or more reports failed")

const tracingShutdownTimeout = 5 * time.Second

type evaluateOptions struct {
	batchSize         int
	provider          string
	model             string
	docsDir           string
	requestIDs        []string
	oracleConcurrency int
	maxRetries        int
	metricsAddr       string
	otlpEndpoint      string
}

func newEvaluateCmd(global *globalOptions) *cobra.Command {
	opts := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate <input_file> <nuggets_file> <output_dir>",
		Short: "Evaluate a file of reports against a nugget file",
		Long: `Evaluate reads newline-delimited reports, scores each one against the
nugget set whose query_id equals its request_id, and writes:

  results_{stem}.jsonl         one result per successful report
  failed_reports_{stem}.jsonl  one record per failed report, if any
  summary_{stem}.json          precision and recall per request_id

The exit code is 1 if any report failed.

Example:
  nuggeteval evaluate runs/team_a.jsonl nuggets.jsonl out/
  nuggeteval evaluate runs/team_a.jsonl nuggets.jsonl out/ -p openai -b 20 --request-id 300`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, global, opts, args[0], args[1], args[2])
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.batchSize, "batch-size", "b", 10, "reports evaluated concurrently")
	f.StringVarP(&opts.provider, "model-provider", "p", "together", fmt.Sprintf("oracle provider %v", llm.ProviderNames()))
	f.StringVarP(&opts.model, "model-name", "m", "", "oracle model (default: the provider's default model)")
	f.StringVar(&opts.docsDir, "docs-dir", "neuclir-docs-lookup", "directory of doc_mapping_*.jsonl collection indexes")
	f.StringArrayVar(&opts.requestIDs, "request-id", nil, "only evaluate this request_id (repeatable)")
	f.IntVar(&opts.oracleConcurrency, "oracle-concurrency", 10, "oracle calls in flight per sentence")
	f.IntVar(&opts.maxRetries, "max-retries", 3, "total attempts per oracle judgment")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "", "export traces to this OTLP/gRPC collector")
	return cmd
}

// apply copies explicitly set flags over the loaded configuration.
func (o *evaluateOptions) apply(cmd *cobra.Command, cfg *application.Config) {
	f := cmd.Flags()
	if f.Changed("batch-size") {
		cfg.BatchSize = o.batchSize
	}
	if f.Changed("model-provider") {
		cfg.Provider = o.provider
	}
	if f.Changed("model-name") {
		cfg.Model = o.model
	}
	if f.Changed("docs-dir") {
		cfg.DocsDir = o.docsDir
	}
	if f.Changed("oracle-concurrency") {
		cfg.Oracle.Concurrency = o.oracleConcurrency
	}
	if f.Changed("max-retries") {
		cfg.Oracle.MaxRetries = o.maxRetries
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
	if f.Changed("otlp-endpoint") {
		cfg.OTLPEndpoint = o.otlpEndpoint
	}
}

func runEvaluate(cmd *cobra.Command, global *globalOptions, opts *evaluateOptions, inputPath, nuggetsPath, outputDir string) error {
	cfg, err := application.LoadConfig(global.configFile)
	if err != nil {
		return err
	}
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	batchID := uuid.NewString()
	logger := global.logger(cfg.LogLevel).With().Str("batch_id", batchID).Logger()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdown, err := middleware.SetupTracing(ctx, middleware.TraceConfig{
		ServiceName:    "nuggeteval",
		ServiceVersion: Version,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       true,
		Attributes:     map[string]string{"batch_id": batchID},
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer scancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("trace export shutdown failed")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewPrometheusMetrics(reg)
	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, &logger)
	}

	o, err := application.NewOracle(cfg, &logger, metrics)
	if err != nil {
		return err
	}
	pipeline := application.NewPipeline(cfg, o, nuggetsPath, &logger, metrics)

	raws, err := application.ReadReports(ctx, inputPath)
	if err != nil {
		return err
	}
	logger.Info().
		Str("input", inputPath).
		Str("nuggets", nuggetsPath).
		Str("evaluator", o.Identity()).
		Int("reports", len(raws)).
		Msg("evaluation starting")

	runner := application.NewBatchRunner(pipeline.Reports, application.BatchOptions{
		BatchSize:  cfg.BatchSize,
		RequestIDs: opts.requestIDs,
		Logger:     &logger,
		Metrics:    metrics,
	})
	outcome, runErr := runner.Run(ctx, raws)

	paths, err := application.WriteOutputs(outputDir, application.Stem(inputPath), outcome)
	if err != nil {
		return err
	}
	logger.Info().
		Str("results", paths.Results).
		Str("failed", paths.Failed).
		Str("summary", paths.Summary).
		Msg("outputs written")

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evaluated %d reports: %d succeeded, %d failed, %d skipped\n",
		len(outcome.Results)+len(outcome.Failed), len(outcome.Results), len(outcome.Failed), outcome.Skipped)
	fmt.Fprintf(out, "Summary: %s\n", paths.Summary)

	if runErr != nil {
		return runErr
	}
	if len(outcome.Failed) > 0 {
		return fmt.Errorf("%w: %d failed, see %s", ErrReportsFailed, len(outcome.Failed), paths.Failed)
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *zerolog.Logger) {
	if err := observability.NewMetricsServer(addr, reg, logger).Start(ctx); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
