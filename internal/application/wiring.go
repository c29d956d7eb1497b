package application

import (
	"fmt"
	"maps"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-nuggeteval/infrastructure/documents"
	"github.com/ahrav/go-nuggeteval/infrastructure/llm"
	"github.com/ahrav/go-nuggeteval/infrastructure/nuggets"
	"github.com/ahrav/go-nuggeteval/infrastructure/oracle"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// breakerMetrics reports circuit breaker transitions through a
// MetricsCollector.
type breakerMetrics struct {
	provider  string
	collector ports.MetricsCollector
}

func (b breakerMetrics) labels() map[string]string { return map[string]string{"provider": b.provider} }

func (b breakerMetrics) RecordState(s llm.CircuitBreakerState) {
	b.collector.RecordGauge("circuit_breaker_state", float64(s), b.labels())
}
func (b breakerMetrics) RecordTrip() {
	b.collector.RecordCounter("circuit_breaker_rejections_total", 1, b.labels())
}
func (b breakerMetrics) RecordSuccess() {
	b.collector.RecordCounter("circuit_breaker_successes_total", 1, b.labels())
}
func (b breakerMetrics) RecordFailure() {
	b.collector.RecordCounter("circuit_breaker_failures_total", 1, b.labels())
}

// ProviderMiddleware returns the transport chain for provider, outermost
// first: tracing, metrics, circuit breaker, rate limiting, then the
// per-request timeout.
func ProviderMiddleware(provider string, cfg *Config, metrics ports.MetricsCollector) []llm.Middleware {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return []llm.Middleware{
		llm.TracingMiddleware(provider),
		llm.MetricsMiddleware(provider, metrics),
		llm.CircuitBreakerMiddlewareWithMetrics(
			cfg.CircuitBreaker.Failures,
			cfg.CircuitBreaker.Cooldown,
			breakerMetrics{provider: provider, collector: metrics},
		),
		llm.RateLimitMiddleware(rate.Limit(cfg.LLM.RateLimitRPS), cfg.LLM.RateLimitBurst),
		llm.TimeoutMiddleware(cfg.LLM.Timeout),
	}
}

// NewOracle builds the LLM client for cfg.Provider and cfg.Model and wraps
// it in a retrying YES/NO oracle.
func NewOracle(cfg *Config, logger *zerolog.Logger, metrics ports.MetricsCollector) (*oracle.LLMOracle, error) {
	providers := maps.Clone(llm.DefaultProviders)
	pc, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, cfg.Provider)
	}
	pc.Middleware = ProviderMiddleware(cfg.Provider, cfg, metrics)
	providers[cfg.Provider] = pc

	registry, err := llm.NewRegistry(llm.RegistryConfig{
		Providers:       providers,
		DefaultProvider: cfg.Provider,
		APIKeys:         cfg.APIKeys(),
		DefaultTimeout:  cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}

	spec := cfg.Provider
	if cfg.Model != "" {
		spec += "/" + cfg.Model
	}
	client, err := registry.GetClient(spec)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	return oracle.New(client, oracle.Config{
		Provider: cfg.Provider,
		Retry:    cfg.Oracle.Retry(),
		Logger:   logger,
		Metrics:  metrics,
	}), nil
}

// Pipeline is a fully wired evaluation stack.
type Pipeline struct {
	Oracle   ports.Oracle
	Nuggets  *nuggets.FileStore
	Index    *documents.Index
	Reports  *ReportEvaluator
	Resolver *documents.Resolver
}

// NewPipeline wires the nugget store, document index, citation resolver and
// evaluators around o.
func NewPipeline(cfg *Config, o ports.Oracle, nuggetsPath string, logger *zerolog.Logger, metrics ports.MetricsCollector) *Pipeline {
	store := nuggets.NewFileStore(nuggetsPath, logger)
	index := documents.NewIndex(cfg.DocsDir, logger)
	resolver := documents.NewResolver(index, logger)
	sentences := NewSentenceEvaluator(o, SentenceEvaluatorConfig{
		Concurrency: cfg.Oracle.Concurrency,
		Logger:      logger,
		Metrics:     metrics,
	})
	return &Pipeline{
		Oracle:   o,
		Nuggets:  store,
		Index:    index,
		Resolver: resolver,
		Reports:  NewReportEvaluator(store, resolver, sentences, logger, metrics),
	}
}
