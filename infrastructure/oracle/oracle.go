// Package oracle turns an LLM client into a strict YES/NO judge.
//
// Replies are parsed strictly, failures are classified into the ports
// sentinel errors, and transient failures are retried with exponential
// backoff and jitter.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// Request options sent with every judgment.
const (
	Temperature = 0.0
	MaxTokens   = 10
)

// Config configures an LLMOracle.
type Config struct {
	// Provider names the backing provider for the oracle identity.
	Provider string
	Retry    RetryConfig
	Logger   *zerolog.Logger
	Metrics  ports.MetricsCollector
}

// LLMOracle implements ports.Oracle over a ports.LLMClient.
// It is safe for concurrent use when the client is.
type LLMOracle struct {
	client   ports.LLMClient
	provider string
	retry    RetryConfig
	logger   *zerolog.Logger
	metrics  ports.MetricsCollector
	sleep    func(context.Context, time.Duration) error
}

var _ ports.Oracle = (*LLMOracle)(nil)

// New creates an oracle that judges with client.
func New(client ports.LLMClient, cfg Config) *LLMOracle {
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &LLMOracle{
		client:   client,
		provider: cfg.Provider,
		retry:    cfg.Retry,
		logger:   logger,
		metrics:  metrics,
		sleep:    sleep,
	}
}

// Identity returns provider/model, or just the model when no provider is set.
func (o *LLMOracle) Identity() string {
	if o.provider == "" {
		return o.client.GetModel()
	}
	return o.provider + "/" + o.client.GetModel()
}

// Judge asks one question and returns the parsed verdict. Transient
// failures and unparseable replies are retried up to the configured number
// of attempts. The returned error is a *ports.OracleError.
func (o *LLMOracle) Judge(ctx context.Context, systemPrompt, userPrompt string) (domain.Verdict, error) {
	start := time.Now()
	defer func() {
		o.metrics.RecordLatency("oracle_judge", time.Since(start), nil)
	}()

	opts := map[string]any{
		"system":      systemPrompt,
		"temperature": Temperature,
		"max_tokens":  MaxTokens,
	}

	attempts := o.retry.attempts()
	var lastErr error
	for attempt := range attempts {
		verdict, err := o.judgeOnce(ctx, userPrompt, opts)
		if err == nil {
			return verdict, nil
		}

		retryable, classified := classify(err)
		lastErr = classified
		if !retryable || attempt == attempts-1 || ctx.Err() != nil {
			return "", o.wrap(attempt+1, lastErr)
		}

		delay := o.retry.delay(attempt)
		o.logger.Warn().
			Err(classified).
			Str("evaluator", o.Identity()).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("oracle call failed, retrying")

		if err := o.sleep(ctx, delay); err != nil {
			return "", o.wrap(attempt+1, fmt.Errorf("retry aborted: %w", err))
		}
	}
	return "", o.wrap(attempts, lastErr)
}

func (o *LLMOracle) judgeOnce(ctx context.Context, userPrompt string, opts map[string]any) (domain.Verdict, error) {
	reply, err := o.client.Complete(ctx, userPrompt, opts)
	if err != nil {
		return "", err
	}
	verdict, err := domain.ParseVerdict(reply)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ports.ErrInvalidResponse, err)
	}
	return verdict, nil
}

func (o *LLMOracle) wrap(attempts int, err error) error {
	return &ports.OracleError{
		Evaluator: o.Identity(),
		Operation: "judge",
		Attempts:  attempts,
		Err:       err,
	}
}

// classify maps a client failure onto the ports sentinels and reports
// whether another attempt may succeed. Cancellation, authentication, and
// malformed requests are final.
func classify(err error) (bool, error) {
	switch {
	case errors.Is(err, context.Canceled):
		return false, err
	case errors.Is(err, ports.ErrAuthenticationFailed), errors.Is(err, ports.ErrBadRequest):
		return false, err
	case errors.Is(err, ports.ErrRateLimited),
		errors.Is(err, ports.ErrTransport),
		errors.Is(err, ports.ErrTimeout),
		errors.Is(err, ports.ErrInvalidResponse):
		return true, err
	case errors.Is(err, context.DeadlineExceeded):
		return true, fmt.Errorf("%w: %w", ports.ErrTimeout, err)
	default:
		return true, fmt.Errorf("%w: %w", ports.ErrTransport, err)
	}
}
