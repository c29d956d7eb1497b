// Package llm provides a unified client over the LLM providers used as
// judgment oracles, with middleware for rate limiting, timeouts, circuit
// breaking, metrics, and tracing.
//
// Basic usage:
//
//	client, err := llm.NewClient("together", llm.ClientConfig{
//	    APIKey: os.Getenv("TOGETHER_API_KEY"),
//	    Model:  llm.TogetherDefaultModel,
//	    Middleware: []llm.Middleware{
//	        llm.RateLimitMiddleware(10, 20),
//	        llm.CircuitBreakerMiddleware(5, 30*time.Second),
//	    },
//	})
//	reply, err := client.Complete(ctx, prompt, map[string]any{"system": sys, "temperature": 0.0})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// CoreLLM is the minimal interface a provider implements. Middleware wraps
// CoreLLM values.
type CoreLLM interface {
	// DoRequest sends prompt and returns the response text with input and
	// output token counts.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (response string, tokensIn, tokensOut int, err error)

	GetModel() string
	SetModel(model string)
}

// TokenEstimator estimates token counts before a request is made.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds everything needed to build a client.
type ClientConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the provider endpoint. Empty selects the default.
	BaseURL string
	// Timeout bounds the underlying HTTP client. Zero means no timeout.
	Timeout time.Duration
	// TokenEstimator defaults to SimpleTokenEstimator.
	TokenEstimator TokenEstimator
	// Middleware is applied in order; the first entry is outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM to add cross-cutting behavior.
type Middleware func(CoreLLM) CoreLLM

// Client implements ports.LLMClient on top of a middleware-wrapped provider.
type Client struct {
	core      CoreLLM
	estimator TokenEstimator
}

// NewClient builds a client for providerType.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerType)
	}
	if config.APIKey == "" && !keylessProviders[providerType] {
		return nil, ErrEmptyAPIKey
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = &SimpleTokenEstimator{}
	}

	return &Client{core: core, estimator: estimator}, nil
}

var _ ports.LLMClient = (*Client)(nil)

// Complete sends prompt and returns only the response text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	response, _, _, err := c.CompleteWithUsage(ctx, prompt, options)
	return response, err
}

// CompleteWithUsage sends prompt and returns the response with token counts.
func (c *Client) CompleteWithUsage(ctx context.Context, prompt string, options map[string]any) (string, int, int, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// EstimateTokens returns the configured estimator's count for text.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel returns the provider's current model.
func (c *Client) GetModel() string { return c.core.GetModel() }

// SimpleTokenEstimator assumes about four characters per token.
type SimpleTokenEstimator struct{}

// EstimateTokens implements TokenEstimator.
func (e *SimpleTokenEstimator) EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var (
	providerFactories = map[string]ProviderFactory{}
	keylessProviders  = map[string]bool{}
)

// RegisterProviderFactory registers a provider under providerType. It is
// meant to be called from init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

func registerKeylessProvider(providerType string) { keylessProviders[providerType] = true }

// RequiresAPIKey reports whether providerType needs an API key.
func RequiresAPIKey(providerType string) bool { return !keylessProviders[providerType] }

// Providers returns the registered provider names.
func Providers() []string {
	names := make([]string, 0, len(providerFactories))
	for name := range providerFactories {
		names = append(names, name)
	}
	return names
}
