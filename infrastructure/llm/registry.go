package llm

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Registry builds and caches one client per provider/model pair.
// Clients are shared, so middleware state such as rate limiters and circuit
// breakers is process-wide for a given pair.
type Registry struct {
	providers         map[string]ProviderConfig
	apiKeys           map[string]string
	clients           map[string]*Client
	defaultProvider   string
	defaultMiddleware []Middleware
	defaultTimeout    time.Duration
	mu                sync.RWMutex
}

// ProviderConfig describes one provider the registry can build.
type ProviderConfig struct {
	// Type is the registered factory name.
	Type string
	// EnvVar is consulted for the API key when none was supplied directly.
	EnvVar       string
	DefaultModel string
	BaseURL      string
	Middleware   []Middleware
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Providers       map[string]ProviderConfig
	DefaultProvider string
	// APIKeys maps provider names to keys and take precedence over EnvVar.
	APIKeys           map[string]string
	DefaultTimeout    time.Duration
	DefaultMiddleware []Middleware
}

// DefaultProviders lists the oracle providers and their default models.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
	},
	"together": {
		Type:         "together",
		EnvVar:       "TOGETHER_API_KEY",
		DefaultModel: TogetherDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: GoogleDefaultModel,
	},
	"stub": {
		Type:         "stub",
		DefaultModel: StubDefaultModel,
	},
}

// DefaultModel returns the default model of a provider in DefaultProviders.
func DefaultModel(provider string) (string, bool) {
	pc, ok := DefaultProviders[provider]
	return pc.DefaultModel, ok
}

// ProviderNames returns the names in DefaultProviders, sorted.
func ProviderNames() []string {
	names := make([]string, 0, len(DefaultProviders))
	for name := range DefaultProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistry validates config and returns an empty registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}
	if _, exists := config.Providers[config.DefaultProvider]; !exists {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}

	return &Registry{
		providers:         config.Providers,
		apiKeys:           config.APIKeys,
		clients:           make(map[string]*Client),
		defaultProvider:   config.DefaultProvider,
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
	}, nil
}

// GetDefaultClient returns the client for the default provider and model.
func (r *Registry) GetDefaultClient() (*Client, error) {
	return r.GetClient(r.defaultProvider)
}

// GetClient returns the client for "provider" or "provider/model". The model
// part may itself contain slashes, as Together model names do.
func (r *Registry) GetClient(spec string) (*Client, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider name cannot be empty; use GetDefaultClient() for default provider")
	}

	provider, model := r.parseSpec(spec)
	key := provider + "/" + model

	r.mu.RLock()
	if client, exists := r.clients[key]; exists {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[key]; exists {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}
	r.clients[key] = client
	return client, nil
}

// RegisteredClients returns the provider/model keys built so far, sorted.
func (r *Registry) RegisteredClients() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.clients))
	for k := range r.clients {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (r *Registry) parseSpec(spec string) (provider, model string) {
	provider, model, _ = strings.Cut(spec, "/")
	if model == "" {
		if pc, ok := r.providers[provider]; ok {
			model = pc.DefaultModel
		}
	}
	return provider, model
}

func (r *Registry) apiKey(provider string, pc ProviderConfig) string {
	if key := r.apiKeys[provider]; key != "" {
		return key
	}
	if pc.EnvVar != "" {
		return os.Getenv(pc.EnvVar)
	}
	return ""
}

func (r *Registry) createClient(provider, model string) (*Client, error) {
	pc, exists := r.providers[provider]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	apiKey := r.apiKey(provider, pc)
	if apiKey == "" && RequiresAPIKey(pc.Type) {
		return nil, fmt.Errorf("%s environment variable not set for provider %q", pc.EnvVar, provider)
	}

	middleware := append([]Middleware{}, r.defaultMiddleware...)
	middleware = append(middleware, pc.Middleware...)

	return NewClient(pc.Type, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    pc.BaseURL,
		Timeout:    r.defaultTimeout,
		Middleware: middleware,
	})
}
