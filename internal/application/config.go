package application

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-nuggeteval/infrastructure/oracle"
	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// Config holds every runtime setting of an evaluation run.
// Values are layered: struct defaults, then the optional YAML file, then
// the environment. Command-line flags are applied last by the caller.
type Config struct {
	// Provider selects the LLM backend that answers oracle questions.
	Provider string `yaml:"provider" env:"MODEL_PROVIDER" envDefault:"together" validate:"required,oneof=openai anthropic together google stub"`
	// Model overrides the provider's default model when set.
	Model string `yaml:"model" env:"MODEL_NAME"`

	OpenAIAPIKey    string `yaml:"openai_api_key" env:"OPENAI_API_KEY"`
	AnthropicAPIKey string `yaml:"anthropic_api_key" env:"ANTHROPIC_API_KEY"`
	TogetherAPIKey  string `yaml:"together_api_key" env:"TOGETHER_API_KEY"`
	GoogleAPIKey    string `yaml:"google_api_key" env:"GOOGLE_API_KEY"`

	// DocsDir holds the doc_mapping_*.jsonl collection indexes.
	DocsDir string `yaml:"docs_dir" env:"DOCS_DIR" envDefault:"neuclir-docs-lookup" validate:"required"`

	Oracle         OracleConfig         `yaml:"oracle"`
	LLM            LLMConfig            `yaml:"llm"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	LogLevel     string `yaml:"log_level" env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	MetricsAddr  string `yaml:"metrics_addr" env:"METRICS_ADDR"`
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`

	// BatchSize is the number of reports evaluated concurrently.
	BatchSize int `yaml:"batch_size" env:"BATCH_SIZE" envDefault:"10" validate:"min=1"`
}

// OracleConfig bounds retries and per-sentence fan-out of oracle calls.
type OracleConfig struct {
	// MaxRetries is the total number of calls made for one judgment.
	MaxRetries  int           `yaml:"max_retries" env:"ORACLE_MAX_RETRIES" envDefault:"3" validate:"min=1,max=20"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"ORACLE_BASE_DELAY" envDefault:"2s" validate:"min=0"`
	MaxDelay    time.Duration `yaml:"max_delay" env:"ORACLE_MAX_DELAY" envDefault:"30s" validate:"gtefield=BaseDelay"`
	Concurrency int           `yaml:"concurrency" env:"ORACLE_CONCURRENCY" envDefault:"10" validate:"min=1"`
}

// LLMConfig configures the provider transport.
type LLMConfig struct {
	Timeout        time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" envDefault:"60s" validate:"min=0"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps" env:"LLM_RATE_LIMIT_RPS" envDefault:"10" validate:"gt=0"`
	RateLimitBurst int           `yaml:"rate_limit_burst" env:"LLM_RATE_LIMIT_BURST" envDefault:"20" validate:"min=1"`
}

// CircuitBreakerConfig configures the per-client circuit breaker.
type CircuitBreakerConfig struct {
	Failures int           `yaml:"failures" env:"CIRCUIT_BREAKER_FAILURES" envDefault:"5" validate:"min=1"`
	Cooldown time.Duration `yaml:"cooldown" env:"CIRCUIT_BREAKER_COOLDOWN" envDefault:"30s" validate:"min=0"`
}

// noDefaults names a tag no field carries, so a second env pass only
// applies variables that are actually set.
const noDefaults = "envNoDefault"

// LoadConfig reads .env (if present), the YAML file at path (if non-empty)
// and the process environment, then validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, ports.NewConfigError(".env", err)
	}
	return loadConfig(path, env.ToMap(os.Environ()))
}

func loadConfig(path string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		return nil, ports.NewConfigError("defaults", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ports.NewConfigError(path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, ports.NewConfigError(path, fmt.Errorf("parse yaml: %w", err))
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{
		Environment:         environ,
		DefaultValueTagName: noDefaults,
	}); err != nil {
		return nil, ports.NewConfigError("environment", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct constraints and reports every violation.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ports.NewConfigError("config", err)
	}
	verr := domain.NewValidationError("config")
	for _, fe := range fieldErrs {
		verr.AddError(fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, verr)
}

// APIKeys returns the configured keys by provider name, omitting empty ones.
func (c *Config) APIKeys() map[string]string {
	keys := map[string]string{
		"openai":    c.OpenAIAPIKey,
		"anthropic": c.AnthropicAPIKey,
		"together":  c.TogetherAPIKey,
		"google":    c.GoogleAPIKey,
	}
	for k, v := range keys {
		if v == "" {
			delete(keys, k)
		}
	}
	return keys
}

// Retry converts the oracle settings into a retry policy.
func (c OracleConfig) Retry() oracle.RetryConfig {
	return oracle.RetryConfig{
		MaxAttempts:   c.MaxRetries,
		BaseDelay:     c.BaseDelay,
		MaxDelay:      c.MaxDelay,
		JitterPercent: oracle.DefaultJitterPercent,
	}
}
