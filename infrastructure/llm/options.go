package llm

import (
	"fmt"
	"net/url"
	"time"
)

// Valid ranges for common request parameters.
const (
	MinTemperature = 0.0
	// MaxTemperature is 2.0 to accommodate providers like Gemini.
	MaxTemperature = 2.0
	MinTopP        = 0.0
	MaxTopP        = 1.0

	// DefaultMaxTokens is used when a request does not set max_tokens.
	DefaultMaxTokens = 1024

	MinTimeout = 1 * time.Second
	MaxTimeout = 10 * time.Minute
)

// ExtractOptionalInt reads an int option, falling back to defaultVal when the
// key is missing, has the wrong type, or fails validator.
func ExtractOptionalInt(opts map[string]any, key string, defaultVal int, validator func(int) bool) int {
	return extractOptional(opts, key, defaultVal, validator)
}

// ExtractOptionalString reads a string option the same way.
func ExtractOptionalString(opts map[string]any, key string, defaultVal string, validator func(string) bool) string {
	return extractOptional(opts, key, defaultVal, validator)
}

// ExtractOptionalFloat64 reads a float64 option the same way.
func ExtractOptionalFloat64(opts map[string]any, key string, defaultVal float64, validator func(float64) bool) float64 {
	return extractOptional(opts, key, defaultVal, validator)
}

func extractOptional[T any](opts map[string]any, key string, defaultVal T, validator func(T) bool) T {
	val, ok := opts[key]
	if !ok {
		return defaultVal
	}
	typed, ok := val.(T)
	if !ok {
		return defaultVal
	}
	if validator != nil && !validator(typed) {
		return defaultVal
	}
	return typed
}

// IsPositiveInt returns true if the integer is greater than 0.
func IsPositiveInt(val int) bool { return val > 0 }

// IsNonEmptyString returns true if the string is not empty.
func IsNonEmptyString(val string) bool { return val != "" }

// IsValidTemperature checks the range [0.0, 2.0].
func IsValidTemperature(val float64) bool { return val >= MinTemperature && val <= MaxTemperature }

// IsValidTopP checks the range [0.0, 1.0].
func IsValidTopP(val float64) bool { return val >= MinTopP && val <= MaxTopP }

// ValidateBaseURL validates and normalizes a base URL. An empty string is
// valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, but got: %q", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}
	return parsedURL.String(), nil
}

// ValidateTimeout clamps a positive timeout into [MinTimeout, MaxTimeout].
// Zero or negative means use the default.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	return min(max(timeout, MinTimeout), MaxTimeout)
}

// ClampFloat64 clamps val to [lo, hi].
func ClampFloat64(val, lo, hi float64) float64 { return min(max(val, lo), hi) }
