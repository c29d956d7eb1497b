package llm

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ahrav/go-nuggeteval/internal/ports"
)

func TestErrorClassifier_ClassifyHTTPError(t *testing.T) {
	ec := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		status    int
		want      ErrorType
		retryable bool
	}{
		{401, ErrorTypeAuthentication, false},
		{403, ErrorTypeAuthentication, false},
		{404, ErrorTypeNotFound, false},
		{408, ErrorTypeTimeout, true},
		{422, ErrorTypeBadRequest, false},
		{429, ErrorTypeRateLimit, true},
		{500, ErrorTypeServerError, true},
		{503, ErrorTypeServerError, true},
		{0, ErrorTypeUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			pe := ec.ClassifyHTTPError(tt.status, "msg", nil)
			assert.Equal(t, tt.want, pe.Type)
			assert.Equal(t, tt.retryable, pe.IsRetryable())
			assert.Equal(t, "openai", pe.Provider)
		})
	}
}

type timeoutNetError struct{ timeout bool }

func (e timeoutNetError) Error() string   { return "net" }
func (e timeoutNetError) Timeout() bool   { return e.timeout }
func (e timeoutNetError) Temporary() bool { return false }

var _ net.Error = timeoutNetError{}

func TestErrorClassifier_Classify(t *testing.T) {
	ec := &ErrorClassifier{Provider: "google"}

	assert.Equal(t, ErrorTypeTimeout, ec.Classify(context.DeadlineExceeded).Type)
	assert.Equal(t, ErrorTypeCanceled, ec.Classify(context.Canceled).Type)
	assert.Equal(t, ErrorTypeTimeout, ec.Classify(timeoutNetError{timeout: true}).Type)
	assert.Equal(t, ErrorTypeNetwork, ec.Classify(timeoutNetError{}).Type)
	assert.Equal(t, ErrorTypeUnknown, ec.Classify(errors.New("x")).Type)
}

func TestProviderError_IsPortsSentinel(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    error
	}{
		{ErrorTypeRateLimit, ports.ErrRateLimited},
		{ErrorTypeServerError, ports.ErrTransport},
		{ErrorTypeNetwork, ports.ErrTransport},
		{ErrorTypeTimeout, ports.ErrTimeout},
		{ErrorTypeAuthentication, ports.ErrAuthenticationFailed},
		{ErrorTypeContentPolicy, ports.ErrBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			err := NewProviderError("p", tt.errType, 0, "", nil)
			assert.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, ports.ErrInvalidResponse)
		})
	}

	canceled := NewProviderError("p", ErrorTypeCanceled, 0, "", context.Canceled)
	assert.NotErrorIs(t, canceled, ports.ErrTransport)
	assert.ErrorIs(t, canceled, context.Canceled)
}

func TestProviderError_Error(t *testing.T) {
	err := NewProviderError("together", ErrorTypeRateLimit, 429, "slow down", errors.New("upstream"))
	assert.Equal(t, "together error (HTTP 429) [rate_limit]: slow down: upstream", err.Error())
}
