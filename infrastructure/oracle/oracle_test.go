package oracle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-nuggeteval/infrastructure/llm"
	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

type reply struct {
	text string
	err  error
}

// sequenceClient returns scripted replies in order, repeating the last one.
type sequenceClient struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	opts    []map[string]any
}

func (c *sequenceClient) Complete(_ context.Context, _ string, opts map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts = append(c.opts, opts)
	r := c.replies[min(c.calls, len(c.replies)-1)]
	c.calls++
	return r.text, r.err
}

func (c *sequenceClient) EstimateTokens(text string) (int, error) { return len(text) / 4, nil }

func (c *sequenceClient) GetModel() string { return "m1" }

func (c *sequenceClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestLLMOracle_Judge(t *testing.T) {
	rateLimited := llm.NewProviderError("together", llm.ErrorTypeRateLimit, 429, "slow down", nil)
	authFailed := llm.NewProviderError("together", llm.ErrorTypeAuthentication, 401, "bad key", nil)

	tests := []struct {
		name         string
		replies      []reply
		attempts     int
		wantVerdict  domain.Verdict
		wantErrIs    error
		wantCalls    int
		wantAttempts int
	}{
		{
			name:        "yes",
			replies:     []reply{{text: "YES"}},
			attempts:    3,
			wantVerdict: domain.VerdictYes,
			wantCalls:   1,
		},
		{
			name:        "whitespace and case are normalized",
			replies:     []reply{{text: "  no\n"}},
			attempts:    3,
			wantVerdict: domain.VerdictNo,
			wantCalls:   1,
		},
		{
			name:        "rate limit then success",
			replies:     []reply{{err: rateLimited}, {text: "NO"}},
			attempts:    3,
			wantVerdict: domain.VerdictNo,
			wantCalls:   2,
		},
		{
			name:        "invalid reply is resampled",
			replies:     []reply{{text: "Maybe"}, {text: "YES"}},
			attempts:    3,
			wantVerdict: domain.VerdictYes,
			wantCalls:   2,
		},
		{
			name:         "invalid reply exhausts retries",
			replies:      []reply{{text: "Yes, definitely."}},
			attempts:     3,
			wantErrIs:    ports.ErrInvalidResponse,
			wantCalls:    3,
			wantAttempts: 3,
		},
		{
			name:         "persistent rate limit stops at the cap",
			replies:      []reply{{err: rateLimited}},
			attempts:     3,
			wantErrIs:    ports.ErrRateLimited,
			wantCalls:    3,
			wantAttempts: 3,
		},
		{
			name:         "authentication is not retried",
			replies:      []reply{{err: authFailed}},
			attempts:     3,
			wantErrIs:    ports.ErrAuthenticationFailed,
			wantCalls:    1,
			wantAttempts: 1,
		},
		{
			name:         "opaque error is a transport failure",
			replies:      []reply{{err: errors.New("connection reset by peer")}},
			attempts:     2,
			wantErrIs:    ports.ErrTransport,
			wantCalls:    2,
			wantAttempts: 2,
		},
		{
			name:         "deadline is a timeout",
			replies:      []reply{{err: context.DeadlineExceeded}},
			attempts:     1,
			wantErrIs:    ports.ErrTimeout,
			wantCalls:    1,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &sequenceClient{replies: tt.replies}
			o := New(client, Config{Provider: "together", Retry: fastRetry(tt.attempts)})

			verdict, err := o.Judge(context.Background(), "system", "user")

			assert.Equal(t, tt.wantCalls, client.callCount())
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				var oe *ports.OracleError
				require.ErrorAs(t, err, &oe)
				assert.Equal(t, tt.wantAttempts, oe.Attempts)
				assert.Equal(t, "together/m1", oe.Evaluator)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVerdict, verdict)
		})
	}
}

func TestLLMOracle_SendsDeterministicOptions(t *testing.T) {
	client := &sequenceClient{replies: []reply{{text: "YES"}}}
	o := New(client, Config{Retry: fastRetry(1)})

	_, err := o.Judge(context.Background(), "be strict", "question")
	require.NoError(t, err)

	require.Len(t, client.opts, 1)
	assert.Equal(t, "be strict", client.opts[0]["system"])
	assert.InDelta(t, 0.0, client.opts[0]["temperature"], 0)
	assert.Equal(t, 10, client.opts[0]["max_tokens"])
	assert.Equal(t, "m1", o.Identity(), "identity without provider is the model")
}

func TestLLMOracle_CancellationStopsRetries(t *testing.T) {
	// Given: a client that is always rate limited and a long backoff.
	client := &sequenceClient{replies: []reply{{err: llm.NewProviderError("p", llm.ErrorTypeRateLimit, 429, "", nil)}}}
	o := New(client, Config{Retry: RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	// When: the context is cancelled during the backoff.
	start := time.Now()
	_, err := o.Judge(ctx, "s", "u")

	// Then: the loop stops promptly with a cancellation error.
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, client.callCount())
}

func TestLLMOracle_WithStubProvider(t *testing.T) {
	client, err := llm.NewClient("stub", llm.ClientConfig{Model: "NO"})
	require.NoError(t, err)
	o := New(client, Config{Provider: "stub", Retry: DefaultRetryConfig()})

	verdict, err := o.Judge(context.Background(), "s", "u")

	require.NoError(t, err)
	assert.Equal(t, domain.VerdictNo, verdict)
	assert.Equal(t, "stub/NO", o.Identity())
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, JitterPercent: 0.1}

	tests := []struct {
		attempt int
		nominal time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 30 * time.Second},
		{40, 30 * time.Second},
	}

	for _, tt := range tests {
		for range 20 {
			d := cfg.delay(tt.attempt)
			low := max(time.Duration(float64(tt.nominal)*0.9), cfg.BaseDelay)
			high := time.Duration(float64(tt.nominal) * 1.1)
			assert.GreaterOrEqual(t, d, low, "attempt %d", tt.attempt)
			assert.LessOrEqual(t, d, high, "attempt %d", tt.attempt)
		}
	}

	assert.Equal(t, 1, RetryConfig{}.attempts(), "at least one attempt is made")
}

// countingOracle records peak concurrency and answers by prompt prefix.
type countingOracle struct {
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	failOn   string
}

func (c *countingOracle) Judge(ctx context.Context, _, user string) (domain.Verdict, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if c.failOn != "" && user == c.failOn {
		return "", &ports.OracleError{Evaluator: "x", Operation: "judge", Err: ports.ErrTransport}
	}
	if strings.HasPrefix(user, "y") {
		return domain.VerdictYes, nil
	}
	return domain.VerdictNo, nil
}

func (c *countingOracle) Identity() string { return "counting" }

func TestJudgeAll(t *testing.T) {
	t.Run("order is preserved and concurrency is bounded", func(t *testing.T) {
		o := &countingOracle{delay: 10 * time.Millisecond}
		prompts := []string{"y1", "n2", "y3", "n4", "y5", "n6", "y7", "n8"}

		verdicts, err := JudgeAll(context.Background(), o, "sys", prompts, 3)

		require.NoError(t, err)
		assert.Equal(t, []domain.Verdict{
			domain.VerdictYes, domain.VerdictNo, domain.VerdictYes, domain.VerdictNo,
			domain.VerdictYes, domain.VerdictNo, domain.VerdictYes, domain.VerdictNo,
		}, verdicts)
		assert.LessOrEqual(t, o.peak.Load(), int32(3))
	})

	t.Run("empty input makes no calls", func(t *testing.T) {
		verdicts, err := JudgeAll(context.Background(), &countingOracle{}, "sys", nil, 3)
		require.NoError(t, err)
		assert.Empty(t, verdicts)
	})

	t.Run("first error is returned", func(t *testing.T) {
		o := &countingOracle{delay: time.Millisecond, failOn: "n2"}

		_, err := JudgeAll(context.Background(), o, "sys", []string{"y1", "n2", "y3"}, 0)

		require.ErrorIs(t, err, ports.ErrTransport)
	})
}
