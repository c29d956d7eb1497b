package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-nuggeteval/internal/domain"
)

// Test that our interfaces can be implemented correctly

type mockLLMClient struct{ model string }

func (m *mockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	return "YES", nil
}

func (m *mockLLMClient) EstimateTokens(text string) (int, error) { return len(text) / 4, nil }

func (m *mockLLMClient) GetModel() string { return m.model }

type fixedOracle struct{ verdict domain.Verdict }

func (o fixedOracle) Judge(context.Context, string, string) (domain.Verdict, error) {
	return o.verdict, nil
}

func (o fixedOracle) Identity() string { return "fixed/" + string(o.verdict) }

type mapLookup map[string]Document

func (m mapLookup) Lookup(_ context.Context, collectionID, docID string) (Document, bool, error) {
	d, ok := m[collectionID+"/"+docID]
	return d, ok, nil
}

func TestInterfaceImplementations(t *testing.T) {
	ctx := context.Background()

	t.Run("LLMClient", func(t *testing.T) {
		var client LLMClient = &mockLLMClient{model: "test-model"}

		resp, err := client.Complete(ctx, "prompt", map[string]any{"temperature": 0.0})
		require.NoError(t, err)
		assert.Equal(t, "YES", resp)
		assert.Equal(t, "test-model", client.GetModel())
	})

	t.Run("Oracle", func(t *testing.T) {
		var oracle Oracle = fixedOracle{verdict: domain.VerdictNo}

		v, err := oracle.Judge(ctx, "system", "user")
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictNo, v)
		assert.Equal(t, "fixed/NO", oracle.Identity())
	})

	t.Run("DocumentLookup", func(t *testing.T) {
		var lookup DocumentLookup = mapLookup{"c1/D1": {Title: "T", Text: "body"}}

		doc, ok, err := lookup.Lookup(ctx, "c1", "D1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "T", doc.Title)

		_, ok, err = lookup.Lookup(ctx, "c2", "D1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NoopMetrics", func(t *testing.T) {
		var m MetricsCollector = NoopMetrics{}
		assert.NotPanics(t, func() {
			m.RecordLatency("op", time.Second, nil)
			m.RecordCounter("c", 1, nil)
			m.RecordGauge("g", 1, nil)
			m.RecordHistogram("h", 1, nil)
		})
	})
}
