package llm

import (
	"context"
	"strings"
)

// StubDefaultModel makes the stub answer YES to every question.
const StubDefaultModel = "YES"

func init() {
	RegisterProviderFactory("stub", newStubProvider)
	registerKeylessProvider("stub")
}

// stubProvider answers every request with its model name. Setting the model
// to YES or NO yields a deterministic oracle that needs no network access.
type stubProvider struct {
	BaseProvider
	tokenCounter *TokenCounter
}

func newStubProvider(config ClientConfig) (CoreLLM, error) {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = StubDefaultModel
	}
	return &stubProvider{
		BaseProvider: BaseProvider{model: model},
		tokenCounter: NewTokenCounter(),
	}, nil
}

// DoRequest returns the configured model name unless ctx is already done.
func (p *stubProvider) DoRequest(ctx context.Context, prompt string, _ map[string]any) (string, int, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, 0, (&ErrorClassifier{Provider: "stub"}).ClassifyContextError(err)
	}
	out := p.GetModel()
	return out, p.tokenCounter.EstimateTokens(prompt), p.tokenCounter.EstimateTokens(out), nil
}
