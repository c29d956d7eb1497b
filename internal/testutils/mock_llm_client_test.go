package testutils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-nuggeteval/infrastructure/prompts"
	"github.com/ahrav/go-nuggeteval/internal/domain"
)

func TestMockLLMClient_Complete(t *testing.T) {
	tests := []struct {
		name           string
		prompt         string
		expectedResult string
		expectError    bool
	}{
		{name: "first matching pattern wins", prompt: "the sky is blue", expectedResult: "YES"},
		{name: "later pattern", prompt: "grass is green", expectedResult: "yes."},
		{name: "falls back to NO", prompt: "nothing matches here", expectedResult: "NO"},
		{name: "fails with empty prompt", prompt: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewMockLLMClient("test-model",
				MockResponse{Pattern: "sky", Response: "YES"},
				MockResponse{Pattern: "blue", Response: "NO"},
			)
			client.AddResponse(MockResponse{Pattern: "green", Response: "yes."})

			result, err := client.Complete(context.Background(), tt.prompt, nil)

			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedResult, result)
		})
	}
}

func TestMockLLMClient_FailNext(t *testing.T) {
	// Given a client with two queued errors
	client := NewMockLLMClient("m", MockResponse{Pattern: "", Response: "YES"})
	first, second := errors.New("first"), errors.New("second")
	client.FailNext(first, second)

	// When it is called three times
	_, err1 := client.Complete(context.Background(), "p", nil)
	_, err2 := client.Complete(context.Background(), "p", nil)
	out, err3 := client.Complete(context.Background(), "p", map[string]any{"temperature": 0.0})

	// Then the errors come out in order before the response
	assert.ErrorIs(t, err1, first)
	assert.ErrorIs(t, err2, second)
	require.NoError(t, err3)
	assert.Equal(t, "YES", out)
	assert.Len(t, client.Prompts(), 3)
	assert.Equal(t, 0.0, client.LastOptions()["temperature"])
}

func TestMockLLMClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMockLLMClient("m").Complete(ctx, "p", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockLLMClient_EstimateTokens(t *testing.T) {
	client := NewMockLLMClient("m")

	n, err := client.EstimateTokens("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = client.EstimateTokens("ab")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = client.EstimateTokens("abcdefghijkl")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "m", client.GetModel())
}

func TestScriptedOracle(t *testing.T) {
	boom := errors.New("boom")
	o := NewScriptedOracle(
		Yes(domain.JudgmentRequiresNegative, "Sentence: zebra"),
		Fail(domain.JudgmentRequiresCitation, boom, "Sentence: zebra"),
	)
	ctx := context.Background()

	user, err := prompts.RequiresNegative.Render(prompts.SentenceData{Sentence: "zebra"})
	require.NoError(t, err)

	// A rule matches on judgment type and user prompt content.
	v, err := o.Judge(ctx, prompts.RequiresNegative.System, user)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictYes, v)

	// The same text under a different judgment type uses that type's rules.
	user, err = prompts.RequiresCitation.Render(prompts.SentenceData{Sentence: "zebra"})
	require.NoError(t, err)
	_, err = o.Judge(ctx, prompts.RequiresCitation.System, user)
	assert.ErrorIs(t, err, boom)

	// Unmatched questions are answered NO.
	user, err = prompts.RequiresNegative.Render(prompts.SentenceData{Sentence: "okapi"})
	require.NoError(t, err)
	v, err = o.Judge(ctx, prompts.RequiresNegative.System, user)
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictNo, v)

	assert.Equal(t, 2, o.CallCount(domain.JudgmentRequiresNegative))
	assert.Equal(t, 1, o.CallCount(domain.JudgmentRequiresCitation))
	assert.Len(t, o.Calls(), 3)
	assert.Equal(t, ScriptedIdentity, o.Identity())
}

func TestStaticNuggets_ReturnsClones(t *testing.T) {
	src := NewStaticNuggets(NuggetSet("q1", Nugget("1", "Who?", "Ann")))
	ctx := context.Background()

	set, found, err := src.Nuggets(ctx, "q1")
	require.NoError(t, err)
	require.True(t, found)
	set.Items[0].Info.Used = true

	again, _, _ := src.Nuggets(ctx, "q1")
	assert.False(t, again.Items[0].Info.Used)

	_, found, err = src.Nuggets(ctx, "q2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStaticResolver(t *testing.T) {
	r := StaticResolver{"d1": "one"}

	got, err := r.Resolve(context.Background(), []string{"d1"}, []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, []domain.ResolvedCitation{{DocumentID: "d1", Text: "one"}}, got)

	_, err = r.Resolve(context.Background(), []string{"d1", "d2"}, []string{"c"})
	assert.ErrorIs(t, err, domain.ErrUnresolvedCitation)
}
