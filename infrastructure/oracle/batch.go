package oracle

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-nuggeteval/internal/domain"
	"github.com/ahrav/go-nuggeteval/internal/ports"
)

// JudgeAll asks the same system question once per user prompt with at most
// limit calls in flight. Verdicts are returned in prompt order. The first
// failure cancels the remaining calls and is returned.
func JudgeAll(ctx context.Context, o ports.Oracle, systemPrompt string, userPrompts []string, limit int) ([]domain.Verdict, error) {
	verdicts := make([]domain.Verdict, len(userPrompts))
	if len(userPrompts) == 0 {
		return verdicts, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, prompt := range userPrompts {
		g.Go(func() error {
			v, err := o.Judge(ctx, systemPrompt, prompt)
			if err != nil {
				return err
			}
			verdicts[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}
