package nlg

import (
	"context"
	"log/slog"
	"strings"

	"github.com/CTAG07/nlg/pkg/ngram"
)

// Produce outputs one language instance.
//
// The history starts as Order-1 start markers (a single start marker for a
// unigram model). If the first prediction is the end marker, Blank is
// returned. Otherwise up to MaxSteps further tokens are predicted, each one
// shifted into the history, until the end marker is drawn. Tokens are joined
// with the tokenizer's separator. ErrEmptyModel is returned when nothing has
// been fed yet.
func (g *Generator) Produce(ctx context.Context) (string, error) {
	historyLen := g.order - 1
	if g.order == 1 {
		historyLen = 1
	}
	history := ngram.Repeat(StartToken, historyLen)

	p, err := g.predict(ctx, history)
	if err != nil {
		return "", err
	}
	if p == EndToken {
		g.logger.DebugContext(ctx, "Generation produced a blank instance")
		return Blank, nil
	}

	var builder strings.Builder
	builder.WriteString(p)
	generatedCount := 1

	for step := 0; step < MaxSteps; step++ {
		if g.order > 1 {
			history = history.Shift(p)
		}
		last := p
		p, err = g.predict(ctx, history)
		if err != nil {
			return "", err
		}
		if p == EndToken {
			g.logger.DebugContext(ctx, "Generation terminated by EOC token",
				slog.Int("generated_length", generatedCount),
			)
			return builder.String(), nil
		}
		builder.WriteString(g.tokenizer.Separator(last, p))
		builder.WriteString(p)
		generatedCount++
	}

	g.logger.DebugContext(ctx, "Generation terminated by reaching max steps",
		slog.Int("max_steps", MaxSteps),
		slog.Int("generated_length", generatedCount),
	)
	return builder.String(), nil
}
