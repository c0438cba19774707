package nlg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/CTAG07/nlg/pkg/ngram"
)

// predict draws the token that follows history.
//
// For order > 1 the candidates are the n-grams whose oldest Order-1 tokens
// match history. If there are none the whole table is used, i.e. the model
// backs off to a unigram model instead of failing on an unseen event. With
// order 1 the whole table is always used.
func (g *Generator) predict(ctx context.Context, history ngram.NGram) (string, error) {
	var working []Entry
	var err error

	if g.order > 1 {
		working, err = g.table.Scope(ctx, history)
		if err != nil {
			return "", fmt.Errorf("could not look up history '%s': %w", history, err)
		}
		if len(working) == 0 {
			g.logger.DebugContext(ctx, "Unseen history, using unigram model",
				slog.String("history", history.String()),
			)
		}
	}

	if len(working) == 0 {
		working, err = g.table.Entries(ctx)
		if err != nil {
			return "", fmt.Errorf("could not read table: %w", err)
		}
	}

	if len(working) == 0 {
		return "", ErrEmptyModel
	}

	return g.sample(working), nil
}

// sample picks an entry with probability proportional to its count and returns
// its newest token. The counts of working are overwritten with running totals.
func (g *Generator) sample(working []Entry) string {
	total := cumulate(working)
	choice := g.src.IntN(total) + 1
	for _, entry := range working {
		if choice <= entry.Count {
			return entry.Gram.Last()
		}
	}
	// Unreachable while IntN honours its contract.
	return working[len(working)-1].Gram.Last()
}

// cumulate replaces every count with the sum of the counts up to and
// including it, and returns the grand total.
func cumulate(entries []Entry) int {
	total := 0
	for i := range entries {
		total += entries[i].Count
		entries[i].Count = total
	}
	return total
}
