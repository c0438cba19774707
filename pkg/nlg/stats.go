package nlg

import (
	"context"
	"fmt"

	"github.com/CTAG07/nlg/pkg/ngram"
)

// TableStats holds aggregated statistics for a Generator's frequency table.
type TableStats struct {
	Order          int `json:"order"`           // The order of the model
	Entries        int `json:"entries"`         // The number of distinct n-grams
	TotalFrequency int `json:"total_frequency"` // The sum of all counts; the number of trained windows
	Contexts       int `json:"contexts"`        // The number of distinct histories
	StartingTokens int `json:"starting_tokens"` // The number of n-grams that can start an instance
}

// Stats returns a snapshot of statistics for the frequency table.
func (g *Generator) Stats(ctx context.Context) (TableStats, error) {
	entries, err := g.table.Entries(ctx)
	if err != nil {
		return TableStats{}, fmt.Errorf("could not read table: %w", err)
	}

	stats := TableStats{Order: g.order, Entries: len(entries)}
	contexts := make(map[string]struct{})
	for _, e := range entries {
		stats.TotalFrequency += e.Count
		history := e.Gram.History()
		contexts[encodeContext(history)] = struct{}{}
		if isStart(history) {
			stats.StartingTokens++
		}
	}
	stats.Contexts = len(contexts)
	return stats, nil
}

// isStart reports whether every token of history is a start marker.
func isStart(history ngram.NGram) bool {
	for _, tok := range history.Tokens() {
		if tok != StartToken {
			return false
		}
	}
	return true
}
