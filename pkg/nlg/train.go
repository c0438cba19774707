package nlg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/nlg/pkg/ngram"
)

// Feed inputs one instance of training data. The text is tokenized, padded
// with Order start markers and closed with one end marker; every window of
// Order consecutive tokens then increments its n-gram count. A text of T
// tokens therefore adds T+1 counts, and an empty text adds only the boundary
// n-gram that leads from the start markers straight to the end marker.
// A text whose tokens include StartToken or EndToken is rejected with
// ErrReservedToken and adds nothing.
func (g *Generator) Feed(ctx context.Context, text string) error {
	tokens := g.tokenizer.Tokenize(text)
	for _, tok := range tokens {
		if tok == StartToken || tok == EndToken {
			return fmt.Errorf("%w: %q", ErrReservedToken, tok)
		}
	}

	padded := make([]string, 0, g.order+len(tokens)+1)
	for i := 0; i < g.order; i++ {
		padded = append(padded, StartToken)
	}
	padded = append(padded, tokens...)
	padded = append(padded, EndToken)

	// The first window drops one start marker, so it already holds the first token.
	grams := make([]ngram.NGram, 0, len(tokens)+1)
	for i := 1; i+g.order <= len(padded); i++ {
		grams = append(grams, ngram.New(padded[i:i+g.order]...))
	}

	if err := g.table.Add(ctx, grams...); err != nil {
		return fmt.Errorf("could not store n-grams: %w", err)
	}
	return nil
}

// Train reads r line by line and feeds every line as a separate training
// instance. When a line fails, the lines before it stay trained.
func (g *Generator) Train(ctx context.Context, data io.Reader) error {
	// maxLineLength prevents a single huge line from being buffered without bound
	const maxLineLength = 1 << 20

	scanner := bufio.NewScanner(data)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)

	var lineCount int64
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.Feed(ctx, scanner.Text()); err != nil {
			return fmt.Errorf("line %d: %w", lineCount+1, err)
		}
		lineCount++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not read training data: %w", err)
	}

	g.logger.InfoContext(ctx, "Training completed",
		slog.Int("order", g.order),
		slog.Int64("lines_processed", lineCount),
	)
	return nil
}
