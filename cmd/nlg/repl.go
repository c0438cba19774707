package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// producer is the part of the generator the prompt loop needs.
type producer interface {
	Produce(ctx context.Context) (string, error)
}

// runInteractive prints one production at a time, asking after each whether
// to continue. Any answer other than "n" continues; end of input stops.
func runInteractive(ctx context.Context, p producer, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		text, err := p.Produce(ctx)
		if err != nil {
			return fmt.Errorf("could not produce text: %w", err)
		}
		_, _ = fmt.Fprintln(out, text)
		_, _ = fmt.Fprint(out, "More (y/n)? ")

		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			break
		}
		if strings.EqualFold(strings.TrimSpace(scanner.Text()), "n") {
			break
		}
	}
	_, _ = fmt.Fprintln(out, "Bye!")
	return scanner.Err()
}
