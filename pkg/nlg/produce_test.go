package nlg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestProduce(t *testing.T) {
	g := newTestGenerator(t, 2, WithSource(fixedSource(0)))
	feedAll(t, g, "the cat sat")

	output, err := g.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if output != "the cat sat" {
		t.Errorf("Produce() = %q, want %q", output, "the cat sat")
	}
}

func TestProduceWithSQLTable(t *testing.T) {
	db := setupTestDB(t)
	table := openTestTable(t, db, "produce", 3)
	g := newTestGenerator(t, 3, WithTable(table), WithSource(fixedSource(0)))
	feedAll(t, g, "one fish two fish")

	output, err := g.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if output != "one fish two fish" {
		t.Errorf("Produce() = %q, want %q", output, "one fish two fish")
	}
}

func TestProduceBlank(t *testing.T) {
	g := newTestGenerator(t, 2, WithSource(fixedSource(0)))
	feedAll(t, g, "")

	output, err := g.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if output != Blank {
		t.Errorf("Produce() = %q, want %q", output, Blank)
	}
}

func TestProduceStopsAtMaxSteps(t *testing.T) {
	// "a a" loops on itself: the last bucket after "a" is always "a".
	g := newTestGenerator(t, 2, WithSource(lastBucket{}))
	feedAll(t, g, "a a")

	output, err := g.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	if n := len(strings.Fields(output)); n != MaxSteps+1 {
		t.Errorf("Produce() emitted %d tokens, want %d", n, MaxSteps+1)
	}
}

func TestProduceOrderOne(t *testing.T) {
	g := newTestGenerator(t, 1, WithSource(lastBucket{}))
	feedAll(t, g, "x y")

	// The last bucket of the sorted unigram table is always "y".
	output, err := g.Produce(context.Background())
	if err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
	expected := strings.TrimSpace(strings.Repeat("y ", MaxSteps+1))
	if output != expected {
		t.Errorf("Produce() = %q, want %d copies of y", output, MaxSteps+1)
	}

	g = newTestGenerator(t, 1, WithSource(fixedSource(0)))
	feedAll(t, g, "x y")
	if output, _ = g.Produce(context.Background()); output != Blank {
		t.Errorf("Produce() = %q, want %q", output, Blank)
	}
}

func TestProduceEmptyModel(t *testing.T) {
	g := newTestGenerator(t, 2)
	if _, err := g.Produce(context.Background()); !errors.Is(err, ErrEmptyModel) {
		t.Errorf("expected ErrEmptyModel, got %v", err)
	}
}

func TestProduceDeterministic(t *testing.T) {
	training := strings.Split(createBenchmarkCorpus(), "\n")[:10]

	run := func() []string {
		g := newTestGenerator(t, 2, WithSeed(42))
		feedAll(t, g, training...)
		var outputs []string
		for i := 0; i < 20; i++ {
			output, err := g.Produce(context.Background())
			if err != nil {
				t.Fatalf("Produce() error = %v", err)
			}
			outputs = append(outputs, output)
		}
		return outputs
	}

	first, second := run(), run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("run %d differs: %q vs %q", i, first[i], second[i])
		}
	}
}

func TestProduceOnlyEmitsTrainedTokens(t *testing.T) {
	g := newTestGenerator(t, 3, WithSeed(7))
	feedAll(t, g, "one fish two fish", "red fish blue fish")
	vocab := map[string]bool{"one": true, "two": true, "red": true, "blue": true, "fish": true}

	for i := 0; i < 50; i++ {
		output, err := g.Produce(context.Background())
		if err != nil {
			t.Fatalf("Produce() error = %v", err)
		}
		for _, tok := range strings.Fields(output) {
			if !vocab[tok] {
				t.Errorf("Produce() emitted untrained token %q in %q", tok, output)
			}
		}
	}
}

func BenchmarkProduce(b *testing.B) {
	corpus := strings.Split(createBenchmarkCorpus(), "\n")
	ctx := context.Background()

	for _, order := range []int{1, 2, 3} {
		b.Run(fmt.Sprintf("Order%d", order), func(b *testing.B) {
			g := newTestGenerator(b, order, WithSeed(1))
			feedAll(b, g, corpus...)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				s, err := g.Produce(ctx)
				b.SetBytes(int64(len(s)))
				if err != nil {
					b.Fatalf("Produce() failed: %v", err)
				}
			}
		})
	}
}
