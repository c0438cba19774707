package nlg

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/CTAG07/nlg/pkg/ngram"
)

func TestPredictWithinContext(t *testing.T) {
	src := &cyclingSource{}
	g := newTestGenerator(t, 2, WithSource(src))
	feedAll(t, g, "the cat sat", "the dog ran", "the cat ran")
	ctx := context.Background()

	// "the" is followed by cat (2) and dog (1): draws 0 and 1 pick cat, 2 picks dog.
	var got []string
	for i := 0; i < 3; i++ {
		p, err := g.predict(ctx, ngram.New("the"))
		if err != nil {
			t.Fatalf("predict() error = %v", err)
		}
		got = append(got, p)
	}
	expected := []string{"cat", "cat", "dog"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("predict() draws = %q, want %q", got, expected)
	}
}

func TestPredictFallsBackToUnigram(t *testing.T) {
	src := &cyclingSource{}
	g := newTestGenerator(t, 2, WithSource(src))
	feedAll(t, g, "the cat sat")
	ctx := context.Background()

	entries, _ := g.table.Entries(ctx)
	reached := make(map[string]bool)
	for range entries {
		p, err := g.predict(ctx, ngram.New("dog"))
		if err != nil {
			t.Fatalf("predict() with unseen history error = %v", err)
		}
		reached[p] = true
	}

	for _, e := range entries {
		if !reached[e.Gram.Last()] {
			t.Errorf("token %q is not reachable through the unigram fallback", e.Gram.Last())
		}
	}
}

func TestPredictOrderOneIgnoresHistory(t *testing.T) {
	g := newTestGenerator(t, 1, WithSource(fixedSource(0)))
	feedAll(t, g, "b a")
	ctx := context.Background()

	// Sorted table: "<EOC>", "a", "b"; the first bucket is always the end marker.
	for _, history := range []ngram.NGram{ngram.New(StartToken), ngram.New("a"), ngram.New("zzz")} {
		p, err := g.predict(ctx, history)
		if err != nil {
			t.Fatalf("predict() error = %v", err)
		}
		if p != EndToken {
			t.Errorf("predict(%q) = %q, want %q", history, p, EndToken)
		}
	}
}

func TestPredictLeavesTableUntouched(t *testing.T) {
	g := newTestGenerator(t, 2, WithSource(lastBucket{}))
	feedAll(t, g, "a b", "a b", "a c")
	before := tableCounts(t, g.table)

	for i := 0; i < 5; i++ {
		if _, err := g.predict(context.Background(), ngram.New("a")); err != nil {
			t.Fatalf("predict() error = %v", err)
		}
	}

	if after := tableCounts(t, g.table); !reflect.DeepEqual(before, after) {
		t.Errorf("table changed during prediction: before %v, after %v", before, after)
	}
}

func TestPredictEmptyModel(t *testing.T) {
	g := newTestGenerator(t, 2)
	_, err := g.predict(context.Background(), ngram.New(StartToken))
	if !errors.Is(err, ErrEmptyModel) {
		t.Errorf("expected ErrEmptyModel, got %v", err)
	}
}

func TestCumulate(t *testing.T) {
	entries := []Entry{{Count: 2}, {Count: 1}, {Count: 3}}
	if total := cumulate(entries); total != 6 {
		t.Errorf("cumulate() total = %d, want 6", total)
	}
	var got []int
	for _, e := range entries {
		got = append(got, e.Count)
	}
	if expected := []int{2, 3, 6}; !reflect.DeepEqual(got, expected) {
		t.Errorf("cumulative counts = %v, want %v", got, expected)
	}
}
