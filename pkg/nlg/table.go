package nlg

import (
	"context"
	"sort"

	"github.com/CTAG07/nlg/pkg/ngram"
)

// Entry is one row of a frequency table: an n-gram and how often it was seen.
type Entry struct {
	Gram  ngram.NGram
	Count int
}

// Table stores n-gram frequency counts ordered by the n-gram ordering.
// Every slice a Table returns is a fresh copy that the caller may modify.
type Table interface {
	// Add increments the count of every given n-gram, inserting it with a
	// count of 1 when absent.
	Add(ctx context.Context, grams ...ngram.NGram) error
	// Scope returns, in order, the entries whose n-gram has history as a
	// prefix. It returns an empty slice when the history was never observed.
	Scope(ctx context.Context, history ngram.NGram) ([]Entry, error)
	// Entries returns the whole table in order.
	Entries(ctx context.Context) ([]Entry, error)
	// Len returns the number of distinct n-grams.
	Len(ctx context.Context) (int, error)
}

// MemoryTable is a Table kept in a sorted slice. Lookups are binary searches
// against keys of any length.
type MemoryTable struct {
	entries []Entry
}

// NewMemoryTable creates an empty MemoryTable.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{}
}

// Add increments or inserts each n-gram, keeping the slice sorted.
func (t *MemoryTable) Add(_ context.Context, grams ...ngram.NGram) error {
	for _, g := range grams {
		t.increment(g)
	}
	return nil
}

func (t *MemoryTable) increment(g ngram.NGram) {
	i := t.lower(g)
	if i < len(t.entries) && t.entries[i].Gram.Compare(g) == 0 {
		t.entries[i].Count++
		return
	}

	t.entries = append(t.entries, Entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = Entry{Gram: g, Count: 1}
}

// Scope returns the entries between the lower and upper bound of history.
func (t *MemoryTable) Scope(_ context.Context, history ngram.NGram) ([]Entry, error) {
	lo := t.lower(history)
	hi := t.upper(history, lo)
	if lo >= hi {
		return nil, nil
	}
	out := make([]Entry, hi-lo)
	copy(out, t.entries[lo:hi])
	return out, nil
}

// Entries returns a copy of the whole table.
func (t *MemoryTable) Entries(_ context.Context) ([]Entry, error) {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out, nil
}

// Len returns the number of distinct n-grams.
func (t *MemoryTable) Len(_ context.Context) (int, error) {
	return len(t.entries), nil
}

// lower returns the index of the first key not less than g.
func (t *MemoryTable) lower(g ngram.NGram) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].Gram.Less(g)
	})
}

// upper returns the index of the first key, at or after from, that is strictly
// greater than g. Keys extending g are Equal to it rather than greater, so
// they all fall below the bound.
func (t *MemoryTable) upper(g ngram.NGram, from int) int {
	return from + sort.Search(len(t.entries)-from, func(i int) bool {
		return t.entries[from+i].Gram.Greater(g)
	})
}
