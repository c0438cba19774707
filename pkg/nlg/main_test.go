package nlg

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

// fixedSource always returns the same offset from the start of the range,
// clamped to n-1. Offset 0 always selects the first cumulative bucket.
type fixedSource int

func (s fixedSource) IntN(n int) int {
	return min(int(s), n-1)
}

// lastBucket always selects the last cumulative bucket.
type lastBucket struct{}

func (lastBucket) IntN(n int) int {
	return n - 1
}

// cyclingSource returns 0, 1, 2, ... modulo n.
type cyclingSource struct {
	next int
}

func (s *cyclingSource) IntN(n int) int {
	v := s.next % n
	s.next++
	return v
}

// setupTestDB creates a new file-backed SQLite database with the schema in place.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t testing.TB) *sql.DB {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}
	return db
}

// openTestTable opens a named SQLTable on db and closes it on cleanup.
func openTestTable(t testing.TB, db *sql.DB, name string, order int) *SQLTable {
	table, err := OpenSQLTable(context.Background(), db, name, order)
	if err != nil {
		t.Fatalf("OpenSQLTable() error = %v", err)
	}
	t.Cleanup(table.Close)
	return table
}

// newTestGenerator creates a Generator and fails the test on error.
func newTestGenerator(t testing.TB, order int, opts ...GeneratorOption) *Generator {
	g, err := New(order, opts...)
	if err != nil {
		t.Fatalf("New(%d) error = %v", order, err)
	}
	return g
}

// feedAll feeds every text and fails the test on error.
func feedAll(t testing.TB, g *Generator, texts ...string) {
	ctx := context.Background()
	for _, text := range texts {
		if err := g.Feed(ctx, text); err != nil {
			t.Fatalf("Feed(%q) error = %v", text, err)
		}
	}
}

// tableCounts flattens a table into "gram -> count" form.
func tableCounts(t testing.TB, table Table) map[string]int {
	entries, err := table.Entries(context.Background())
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	counts := make(map[string]int, len(entries))
	for _, e := range entries {
		counts[e.Gram.String()] = e.Count
	}
	return counts
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a repetitive corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		lines := []string{
			"the quick brown fox jumps over the lazy dog",
			"a stitch in time saves nine",
			"the early bird catches the worm, but the second mouse gets the cheese",
			"all that glitters is not gold",
			"the dog barks at the fox and the fox runs over the hill",
		}
		var sb strings.Builder
		for i := 0; i < 200; i++ {
			sb.WriteString(lines[i%len(lines)])
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}
