package nlg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/CTAG07/nlg/pkg/ngram"
)

// SetupSchema initializes the necessary tables in the provided database. This
// function should be called once on a new database before any SQLTable is
// opened. It is idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaModels = `
CREATE TABLE IF NOT EXISTS ngram_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    model_order INTEGER NOT NULL
);
`
		schemaCounts = `
CREATE TABLE IF NOT EXISTS ngram_counts (
    model_id INTEGER NOT NULL,
    context TEXT NOT NULL,
    next_token TEXT NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, context, next_token)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaCounts); err != nil {
		return fmt.Errorf("could not create counts schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// SQLTable is a Table stored in an SQL database under a model name. Several
// named models can share one database.
type SQLTable struct {
	db            *sql.DB
	modelID       int
	name          string
	order         int
	stmtIncrement *sql.Stmt
	stmtScope     *sql.Stmt
	stmtEntries   *sql.Stmt
	stmtLen       *sql.Stmt
	stmtSetOrder  *sql.Stmt
	logger        *slog.Logger
}

// OpenSQLTable opens the model called name, creating it with the given order
// when it does not exist yet. An existing model with a different order yields
// ErrOrderMismatch. SetupSchema must have been called on db.
func OpenSQLTable(ctx context.Context, db *sql.DB, name string, order int) (*SQLTable, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}

	var modelID, modelOrder int
	err := db.QueryRowContext(ctx, `SELECT model_id, model_order FROM ngram_models WHERE model_name = ?;`, name).Scan(&modelID, &modelOrder)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := db.ExecContext(ctx, `INSERT INTO ngram_models (model_name, model_order) VALUES (?, ?);`, name, order)
		if err != nil {
			return nil, fmt.Errorf("failed to insert new model '%s': %w", name, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("failed to read id of model '%s': %w", name, err)
		}
		modelID, modelOrder = int(newID), order
	} else if err != nil {
		return nil, fmt.Errorf("failed to query for model '%s': %w", name, err)
	}
	if modelOrder != order {
		return nil, fmt.Errorf("%w: model '%s' has order %d, requested %d", ErrOrderMismatch, name, modelOrder, order)
	}

	t := &SQLTable{
		db:      db,
		modelID: modelID,
		name:    name,
		order:   order,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	err = prepareStatements(ctx, db,
		stmtSpec{&t.stmtIncrement, `INSERT INTO ngram_counts (model_id, context, next_token, frequency) VALUES (?, ?, ?, 1) ON CONFLICT(model_id, context, next_token) DO UPDATE SET frequency = frequency + 1;`},
		stmtSpec{&t.stmtScope, `SELECT next_token, frequency FROM ngram_counts WHERE model_id = ? AND context = ?;`},
		stmtSpec{&t.stmtEntries, `SELECT context, next_token, frequency FROM ngram_counts WHERE model_id = ?;`},
		stmtSpec{&t.stmtLen, `SELECT COUNT(*) FROM ngram_counts WHERE model_id = ?;`},
		stmtSpec{&t.stmtSetOrder, `UPDATE ngram_models SET model_order = ? WHERE model_id = ?;`},
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// preparer is satisfied by *sql.DB.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// stmtSpec pairs a query with the field receiving its prepared statement.
type stmtSpec struct {
	dst   **sql.Stmt
	query string
}

// prepareStatements prepares every query in turn. When one fails, the
// statements already prepared are closed before the error is returned.
func prepareStatements(ctx context.Context, db preparer, specs ...stmtSpec) error {
	for i, spec := range specs {
		stmt, err := db.PrepareContext(ctx, spec.query)
		if err != nil {
			for _, done := range specs[:i] {
				_ = (*done.dst).Close()
			}
			return fmt.Errorf("could not prepare statement: %w", err)
		}
		*spec.dst = stmt
	}
	return nil
}

// Close releases all prepared SQL statements held by the table.
func (t *SQLTable) Close() {
	_ = t.stmtIncrement.Close()
	_ = t.stmtScope.Close()
	_ = t.stmtEntries.Close()
	_ = t.stmtLen.Close()
	_ = t.stmtSetOrder.Close()
}

// SetLogger sets the logger for the table. By default, all logs are discarded.
func (t *SQLTable) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Name returns the model name.
func (t *SQLTable) Name() string {
	return t.name
}

// Order returns the order recorded for the model.
func (t *SQLTable) Order() int {
	return t.order
}

// SetOrder records a new order for the model.
func (t *SQLTable) SetOrder(ctx context.Context, order int) error {
	if _, err := t.stmtSetOrder.ExecContext(ctx, order, t.modelID); err != nil {
		return fmt.Errorf("could not update order of model %d: %w", t.modelID, err)
	}
	t.order = order
	return nil
}

// Add increments every n-gram within a single transaction.
func (t *SQLTable) Add(ctx context.Context, grams ...ngram.NGram) error {
	if len(grams) == 0 {
		return nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmt := tx.StmtContext(ctx, t.stmtIncrement)
	for _, g := range grams {
		if g.Order() != t.order {
			return fmt.Errorf("%w: n-gram '%s' has order %d, model %d", ErrOrderMismatch, g, g.Order(), t.order)
		}
		if _, err = stmt.ExecContext(ctx, t.modelID, encodeContext(g.History()), g.Last()); err != nil {
			return fmt.Errorf("failed to increment n-gram '%s': %w", g, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	t.logger.DebugContext(ctx, "N-grams stored",
		slog.String("model_name", t.name),
		slog.Int("model_id", t.modelID),
		slog.Int("ngrams", len(grams)),
	)
	return nil
}

// Scope returns the entries continuing history. A history of order-1 tokens is
// answered by the context index; any other length is matched by prefix.
func (t *SQLTable) Scope(ctx context.Context, history ngram.NGram) ([]Entry, error) {
	if history.Order() != t.order-1 {
		all, err := t.Entries(ctx)
		if err != nil {
			return nil, err
		}
		return slices.DeleteFunc(all, func(e Entry) bool { return !e.Gram.HasPrefix(history) }), nil
	}

	rows, err := t.stmtScope.QueryContext(ctx, t.modelID, encodeContext(history))
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	prefix := history.Tokens()
	var entries []Entry
	for rows.Next() {
		var next string
		var entry Entry
		if err = rows.Scan(&next, &entry.Count); err != nil {
			return nil, err
		}
		entry.Gram = ngram.New(append(slices.Clip(prefix), next)...)
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

// Entries returns every n-gram of the model in order.
func (t *SQLTable) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := t.stmtEntries.QueryContext(ctx, t.modelID)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var entries []Entry
	for rows.Next() {
		var history, next string
		var tokens []string
		var entry Entry
		if err = rows.Scan(&history, &next, &entry.Count); err != nil {
			return nil, err
		}
		if tokens, err = decodeContext(history); err != nil {
			return nil, fmt.Errorf("model %d: %w", t.modelID, err)
		}
		entry.Gram = ngram.New(append(tokens, next)...)
		entries = append(entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

// Len returns the number of distinct n-grams of the model.
func (t *SQLTable) Len(ctx context.Context) (int, error) {
	var n int
	if err := t.stmtLen.QueryRowContext(ctx, t.modelID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return a.Gram.Compare(b.Gram)
	})
}

// encodeContext stores a history as space separated Go-quoted tokens. Quoting
// escapes every space, control character and invalid byte, so each token
// reads back exactly.
func encodeContext(history ngram.NGram) string {
	tokens := history.Tokens()
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = strconv.Quote(tok)
	}
	return strings.Join(quoted, " ")
}

func decodeContext(s string) ([]string, error) {
	var tokens []string
	for s != "" {
		q, err := strconv.QuotedPrefix(s)
		if err != nil {
			return nil, fmt.Errorf("malformed context %q: %w", s, err)
		}
		tok, err := strconv.Unquote(q)
		if err != nil {
			return nil, fmt.Errorf("malformed context %q: %w", s, err)
		}
		tokens = append(tokens, tok)
		s = strings.TrimPrefix(s[len(q):], " ")
	}
	return tokens, nil
}
