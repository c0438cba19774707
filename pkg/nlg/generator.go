package nlg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	// StartToken is the reserved Start-Of-Chain marker used to pad histories.
	StartToken = "<SOC>"
	// EndToken is the reserved End-Of-Chain marker closing every instance.
	EndToken = "<EOC>"
	// Blank is returned by Produce when the very first prediction ends the chain.
	Blank = "(blank)"
	// MaxSteps caps the number of tokens Produce adds after the first one.
	MaxSteps = 100
)

var (
	// ErrEmptyModel is returned when generating from a table with no entries.
	ErrEmptyModel = errors.New("nlg: empty model")
	// ErrInvalidOrder is returned for an order lower than 1.
	ErrInvalidOrder = errors.New("nlg: order must be at least 1")
	// ErrModelTrained is returned when changing the order of a trained model.
	ErrModelTrained = errors.New("nlg: model already trained")
	// ErrOrderMismatch is returned when a table was built for another order.
	ErrOrderMismatch = errors.New("nlg: table order mismatch")
	// ErrReservedToken is returned when training text tokenizes to a marker.
	ErrReservedToken = errors.New("nlg: reserved token in training text")
)

// Source supplies the random draws used for weighted sampling. IntN must
// return a value in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// OrderedTable is implemented by tables that record the order they were built
// for. The Generator keeps such a table in step with its own order.
type OrderedTable interface {
	Table
	Order() int
	SetOrder(ctx context.Context, order int) error
}

// generatorOptions is filled in by GeneratorOption functions.
type generatorOptions struct {
	table     Table
	tokenizer Tokenizer
	source    Source
}

// GeneratorOption configures a Generator at construction time.
type GeneratorOption func(*generatorOptions)

// WithTable sets the frequency table backend. Default: a new MemoryTable.
func WithTable(t Table) GeneratorOption {
	return func(o *generatorOptions) { o.table = t }
}

// WithTokenizer sets the tokenizer used by Feed and the separator used by
// Produce. Default: NewDefaultTokenizer().
func WithTokenizer(t Tokenizer) GeneratorOption {
	return func(o *generatorOptions) { o.tokenizer = t }
}

// WithSource sets the random source used for sampling.
func WithSource(src Source) GeneratorOption {
	return func(o *generatorOptions) { o.source = src }
}

// WithSeed seeds a PCG generator so that identical training data produces
// identical output across runs. Without it the clock is used.
func WithSeed(seed uint64) GeneratorOption {
	return func(o *generatorOptions) { o.source = rand.New(rand.NewPCG(seed, seed)) }
}

// Generator keeps a record of the n-grams observed in the training data along
// with their frequency counts, and produces text by sampling from them.
// A Generator is not safe for concurrent use.
type Generator struct {
	order     int
	table     Table
	tokenizer Tokenizer
	src       Source
	logger    *slog.Logger
}

// New creates a Generator for n-grams of the given order.
func New(order int, opts ...GeneratorOption) (*Generator, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}

	options := &generatorOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if options.table == nil {
		options.table = NewMemoryTable()
	}
	if options.tokenizer == nil {
		options.tokenizer = NewDefaultTokenizer()
	}
	if options.source == nil {
		seed := uint64(time.Now().UnixNano())
		options.source = rand.New(rand.NewPCG(seed, seed>>1))
	}

	if ot, ok := options.table.(OrderedTable); ok && ot.Order() != order {
		return nil, fmt.Errorf("%w: table has order %d, generator %d", ErrOrderMismatch, ot.Order(), order)
	}

	return &Generator{
		order:     order,
		table:     options.table,
		tokenizer: options.tokenizer,
		src:       options.source,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Order returns the order of the language model.
func (g *Generator) Order() int {
	return g.order
}

// SetOrder changes the order of the language model. Existing counts were
// collected for the old order, so the order can only change while the table
// is still empty; afterwards ErrModelTrained is returned.
func (g *Generator) SetOrder(ctx context.Context, order int) error {
	if order < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	if order == g.order {
		return nil
	}
	n, err := g.table.Len(ctx)
	if err != nil {
		return fmt.Errorf("could not check table size: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d n-grams of order %d", ErrModelTrained, n, g.order)
	}
	if ot, ok := g.table.(OrderedTable); ok {
		if err = ot.SetOrder(ctx, order); err != nil {
			return fmt.Errorf("could not set table order: %w", err)
		}
	}

	g.logger.InfoContext(ctx, "Model order changed",
		slog.Int("old_order", g.order),
		slog.Int("new_order", order),
	)
	g.order = order
	return nil
}
