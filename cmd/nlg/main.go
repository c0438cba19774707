package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CTAG07/nlg/pkg/nlg"
	"github.com/dustin/go-humanize"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func printSynopsis(fs *flag.FlagSet, w io.Writer) func() {
	return func() {
		_, _ = fmt.Fprintln(w, "Usage: nlg -n ORDER -t TRAINING_FILE [options]")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Trains an n-gram model on TRAINING_FILE, one instance per line, and")
		_, _ = fmt.Fprintln(w, "produces new instances until told to stop.")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Options:")
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
}

// run executes the command and returns the process exit status.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("nlg", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	// Usage is printed by run itself.
	fs.Usage = func() {}
	usage := printSynopsis(fs, stderr)

	configPath := fs.String("config", "nlg.json", "path to the JSON configuration file")
	fs.Int("n", 0, "order of the language model")
	fs.String("t", "", "training file, one instance per line")
	fs.String("db", "", "SQLite database holding the frequency table (default: in memory)")
	fs.String("model", "", "model name inside the database")
	fs.Uint64("seed", 0, "random seed; 0 seeds from the clock")
	fs.String("serve", "", "serve the HTTP API on this address instead of prompting")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	showStats := fs.Bool("stats", false, "print table statistics after training")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage()
			return 0
		}
		_, _ = fmt.Fprintln(stderr, "Wrong number of arguments!")
		usage()
		return 1
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	cfg.applyFlags(fs)

	if fs.NArg() > 0 || cfg.Order < 1 || (cfg.TrainingFile == "" && cfg.DatabasePath == "") {
		_, _ = fmt.Fprintln(stderr, "Wrong number of arguments!")
		usage()
		return 1
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.slogLevel()}))

	var opts []nlg.GeneratorOption
	if cfg.Seed != 0 {
		opts = append(opts, nlg.WithSeed(cfg.Seed))
	}

	if cfg.DatabasePath != "" {
		db, table, err := openTable(ctx, cfg)
		if err != nil {
			logger.Error("Failed to open frequency table", "database_path", cfg.DatabasePath, "error", err)
			return 1
		}
		defer func() {
			table.Close()
			if err := db.Close(); err != nil {
				logger.Error("Failed to close database", "error", err)
			}
		}()
		table.SetLogger(logger)
		opts = append(opts, nlg.WithTable(table))
	}

	gen, err := nlg.New(cfg.Order, opts...)
	if err != nil {
		logger.Error("Failed to create generator", "error", err)
		return 1
	}
	gen.SetLogger(logger)

	if cfg.TrainingFile != "" {
		if err = trainFromFile(ctx, gen, cfg.TrainingFile); err != nil {
			logger.Debug("Training failed", "training_file", cfg.TrainingFile, "error", err)
			_, _ = fmt.Fprintln(stderr, "Bad training file!")
			return 1
		}
	}

	if *showStats {
		if err = printStats(ctx, gen, stdout); err != nil {
			logger.Error("Failed to read stats", "error", err)
			return 1
		}
	}

	if cfg.ServerAddr != "" {
		api := NewGeneratorAPI(gen, logger)
		if err = serve(ctx, cfg.ServerAddr, api.Handler(), logger); err != nil {
			logger.Error("Server failed", "error", err)
			return 1
		}
		return 0
	}

	if err = runInteractive(ctx, gen, stdin, stdout); err != nil {
		logger.Error("Generation failed", "error", err)
		return 1
	}
	return 0
}

// openTable opens the configured database and the named model inside it.
func openTable(ctx context.Context, cfg *Config) (*sql.DB, *nlg.SQLTable, error) {
	db, err := initDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = nlg.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup schema: %w", err)
	}
	table, err := nlg.OpenSQLTable(ctx, db, cfg.ModelName, cfg.Order)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, table, nil
}

func trainFromFile(ctx context.Context, gen *nlg.Generator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return gen.Train(ctx, f)
}

func printStats(ctx context.Context, gen *nlg.Generator, w io.Writer) error {
	stats, err := gen.Stats(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "Order:           %d\n", stats.Order)
	_, _ = fmt.Fprintf(w, "N-grams:         %s\n", humanize.Comma(int64(stats.Entries)))
	_, _ = fmt.Fprintf(w, "Observations:    %s\n", humanize.Comma(int64(stats.TotalFrequency)))
	_, _ = fmt.Fprintf(w, "Contexts:        %s\n", humanize.Comma(int64(stats.Contexts)))
	_, _ = fmt.Fprintf(w, "Starting tokens: %s\n", humanize.Comma(int64(stats.StartingTokens)))
	return nil
}

// serve hosts handler on addr until ctx is cancelled, then shuts down.
func serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting api server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Stopping api server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped.")
	return nil
}
