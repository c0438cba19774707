package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"
)

// Config is the top-level configuration of the nlg command.
type Config struct {
	Order        int    `json:"order"`
	TrainingFile string `json:"training_file"`
	LogLevel     string `json:"log_level"`
	// Seed fixes the random source; 0 seeds it from the clock.
	Seed uint64 `json:"seed"`
	// DatabasePath selects an SQLite-backed table; empty keeps the table in memory.
	DatabasePath string `json:"database_path"`
	ModelName    string `json:"model_name"`
	// ServerAddr serves the HTTP API instead of the interactive prompt when set.
	ServerAddr string `json:"server_addr"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Order:        0,
		TrainingFile: "",
		LogLevel:     "warn",
		Seed:         0,
		DatabasePath: "",
		ModelName:    "default",
		ServerAddr:   "",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The command can still run with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// applyFlags copies the value of every flag that was set on the command line
// over the configuration.
func (c *Config) applyFlags(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		getter, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		switch f.Name {
		case "n":
			c.Order = getter.Get().(int)
		case "t":
			c.TrainingFile = getter.Get().(string)
		case "log-level":
			c.LogLevel = getter.Get().(string)
		case "seed":
			c.Seed = getter.Get().(uint64)
		case "db":
			c.DatabasePath = getter.Get().(string)
		case "model":
			c.ModelName = getter.Get().(string)
		case "serve":
			c.ServerAddr = getter.Get().(string)
		}
	})
}

// slogLevel maps the configured level name to a slog.Level.
func (c *Config) slogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
