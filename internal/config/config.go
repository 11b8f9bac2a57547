// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
)

// Environment variable names.
const (
	EnvLogLevel   = "DESPECKLE_MCP_LOG_LEVEL"
	EnvRadius     = "DESPECKLE_RADIUS"
	EnvMode       = "DESPECKLE_MODE"
	EnvBlackLevel = "DESPECKLE_BLACK_LEVEL"
	EnvWhiteLevel = "DESPECKLE_WHITE_LEVEL"
	EnvBlockRows  = "DESPECKLE_BLOCK_ROWS"
	EnvMaxPixels  = "DESPECKLE_MAX_PIXELS"
)

// DefaultMaxPixels bounds the size of images the server will filter.
const DefaultMaxPixels = 100_000_000

// Config holds the settings shared by the server and the CLI.
type Config struct {
	// LogLevel is "debug" for verbose logging; anything else is quiet.
	LogLevel string

	// Defaults are the filter parameters used when a request leaves them out.
	Defaults despeckle.Parameters

	// BlockRows is the read-ahead size of the engine's row window.
	BlockRows int

	// MaxPixels rejects images with more pixels than this.
	MaxPixels int
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		Defaults:  despeckle.DefaultParameters(),
		BlockRows: despeckle.DefaultBlockRows,
		MaxPixels: DefaultMaxPixels,
	}
}

// Load reads envFile into the process environment when it exists (variables
// already set win) and builds a Config from the environment. An empty envFile
// skips the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config using lookup for variable access.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = v
	}

	// Persisted layout order: radius, mode, black, white.
	values := cfg.Defaults.Values()
	for i, name := range []string{EnvRadius, EnvMode, EnvBlackLevel, EnvWhiteLevel} {
		n, ok, err := lookupInt32(lookup, name)
		if err != nil {
			return nil, err
		}
		if ok {
			values[i] = n
		}
	}
	params, err := despeckle.ParametersFromValues(values)
	if err != nil {
		return nil, fmt.Errorf("invalid default filter parameters: %w", err)
	}
	cfg.Defaults = params

	if n, ok, err := lookupInt(lookup, EnvBlockRows); err != nil {
		return nil, err
	} else if ok {
		if n < 1 {
			return nil, fmt.Errorf("%s must be positive, got %d", EnvBlockRows, n)
		}
		cfg.BlockRows = n
	}

	if n, ok, err := lookupInt(lookup, EnvMaxPixels); err != nil {
		return nil, err
	} else if ok {
		if n < 1 {
			return nil, fmt.Errorf("%s must be positive, got %d", EnvMaxPixels, n)
		}
		cfg.MaxPixels = n
	}

	return cfg, nil
}

func lookupInt(lookup func(string) (string, bool), name string) (int, bool, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return n, true, nil
}

func lookupInt32(lookup func(string) (string, bool), name string) (int32, bool, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return int32(n), true, nil
}
