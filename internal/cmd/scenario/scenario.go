// Package scenario parses scenario command flags and runs Lua journeys.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"time"

	entrypoint "github.com/swoplabs/swopcredit/internal/platform/cmd"
	"github.com/swoplabs/swopcredit/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	BaseURL    string        `env:"SWOPCREDIT_API_URL" envDefault:"http://localhost:8080"`
	Scenario   string        `env:"SWOPCREDIT_SCENARIO_FILE"`
	Assertions bool          `env:"SWOPCREDIT_SCENARIO_ASSERT" envDefault:"true"`
	Verbose    bool          `env:"SWOPCREDIT_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"SWOPCREDIT_SCENARIO_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.BaseURL, "api-url", cfg.BaseURL, "API server base URL")
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "Path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "Enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout per step")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, errOut io.Writer) error {
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	return scenario.RunFile(ctx, scenario.Config{
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Assertions: mode,
		Verbose:    cfg.Verbose,
		Logger:     log.New(errOut, "", 0),
	}, cfg.Scenario)
}
