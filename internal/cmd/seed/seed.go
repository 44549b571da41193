// Package seed parses seed command flags and runs the demo data seeder.
package seed

import (
	"context"
	"flag"
	"fmt"
	"io"

	entrypoint "github.com/swoplabs/swopcredit/internal/platform/cmd"
	"github.com/swoplabs/swopcredit/internal/tools/seed"
)

// Config holds seed command configuration.
type Config struct {
	DBPath   string `env:"SWOPCREDIT_SEED_DB_PATH" envDefault:"data/swopcredit.db"`
	Scenario string `env:"SWOPCREDIT_SEED_SCENARIO"`
	Verbose  bool
	List     bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "Run one scenario (default: all)")
	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose output")
	fs.BoolVar(&cfg.List, "list", false, "List available scenarios")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if cfg.List {
		fmt.Fprintln(out, "Available scenarios:")
		for _, name := range seed.ListScenarios() {
			fmt.Fprintf(out, "  %s\n", name)
		}
		return nil
	}
	return seed.Run(ctx, seed.Config{
		DBPath:   cfg.DBPath,
		Scenario: cfg.Scenario,
		Verbose:  cfg.Verbose,
		Out:      out,
	})
}
